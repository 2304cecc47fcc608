// Package notify surfaces transaction lifecycle updates to the presentation
// layer. Notifications flow one way; nothing here feeds back into the core.
package notify

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mgvlab/kandel/pkg/logger"
)

// Stage is one step of a transaction's lifecycle.
type Stage string

const (
	StageSigning   Stage = "signing"
	StageSubmitted Stage = "submitted"
	StageSuccess   Stage = "success"
	StageFailed    Stage = "failed"
)

// Notifier receives lifecycle updates keyed by a stable id per transaction.
type Notifier interface {
	// Begin opens a new lifecycle and returns its id.
	Begin(label string) string
	// Update moves a lifecycle to the given stage. Detail carries a hash
	// for submitted/success and a message for failed.
	Update(id string, stage Stage, detail string)
}

// LogNotifier writes lifecycle updates to the process log.
type LogNotifier struct{}

// NewLogNotifier returns a Notifier backed by the shared logger.
func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) Begin(label string) string {
	id := uuid.NewString()
	logger.WithFields(logrus.Fields{"tx": id, "label": label}).Info("transaction pending signature")
	return id
}

func (n *LogNotifier) Update(id string, stage Stage, detail string) {
	entry := logger.WithFields(logrus.Fields{"tx": id, "stage": stage})
	switch stage {
	case StageFailed:
		entry.WithField("reason", detail).Warn("transaction failed")
	case StageSuccess:
		entry.WithField("hash", detail).Info("transaction confirmed")
	default:
		entry.WithField("detail", detail).Info("transaction update")
	}
}

// NopNotifier discards all updates.
type NopNotifier struct{}

func (NopNotifier) Begin(string) string          { return "" }
func (NopNotifier) Update(string, Stage, string) {}
