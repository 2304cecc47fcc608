package store

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func openTemp(t *testing.T) *PositionStore {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveListDelete(t *testing.T) {
	s := openTemp(t)
	owner := common.HexToAddress("0xaa")
	rec := Record{
		Address:   common.HexToAddress("0x01"),
		Owner:     owner,
		Base:      common.HexToAddress("0x02"),
		Quote:     common.HexToAddress("0x03"),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := s.List(owner)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 1 || got[0].Address != rec.Address {
		t.Fatalf("List got=%+v", got)
	}

	// Records are scoped per owner.
	other, err := s.List(common.HexToAddress("0xbb"))
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no records for other owner, got %d", len(other))
	}

	if err := s.Delete(owner, rec.Address); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	got, err = s.List(owner)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list after delete, got %d", len(got))
	}
}

func TestSave_Upsert(t *testing.T) {
	s := openTemp(t)
	owner := common.HexToAddress("0xaa")
	rec := Record{Address: common.HexToAddress("0x01"), Owner: owner}
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	rec.Base = common.HexToAddress("0x09")
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	got, err := s.List(owner)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 1 || got[0].Base != rec.Base {
		t.Fatalf("upsert got=%+v", got)
	}
}
