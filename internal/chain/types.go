// Package chain talks to the exchange and position contracts over JSON-RPC.
// It exposes narrow read and write collaborators; everything above it is pure
// computation.
package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Side selects one of the two offer lists of a market.
type Side int

const (
	// Asks is the base->quote offer list.
	Asks Side = iota
	// Bids is the quote->base offer list.
	Bids
)

func (s Side) String() string {
	if s == Bids {
		return "bids"
	}
	return "asks"
}

// OLKey identifies one offer list on the exchange.
type OLKey struct {
	OutboundTkn common.Address
	InboundTkn  common.Address
	TickSpacing *big.Int
}

// Market is the traded pair. Ask and bid offer lists are derived from it.
type Market struct {
	Base        common.Address
	Quote       common.Address
	TickSpacing *big.Int
}

// OLKeyFor returns the offer list key for one side of the market.
func (m Market) OLKeyFor(side Side) OLKey {
	if side == Bids {
		return OLKey{OutboundTkn: m.Quote, InboundTkn: m.Base, TickSpacing: m.TickSpacing}
	}
	return OLKey{OutboundTkn: m.Base, InboundTkn: m.Quote, TickSpacing: m.TickSpacing}
}

// StaticParams are the immutable parameters of a deployed position.
type StaticParams struct {
	Base        common.Address
	Quote       common.Address
	TickSpacing *big.Int
}

// Params are the mutable parameters of a deployed position.
type Params struct {
	GasPrice    *big.Int
	GasReq      *big.Int
	StepSize    uint32
	PricePoints uint32
}

// GeometricParams are the geometry of a deployed ladder.
type GeometricParams struct {
	BaseQuoteTickOffset *big.Int
}

// LocalConfig is the per-offer-list exchange configuration.
type LocalConfig struct {
	Active       bool
	Fee          *big.Int
	Density      *big.Int
	OfferGasbase *big.Int
}

// LocalConfigs pairs the two sides' configurations.
type LocalConfigs struct {
	Ask LocalConfig
	Bid LocalConfig
}

// Reserves is a position's on-chain token balance per side.
type Reserves struct {
	Base  *big.Int
	Quote *big.Int
}

// PopulateParams is the full argument set of a grid (re)population call.
type PopulateParams struct {
	From                int64
	To                  int64
	BaseQuoteTickIndex0 int64
	TickOffset          int64
	FirstAskIndex       int64
	BidGives            *big.Int
	AskGives            *big.Int
	Params              Params
	BaseAmount          *big.Int
	QuoteAmount         *big.Int
	// Value is the native-currency provision attached to the call.
	Value *big.Int
}
