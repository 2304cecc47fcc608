package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/mgvlab/kandel/pkg/syncgroup"
)

// Offer-type discriminator of the position contract's reserveBalance and
// offeredVolume getters.
const (
	offerTypeBid uint8 = 0
	offerTypeAsk uint8 = 1
)

// StaticParams reads a position's immutable parameters.
func (c *Client) StaticParams(ctx context.Context, position common.Address) (StaticParams, error) {
	var out StaticParams
	var base, quote common.Address
	if err := c.call(ctx, position, c.kandelABI, "BASE", &base); err != nil {
		return out, err
	}
	if err := c.call(ctx, position, c.kandelABI, "QUOTE", &quote); err != nil {
		return out, err
	}
	var spacing *big.Int
	if err := c.call(ctx, position, c.kandelABI, "TICK_SPACING", &spacing); err != nil {
		return out, err
	}
	out.Base, out.Quote, out.TickSpacing = base, quote, spacing
	return out, nil
}

type paramsResult struct {
	Gasprice    uint32
	Gasreq      *big.Int
	StepSize    uint32
	PricePoints uint32
}

// Params reads a position's mutable parameters.
func (c *Client) Params(ctx context.Context, position common.Address) (Params, error) {
	var raw paramsResult
	if err := c.call(ctx, position, c.kandelABI, "params", &raw); err != nil {
		return Params{}, err
	}
	return Params{
		GasPrice:    new(big.Int).SetUint64(uint64(raw.Gasprice)),
		GasReq:      raw.Gasreq,
		StepSize:    raw.StepSize,
		PricePoints: raw.PricePoints,
	}, nil
}

// BaseQuoteTickOffset reads the tick distance between a ladder's levels.
func (c *Client) BaseQuoteTickOffset(ctx context.Context, position common.Address) (*big.Int, error) {
	var offset *big.Int
	if err := c.call(ctx, position, c.kandelABI, "baseQuoteTickOffset", &offset); err != nil {
		return nil, err
	}
	return offset, nil
}

// Reserves reads the position's per-side token balance.
func (c *Client) Reserves(ctx context.Context, position common.Address) (Reserves, error) {
	var base, quote *big.Int
	if err := c.call(ctx, position, c.kandelABI, "reserveBalance", &base, offerTypeAsk); err != nil {
		return Reserves{}, err
	}
	if err := c.call(ctx, position, c.kandelABI, "reserveBalance", &quote, offerTypeBid); err != nil {
		return Reserves{}, err
	}
	return Reserves{Base: base, Quote: quote}, nil
}

// OfferedVolume reads the live offered volume on one side. A position with
// any non-zero offered volume has live offers to retract before repopulating.
func (c *Client) OfferedVolume(ctx context.Context, position common.Address, side Side) (*big.Int, error) {
	ba := offerTypeAsk
	if side == Bids {
		ba = offerTypeBid
	}
	var volume *big.Int
	if err := c.call(ctx, position, c.kandelABI, "offeredVolume", &volume, ba); err != nil {
		return nil, err
	}
	return volume, nil
}

type offerResult struct {
	Tick  *big.Int
	Gives *big.Int
}

// FirstAskTick reads the tick of the offer at the first ask index. Together
// with the tick offset it pins down the ladder's exact tick grid.
func (c *Client) FirstAskTick(ctx context.Context, position common.Address, firstAskIndex int64) (int64, error) {
	var raw offerResult
	err := c.call(ctx, position, c.kandelABI, "getOffer", &raw, offerTypeAsk, big.NewInt(firstAskIndex))
	if err != nil {
		return 0, err
	}
	return raw.Tick.Int64(), nil
}

type localResult struct {
	Active       bool
	Fee          *big.Int
	Density      *big.Int
	OfferGasbase *big.Int
}

// LocalConfig reads the exchange configuration for one offer list.
func (c *Client) LocalConfig(ctx context.Context, side Side) (LocalConfig, error) {
	var raw localResult
	if err := c.call(ctx, c.reader, c.readerABI, "localUnpacked", &raw, c.market.OLKeyFor(side)); err != nil {
		return LocalConfig{}, err
	}
	return LocalConfig{
		Active:       raw.Active,
		Fee:          raw.Fee,
		Density:      raw.Density,
		OfferGasbase: raw.OfferGasbase,
	}, nil
}

// LocalConfigs fetches both sides concurrently. The two reads are genuinely
// distinct offer lists, not one read mirrored.
func (c *Client) LocalConfigs(ctx context.Context) (LocalConfigs, error) {
	var (
		ask, bid       LocalConfig
		askErr, bidErr error
	)
	sg := syncgroup.NewSyncGroup()
	sg.Add(func() { ask, askErr = c.LocalConfig(ctx, Asks) })
	sg.Add(func() { bid, bidErr = c.LocalConfig(ctx, Bids) })
	sg.Run()
	sg.Wait()
	if askErr != nil {
		return LocalConfigs{}, errors.Wrap(askErr, "ask config")
	}
	if bidErr != nil {
		return LocalConfigs{}, errors.Wrap(bidErr, "bid config")
	}
	return LocalConfigs{Ask: ask, Bid: bid}, nil
}

// ProvisionQuote returns the per-offer provision at the exchange's current
// global gas price for one side. A zero gasprice argument makes the helper
// quote at the global default.
func (c *Client) ProvisionQuote(ctx context.Context, side Side, gasreq *big.Int) (*big.Int, error) {
	var quote *big.Int
	err := c.call(ctx, c.reader, c.readerABI, "getProvision", &quote, c.market.OLKeyFor(side), gasreq, new(big.Int))
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// FreeBalance reads the maker's unlocked provision balance on the exchange.
func (c *Client) FreeBalance(ctx context.Context, maker common.Address) (*big.Int, error) {
	var balance *big.Int
	if err := c.call(ctx, c.mangrove, c.mgvABI, "balanceOf", &balance, maker); err != nil {
		return nil, err
	}
	return balance, nil
}

// TokenBalance reads an ERC-20 balance.
func (c *Client) TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	var balance *big.Int
	if err := c.call(ctx, token, c.erc20ABI, "balanceOf", &balance, account); err != nil {
		return nil, err
	}
	return balance, nil
}

// Allowance reads an ERC-20 allowance.
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	var allowance *big.Int
	if err := c.call(ctx, token, c.erc20ABI, "allowance", &allowance, owner, spender); err != nil {
		return nil, err
	}
	return allowance, nil
}

// TokenMetadata reads symbol, name and decimals of an ERC-20 token.
func (c *Client) TokenMetadata(ctx context.Context, token common.Address) (symbol, name string, decimals uint8, err error) {
	if err = c.call(ctx, token, c.erc20ABI, "symbol", &symbol); err != nil {
		return
	}
	if err = c.call(ctx, token, c.erc20ABI, "name", &name); err != nil {
		return
	}
	err = c.call(ctx, token, c.erc20ABI, "decimals", &decimals)
	return
}
