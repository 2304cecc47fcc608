package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Seed deploys a fresh position for the configured market and returns its
// address, parsed from the factory's NewKandel event.
func (c *Client) Seed(ctx context.Context) (common.Address, error) {
	data, err := c.seederABI.Pack("sow", c.market.OLKeyFor(Asks), false)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "pack sow")
	}
	receipt, err := c.transact(ctx, c.seeder, data, nil)
	if err != nil {
		return common.Address{}, err
	}

	event := c.seederABI.Events["NewKandel"]
	for _, lg := range receipt.Logs {
		if lg.Address != c.seeder || len(lg.Topics) == 0 || lg.Topics[0] != event.ID {
			continue
		}
		var decoded struct {
			Kandel common.Address
		}
		if err := c.seederABI.UnpackIntoInterface(&decoded, "NewKandel", lg.Data); err != nil {
			return common.Address{}, errors.Wrap(err, "decode NewKandel")
		}
		c.log.WithField("kandel", decoded.Kandel.Hex()).Info("position seeded")
		return decoded.Kandel, nil
	}
	return common.Address{}, errors.New("seed succeeded but no NewKandel event found")
}

// ApproveIfNeeded grants spender an allowance of amount on token, skipping
// the transaction when the current allowance already covers it. The skip
// makes retried submissions idempotent.
func (c *Client) ApproveIfNeeded(ctx context.Context, token, spender common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	current, err := c.Allowance(ctx, token, c.Sender(), spender)
	if err != nil {
		return err
	}
	if current.Cmp(amount) >= 0 {
		c.log.WithField("token", token.Hex()).Debug("allowance sufficient, skipping approve")
		return nil
	}
	data, err := c.erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return errors.Wrap(err, "pack approve")
	}
	if _, err := c.transact(ctx, token, data, nil); err != nil {
		return err
	}
	return nil
}

// RetractOffers retracts the position's offers in [from, to).
func (c *Client) RetractOffers(ctx context.Context, position common.Address, from, to int64) error {
	data, err := c.kandelABI.Pack("retractOffers", big.NewInt(from), big.NewInt(to))
	if err != nil {
		return errors.Wrap(err, "pack retractOffers")
	}
	_, err = c.transact(ctx, position, data, nil)
	return err
}

// Populate rebuilds the position's offer grid, attaching p.Value as the
// provision top-up.
func (c *Client) Populate(ctx context.Context, position common.Address, p PopulateParams) error {
	type paramsTuple struct {
		Gasprice    uint32
		Gasreq      *big.Int
		StepSize    uint32
		PricePoints uint32
	}
	parameters := paramsTuple{
		Gasprice:    uint32(p.Params.GasPrice.Uint64()),
		Gasreq:      p.Params.GasReq,
		StepSize:    p.Params.StepSize,
		PricePoints: p.Params.PricePoints,
	}
	data, err := c.kandelABI.Pack("populateFromOffset",
		big.NewInt(p.From),
		big.NewInt(p.To),
		big.NewInt(p.BaseQuoteTickIndex0),
		big.NewInt(p.TickOffset),
		big.NewInt(p.FirstAskIndex),
		orZero(p.BidGives),
		orZero(p.AskGives),
		parameters,
		orZero(p.BaseAmount),
		orZero(p.QuoteAmount),
	)
	if err != nil {
		return errors.Wrap(err, "pack populateFromOffset")
	}
	_, err = c.transact(ctx, position, data, p.Value)
	return err
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
