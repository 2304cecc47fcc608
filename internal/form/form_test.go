package form

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/mgvlab/kandel/internal/chain"
	"github.com/mgvlab/kandel/internal/tickmath"
	"github.com/mgvlab/kandel/internal/tokens"
)

type fakeReader struct {
	mu sync.Mutex

	params        chain.Params
	tickOffset    *big.Int
	firstAskTick  int64
	reserves      chain.Reserves
	offeredAsk    *big.Int
	offeredBid    *big.Int
	configs       chain.LocalConfigs
	configsErr    error
	perAsk        *big.Int
	perBid        *big.Int
	quoteErr      error
	freeBalance   *big.Int
	quoteCalls    int
	firstAskCalls int
}

func (r *fakeReader) StaticParams(context.Context, common.Address) (chain.StaticParams, error) {
	return chain.StaticParams{}, nil
}

func (r *fakeReader) Params(context.Context, common.Address) (chain.Params, error) {
	return r.params, nil
}

func (r *fakeReader) BaseQuoteTickOffset(context.Context, common.Address) (*big.Int, error) {
	return r.tickOffset, nil
}

func (r *fakeReader) FirstAskTick(context.Context, common.Address, int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.firstAskCalls++
	return r.firstAskTick, nil
}

func (r *fakeReader) Reserves(context.Context, common.Address) (chain.Reserves, error) {
	return r.reserves, nil
}

func (r *fakeReader) OfferedVolume(_ context.Context, _ common.Address, side chain.Side) (*big.Int, error) {
	if side == chain.Bids {
		return r.offeredBid, nil
	}
	return r.offeredAsk, nil
}

func (r *fakeReader) LocalConfigs(context.Context) (chain.LocalConfigs, error) {
	return r.configs, r.configsErr
}

func (r *fakeReader) ProvisionQuote(_ context.Context, side chain.Side, _ *big.Int) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quoteCalls++
	if r.quoteErr != nil {
		return nil, r.quoteErr
	}
	if side == chain.Bids {
		return new(big.Int).Set(r.perBid), nil
	}
	return new(big.Int).Set(r.perAsk), nil
}

func (r *fakeReader) FreeBalance(context.Context, common.Address) (*big.Int, error) {
	return new(big.Int).Set(r.freeBalance), nil
}

type fakeWriter struct {
	seeded    common.Address
	seedErr   error
	approvals []common.Address
	retracts  [][2]int64
	populates []chain.PopulateParams
	popErr    error
}

func (w *fakeWriter) Seed(context.Context) (common.Address, error) {
	return w.seeded, w.seedErr
}

func (w *fakeWriter) ApproveIfNeeded(_ context.Context, token, _ common.Address, _ *big.Int) error {
	w.approvals = append(w.approvals, token)
	return nil
}

func (w *fakeWriter) RetractOffers(_ context.Context, _ common.Address, from, to int64) error {
	w.retracts = append(w.retracts, [2]int64{from, to})
	return nil
}

func (w *fakeWriter) Populate(_ context.Context, _ common.Address, p chain.PopulateParams) error {
	if w.popErr != nil {
		return w.popErr
	}
	w.populates = append(w.populates, p)
	return nil
}

func testDeps(r *fakeReader, w *fakeWriter) Deps {
	return Deps{
		Reader: r,
		Writer: w,
		Market: chain.Market{
			Base:        common.HexToAddress("0x01"),
			Quote:       common.HexToAddress("0x02"),
			TickSpacing: big.NewInt(1),
		},
		BaseInfo:  tokens.Info{Symbol: "WETH", Decimals: 0},
		QuoteInfo: tokens.Info{Symbol: "USDC", Decimals: 0},
	}
}

func newCreateForm(r *fakeReader, w *fakeWriter) *Form {
	f := New(testDeps(r, w))
	f.recomputeWait = time.Millisecond
	f.SetMinPrice("0.99")
	f.SetMaxPrice("1.01")
	f.SetLevelsPerSide(8)
	f.SetStepSize(1)
	f.SetGasReq(160_000)
	f.SetBaseAmount("16")
	f.SetQuoteAmount("32")
	return f
}

func TestSubmitCreateDeploysAndPopulates(t *testing.T) {
	r := &fakeReader{
		perAsk:      big.NewInt(1000),
		perBid:      big.NewInt(2000),
		freeBalance: big.NewInt(0),
	}
	w := &fakeWriter{seeded: common.HexToAddress("0xabc")}
	f := newCreateForm(r, w)

	position, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if position != w.seeded {
		t.Fatalf("position = %s, want %s", position.Hex(), w.seeded.Hex())
	}
	if f.Status() != StatusSuccess {
		t.Fatalf("status = %s, want success", f.Status())
	}
	if len(w.approvals) != 2 {
		t.Fatalf("approvals = %d, want 2", len(w.approvals))
	}
	if len(w.retracts) != 0 {
		t.Fatalf("retracts = %d, want none on create", len(w.retracts))
	}
	if len(w.populates) != 1 {
		t.Fatalf("populates = %d, want 1", len(w.populates))
	}

	p := w.populates[0]
	if p.From != 0 || p.To != 16 {
		t.Fatalf("range = [%d,%d), want [0,16)", p.From, p.To)
	}
	if p.FirstAskIndex != 8 {
		t.Fatalf("firstAskIndex = %d, want 8", p.FirstAskIndex)
	}
	minTick, err := tickmath.MinPriceToTick(0.99)
	if err != nil {
		t.Fatalf("MinPriceToTick: %v", err)
	}
	maxTick, err := tickmath.MaxPriceToTick(1.01)
	if err != nil {
		t.Fatalf("MaxPriceToTick: %v", err)
	}
	wantOffset := (maxTick - minTick) / 15
	if p.TickOffset != wantOffset {
		t.Fatalf("tickOffset = %d, want %d", p.TickOffset, wantOffset)
	}
	if p.BaseQuoteTickIndex0 != minTick+8*wantOffset {
		t.Fatalf("index0 = %d, want %d", p.BaseQuoteTickIndex0, minTick+8*wantOffset)
	}
	if p.AskGives.Int64() != 2 || p.BidGives.Int64() != 4 {
		t.Fatalf("gives = ask %s / bid %s, want 2 / 4", p.AskGives, p.BidGives)
	}
	// Step 1 leaves one dead bid below the first ask: 8 asks, 7 bids.
	wantValue := int64(8*1000 + 7*2000)
	if p.Value.Int64() != wantValue {
		t.Fatalf("value = %s, want %d", p.Value, wantValue)
	}
	if p.Params.PricePoints != 16 || p.Params.StepSize != 1 {
		t.Fatalf("params = %+v", p.Params)
	}
	if p.BaseAmount.Int64() != 16 || p.QuoteAmount.Int64() != 32 {
		t.Fatalf("deposits = %s / %s, want 16 / 32", p.BaseAmount, p.QuoteAmount)
	}
}

func TestSubmitEditUntouchedPricesReuseExactTicks(t *testing.T) {
	position := common.HexToAddress("0xdef")
	r := &fakeReader{
		params: chain.Params{
			GasPrice:    big.NewInt(0),
			GasReq:      big.NewInt(160_000),
			StepSize:    1,
			PricePoints: 10,
		},
		tickOffset:   big.NewInt(10),
		firstAskTick: 50_000,
		reserves:     chain.Reserves{Base: big.NewInt(100), Quote: big.NewInt(0)},
		offeredAsk:   big.NewInt(50),
		offeredBid:   big.NewInt(0),
		perAsk:       big.NewInt(1000),
		perBid:       big.NewInt(2000),
		freeBalance:  big.NewInt(5000),
	}
	w := &fakeWriter{}
	f := New(testDeps(r, w))
	f.recomputeWait = time.Millisecond

	if err := f.LoadExisting(context.Background(), position); err != nil {
		t.Fatalf("LoadExisting: %v", err)
	}
	if !f.Editing() {
		t.Fatal("Editing() = false after LoadExisting")
	}
	if _, err := f.Submit(context.Background()); !errors.Is(err, ErrNothingToSubmit) {
		t.Fatalf("clean submit err = %v, want ErrNothingToSubmit", err)
	}

	f.SetGasReq(170_000)
	got, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got != position {
		t.Fatalf("position = %s, want %s", got.Hex(), position.Hex())
	}
	if len(w.retracts) != 0 {
		t.Fatalf("retracts = %d, want none for a gasreq-only edit", len(w.retracts))
	}
	if len(w.approvals) != 0 {
		t.Fatalf("approvals = %d, want none in reuse mode", len(w.approvals))
	}
	if len(w.populates) != 1 {
		t.Fatalf("populates = %d, want 1", len(w.populates))
	}

	p := w.populates[0]
	// Untouched price bounds must not go back through float parsing:
	// ticks 49950..50040 survive byte for byte.
	if p.BaseQuoteTickIndex0 != 50_000 || p.TickOffset != 10 {
		t.Fatalf("ticks = index0 %d offset %d, want 50000 / 10", p.BaseQuoteTickIndex0, p.TickOffset)
	}
	if p.FirstAskIndex != 5 || p.To != 10 {
		t.Fatalf("geometry = firstAsk %d to %d, want 5 / 10", p.FirstAskIndex, p.To)
	}
	if p.AskGives.Int64() != 20 {
		t.Fatalf("askGives = %s, want 20 (100 reserve over 5 levels)", p.AskGives)
	}
	if p.BidGives.Int64() != 1 {
		t.Fatalf("bidGives = %s, want the one-wei placeholder", p.BidGives)
	}
	if p.Params.GasReq.Uint64() != 170_000 {
		t.Fatalf("gasreq = %s, want 170000", p.Params.GasReq)
	}
	// 5 live asks and 4 live bids need 5*1000 + 4*2000 = 13000; the live
	// asks hold 5000 and the free balance covers another 5000.
	if p.Value.Int64() != 3000 {
		t.Fatalf("value = %s, want 3000", p.Value)
	}
}

func TestSubmitRetractsWhenStructureChanges(t *testing.T) {
	position := common.HexToAddress("0xdef")
	r := &fakeReader{
		params: chain.Params{
			GasPrice:    big.NewInt(0),
			GasReq:      big.NewInt(160_000),
			StepSize:    1,
			PricePoints: 10,
		},
		tickOffset:   big.NewInt(10),
		firstAskTick: 50_000,
		reserves:     chain.Reserves{Base: big.NewInt(100), Quote: big.NewInt(200)},
		offeredAsk:   big.NewInt(50),
		offeredBid:   big.NewInt(50),
		perAsk:       big.NewInt(1000),
		perBid:       big.NewInt(2000),
		freeBalance:  big.NewInt(0),
	}
	w := &fakeWriter{}
	f := New(testDeps(r, w))
	f.recomputeWait = time.Millisecond

	if err := f.LoadExisting(context.Background(), position); err != nil {
		t.Fatalf("LoadExisting: %v", err)
	}
	f.SetLevelsPerSide(4)
	if _, err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(w.retracts) != 1 {
		t.Fatalf("retracts = %d, want 1", len(w.retracts))
	}
	// The old ladder had 10 price points; all of them come down.
	if w.retracts[0] != [2]int64{0, 10} {
		t.Fatalf("retract range = %v, want [0,10)", w.retracts[0])
	}
	if len(w.populates) != 1 || w.populates[0].To != 8 {
		t.Fatalf("populate range end = %d, want 8", w.populates[0].To)
	}
}

func TestSubmitRejectsInvalidFields(t *testing.T) {
	r := &fakeReader{perAsk: big.NewInt(1), perBid: big.NewInt(1), freeBalance: big.NewInt(0)}
	w := &fakeWriter{}
	f := newCreateForm(r, w)
	f.SetMaxPrice("0.5")

	if _, err := f.Submit(context.Background()); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if len(w.populates) != 0 {
		t.Fatal("populate reached the chain despite validation errors")
	}
}

func TestSubmitRejectsBothSidesEmpty(t *testing.T) {
	r := &fakeReader{perAsk: big.NewInt(1), perBid: big.NewInt(1), freeBalance: big.NewInt(0)}
	w := &fakeWriter{}
	f := newCreateForm(r, w)
	f.SetBaseAmount("0")
	f.SetQuoteAmount("")

	if _, err := f.Submit(context.Background()); !errors.Is(err, ErrBothSidesEmpty) {
		t.Fatalf("err = %v, want ErrBothSidesEmpty", err)
	}
}

func TestSubmitFailureClassifiesAndRecovers(t *testing.T) {
	r := &fakeReader{perAsk: big.NewInt(1), perBid: big.NewInt(1), freeBalance: big.NewInt(0)}
	w := &fakeWriter{
		seeded: common.HexToAddress("0xabc"),
		popErr: errors.New("execution reverted: user rejected the request"),
	}
	f := newCreateForm(r, w)

	_, err := f.Submit(context.Background())
	if err == nil {
		t.Fatal("Submit succeeded, want wallet-cancel failure")
	}
	var serr *SubmitError
	if !errors.As(err, &serr) {
		t.Fatalf("err type = %T, want *SubmitError", err)
	}
	if serr.Message != "Transaction was canceled in the wallet." {
		t.Fatalf("message = %q", serr.Message)
	}
	if f.Status() != StatusFailed {
		t.Fatalf("status = %s, want failed", f.Status())
	}

	// A later edit leaves the failed state behind.
	f.SetGasReq(150_000)
	if got := f.Status(); got != StatusIdle && got != StatusValidating {
		t.Fatalf("status after edit = %s", got)
	}
}

func TestValidateFlagsFields(t *testing.T) {
	r := &fakeReader{perAsk: big.NewInt(1), perBid: big.NewInt(1), freeBalance: big.NewInt(0)}
	f := newCreateForm(r, &fakeWriter{})

	cases := []struct {
		name  string
		apply func()
		field Field
	}{
		{"inverted bounds", func() { f.SetMaxPrice("0.5") }, FieldMaxPrice},
		{"zero gasreq", func() { f.SetGasReq(0) }, FieldGasReq},
		{"step too wide", func() { f.SetStepSize(16) }, FieldStepSize},
		{"zero levels", func() { f.SetLevelsPerSide(0) }, FieldLevels},
		{"garbage amount", func() { f.SetBaseAmount("abc") }, FieldBase},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			saved := f.Fields()
			tc.apply()
			errs := f.Validate()
			if errs[tc.field] == "" {
				t.Fatalf("no error on %s, got %v", tc.field, errs)
			}
			f.SetMinPrice(saved.MinPrice)
			f.SetMaxPrice(saved.MaxPrice)
			f.SetLevelsPerSide(saved.LevelsPerSide)
			f.SetStepSize(saved.StepSize)
			f.SetGasReq(saved.GasReq)
			f.SetBaseAmount(saved.BaseAmount)
			if len(f.Validate()) != 0 {
				t.Fatalf("errors persist after restore: %v", f.Validate())
			}
		})
	}
}

func TestValidateMinimumVolumePerSide(t *testing.T) {
	r := &fakeReader{
		perAsk:      big.NewInt(1),
		perBid:      big.NewInt(1),
		freeBalance: big.NewInt(0),
		configs: chain.LocalConfigs{
			Ask: chain.LocalConfig{Active: true, Density: big.NewInt(0), OfferGasbase: big.NewInt(1000)},
			Bid: chain.LocalConfig{Active: true, Density: big.NewInt(1), OfferGasbase: big.NewInt(1000)},
		},
	}
	f := newCreateForm(r, &fakeWriter{})
	f.RefreshConfigs(context.Background())

	// Bid side needs density*(gasreq+gasbase) = 161000 per level; 4 per
	// level is far below it. The ask side's zero density always passes.
	errs := f.Validate()
	if errs[FieldQuote] == "" {
		t.Fatalf("no minimum-volume error on quote side, got %v", errs)
	}
	if errs[FieldBase] != "" {
		t.Fatalf("unexpected base-side error: %q", errs[FieldBase])
	}

	f.SetQuoteAmount("1288000")
	if errs := f.Validate(); len(errs) != 0 {
		t.Fatalf("sufficient quote amount still flagged: %v", errs)
	}
}

func TestValidateMinimumVolumeSkipsFallbackSide(t *testing.T) {
	position := common.HexToAddress("0xdef")
	r := &fakeReader{
		params: chain.Params{
			GasPrice:    big.NewInt(0),
			GasReq:      big.NewInt(160_000),
			StepSize:    1,
			PricePoints: 10,
		},
		tickOffset:   big.NewInt(10),
		firstAskTick: 50_000,
		reserves:     chain.Reserves{Base: big.NewInt(1_000_000_000), Quote: big.NewInt(0)},
		offeredAsk:   big.NewInt(50),
		offeredBid:   big.NewInt(0),
		perAsk:       big.NewInt(1),
		perBid:       big.NewInt(1),
		freeBalance:  big.NewInt(0),
		configs: chain.LocalConfigs{
			Ask: chain.LocalConfig{Active: true, Density: big.NewInt(1), OfferGasbase: big.NewInt(1000)},
			Bid: chain.LocalConfig{Active: true, Density: big.NewInt(1), OfferGasbase: big.NewInt(1000)},
		},
	}
	f := New(testDeps(r, &fakeWriter{}))
	f.recomputeWait = time.Millisecond
	f.RefreshConfigs(context.Background())

	if err := f.LoadExisting(context.Background(), position); err != nil {
		t.Fatalf("LoadExisting: %v", err)
	}
	// Reuse mode: the empty quote side runs on the one-wei placeholder,
	// which is exempt from the volume check even though it is far below
	// the bid minimum.
	if errs := f.Validate(); len(errs) != 0 {
		t.Fatalf("fallback side flagged: %v", errs)
	}
}

func TestEstimateDebouncesRapidEdits(t *testing.T) {
	r := &fakeReader{perAsk: big.NewInt(1000), perBid: big.NewInt(2000), freeBalance: big.NewInt(0)}
	f := New(testDeps(r, &fakeWriter{}))
	f.recomputeWait = 100 * time.Millisecond

	f.SetMinPrice("0.99")
	f.SetMaxPrice("1.01")
	f.SetLevelsPerSide(8)
	f.SetStepSize(1)
	f.SetGasReq(160_000)
	f.SetQuoteAmount("32")
	for _, amt := range []string{"1", "12", "120", "16"} {
		f.SetBaseAmount(amt)
	}
	deadline := time.Now().Add(2 * time.Second)
	for f.Estimate() == nil {
		if time.Now().After(deadline) {
			t.Fatal("estimate never resolved")
		}
		time.Sleep(5 * time.Millisecond)
	}

	r.mu.Lock()
	calls := r.quoteCalls
	r.mu.Unlock()
	if calls != 2 {
		t.Fatalf("quote calls = %d, want 2 (one ask, one bid, once)", calls)
	}

	est := f.Estimate()
	if est.AskCount != 8 || est.BidCount != 7 {
		t.Fatalf("counts = %d asks / %d bids, want 8 / 7", est.AskCount, est.BidCount)
	}
	if est.Total.Int64() != 8*1000+7*2000 {
		t.Fatalf("total = %s", est.Total)
	}
}

func TestEstimateClearedWhileInvalid(t *testing.T) {
	r := &fakeReader{perAsk: big.NewInt(1), perBid: big.NewInt(1), freeBalance: big.NewInt(0)}
	f := newCreateForm(r, &fakeWriter{})

	f.SetBaseAmount("8")
	deadline := time.Now().Add(2 * time.Second)
	for f.Estimate() == nil {
		if time.Now().After(deadline) {
			t.Fatal("estimate never resolved")
		}
		time.Sleep(2 * time.Millisecond)
	}

	f.SetMaxPrice("not a number")
	if f.Estimate() != nil {
		t.Fatal("estimate survived an invalid edit")
	}
}

func TestClassifyTxError(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"MetaMask Tx Signature: User denied transaction signature", "Transaction was canceled in the wallet."},
		{"insufficient funds for gas * price + value", "Not enough native balance to pay for this transaction."},
		{"replacement transaction underpriced", "Network gas price rose while submitting; please retry."},
		{"mgv/insufficient provision", "The attached provision is too small for the posted offers."},
		{"mgv/writeOffer/density/tooLow: below density", "An offer is below the market's minimum volume."},
	}
	for _, tc := range cases {
		got := classifyTxError(errors.New(tc.raw))
		if got.Message != tc.want {
			t.Fatalf("classify(%q) = %q, want %q", tc.raw, got.Message, tc.want)
		}
	}

	raw := classifyTxError(errors.New("something nobody anticipated"))
	if !strings.Contains(raw.Message, "something nobody anticipated") {
		t.Fatalf("fallback message = %q", raw.Message)
	}
}
