// kandelctl manages grid-trading positions from the command line: deploy a
// new position, edit a running one, inspect it, or wind it down.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"

	"github.com/mgvlab/kandel/internal/chain"
	"github.com/mgvlab/kandel/internal/form"
	"github.com/mgvlab/kandel/internal/notify"
	"github.com/mgvlab/kandel/internal/store"
	"github.com/mgvlab/kandel/internal/tokens"
	"github.com/mgvlab/kandel/pkg/config"
	"github.com/mgvlab/kandel/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// A missing .env is normal; plain environment variables work too.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "create":
		err = runCreate(ctx, os.Args[2:])
	case "edit":
		err = runEdit(ctx, os.Args[2:])
	case "view":
		err = runView(ctx, os.Args[2:])
	case "close":
		err = runClose(ctx, os.Args[2:])
	case "list":
		err = runList(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: kandelctl <command> [flags]

commands:
  create   deploy a new position and populate its ladder
  edit     change a running position's ladder or inventory
  view     print a position's on-chain state
  close    retract all offers of a position
  list     list positions recorded for the configured wallet`)
}

// env wires the shared collaborators every command needs.
type env struct {
	cfg    *config.Config
	client *chain.Client
	store  *store.PositionStore
}

func setup(configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Log); err != nil {
		return nil, err
	}

	rawKey := os.Getenv("KANDEL_PRIVATE_KEY")
	if rawKey == "" {
		return nil, fmt.Errorf("KANDEL_PRIVATE_KEY is required")
	}
	key, err := crypto.HexToECDSA(rawKey)
	if err != nil {
		return nil, fmt.Errorf("parse KANDEL_PRIVATE_KEY: %w", err)
	}

	client, err := chain.NewClient(chain.Options{
		RPCURL:     cfg.Chain.RPCURL,
		ChainID:    cfg.Chain.ChainID,
		PrivateKey: key,
		Mangrove:   common.HexToAddress(cfg.Chain.Mangrove),
		Reader:     common.HexToAddress(cfg.Chain.Reader),
		Seeder:     common.HexToAddress(cfg.Chain.KandelSeeder),
		Market: chain.Market{
			Base:        common.HexToAddress(cfg.Market.Base),
			Quote:       common.HexToAddress(cfg.Market.Quote),
			TickSpacing: big.NewInt(cfg.Market.TickSpacing),
		},
	})
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, client: client, store: st}, nil
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		logger.Warnf("closing position store: %v", err)
	}
}

// newForm builds a form over the shared collaborators, resolving token
// metadata for amount parsing on the way.
func (e *env) newForm(ctx context.Context) (*form.Form, error) {
	var opts []tokens.Option
	if e.cfg.TokenListURL != "" {
		opts = append(opts, tokens.WithTokenList(e.cfg.TokenListURL))
	}
	registry := tokens.NewRegistry(e.client, opts...)

	market := e.client.MarketInfo()
	baseInfo, err := registry.Resolve(ctx, market.Base)
	if err != nil {
		return nil, err
	}
	quoteInfo, err := registry.Resolve(ctx, market.Quote)
	if err != nil {
		return nil, err
	}

	f := form.New(form.Deps{
		Reader:    e.client,
		Writer:    e.client,
		Notifier:  notify.NewLogNotifier(),
		Market:    market,
		BaseInfo:  baseInfo,
		QuoteInfo: quoteInfo,
	})
	f.RefreshConfigs(ctx)
	return f, nil
}

type gridFlags struct {
	minPrice string
	maxPrice string
	levels   int
	step     int
	gasreq   uint64
	base     string
	quote    string
	topUp    bool
}

func (g *gridFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.minPrice, "min", "", "lowest grid price")
	fs.StringVar(&g.maxPrice, "max", "", "highest grid price")
	fs.IntVar(&g.levels, "levels", 5, "price levels per side")
	fs.IntVar(&g.step, "step", 1, "dual offer step size")
	fs.Uint64Var(&g.gasreq, "gasreq", 160_000, "gas per offer execution")
	fs.StringVar(&g.base, "base", "", "base token amount to deposit")
	fs.StringVar(&g.quote, "quote", "", "quote token amount to deposit")
	fs.BoolVar(&g.topUp, "top-up", false, "add typed amounts on top of existing reserves")
}

func runCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "configuration file")
	var g gridFlags
	g.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	f, err := e.newForm(ctx)
	if err != nil {
		return err
	}
	f.SetMinPrice(g.minPrice)
	f.SetMaxPrice(g.maxPrice)
	f.SetLevelsPerSide(g.levels)
	f.SetStepSize(g.step)
	f.SetGasReq(g.gasreq)
	f.SetBaseAmount(g.base)
	f.SetQuoteAmount(g.quote)

	if errs := f.Validate(); len(errs) > 0 {
		return fieldErrors(errs)
	}
	position, err := f.Submit(ctx)
	if err != nil {
		return err
	}

	market := e.client.MarketInfo()
	rec := store.Record{
		Address:   position,
		Owner:     e.client.Sender(),
		Base:      market.Base,
		Quote:     market.Quote,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.Save(rec); err != nil {
		logger.Warnf("position deployed at %s but not recorded: %v", position.Hex(), err)
	}
	fmt.Println("position deployed:", position.Hex())
	return nil
}

func runEdit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "configuration file")
	positionArg := fs.String("position", "", "position contract address")
	var g gridFlags
	g.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *positionArg == "" {
		return fmt.Errorf("edit: -position is required")
	}

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	f, err := e.newForm(ctx)
	if err != nil {
		return err
	}
	if err := f.LoadExisting(ctx, common.HexToAddress(*positionArg)); err != nil {
		return err
	}

	// Only flags the user actually passed override the loaded values, so
	// an edit touching one knob leaves the rest of the ladder alone.
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "min":
			f.SetMinPrice(g.minPrice)
		case "max":
			f.SetMaxPrice(g.maxPrice)
		case "levels":
			f.SetLevelsPerSide(g.levels)
		case "step":
			f.SetStepSize(g.step)
		case "gasreq":
			f.SetGasReq(g.gasreq)
		case "base":
			f.SetBaseAmount(g.base)
		case "quote":
			f.SetQuoteAmount(g.quote)
		case "top-up":
			f.SetAddInventory(g.topUp)
		}
	})

	if errs := f.Validate(); len(errs) > 0 {
		return fieldErrors(errs)
	}
	position, err := f.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Println("position updated:", position.Hex())
	return nil
}

func runView(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "configuration file")
	positionArg := fs.String("position", "", "position contract address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *positionArg == "" {
		return fmt.Errorf("view: -position is required")
	}

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	position := common.HexToAddress(*positionArg)
	params, err := e.client.Params(ctx, position)
	if err != nil {
		return err
	}
	offset, err := e.client.BaseQuoteTickOffset(ctx, position)
	if err != nil {
		return err
	}
	reserves, err := e.client.Reserves(ctx, position)
	if err != nil {
		return err
	}
	askVol, err := e.client.OfferedVolume(ctx, position, chain.Asks)
	if err != nil {
		return err
	}
	bidVol, err := e.client.OfferedVolume(ctx, position, chain.Bids)
	if err != nil {
		return err
	}
	free, err := e.client.FreeBalance(ctx, position)
	if err != nil {
		return err
	}

	fmt.Println("position:      ", position.Hex())
	fmt.Println("price points:  ", params.PricePoints)
	fmt.Println("step size:     ", params.StepSize)
	fmt.Println("gasreq:        ", params.GasReq)
	fmt.Println("tick offset:   ", offset)
	fmt.Println("base reserve:  ", reserves.Base)
	fmt.Println("quote reserve: ", reserves.Quote)
	fmt.Println("ask volume:    ", askVol)
	fmt.Println("bid volume:    ", bidVol)
	fmt.Println("free provision:", free)
	return nil
}

func runClose(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("close", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "configuration file")
	positionArg := fs.String("position", "", "position contract address")
	forget := fs.Bool("forget", false, "also remove the position from the local list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *positionArg == "" {
		return fmt.Errorf("close: -position is required")
	}

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	position := common.HexToAddress(*positionArg)
	params, err := e.client.Params(ctx, position)
	if err != nil {
		return err
	}
	if err := e.client.RetractOffers(ctx, position, 0, int64(params.PricePoints)); err != nil {
		return err
	}
	fmt.Printf("retracted %d offers on %s\n", params.PricePoints, position.Hex())

	if *forget {
		if err := e.store.Delete(e.client.Sender(), position); err != nil {
			return err
		}
	}
	return nil
}

func runList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	records, err := e.store.List(e.client.Sender())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no recorded positions")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%s  base=%s quote=%s created=%s\n",
			rec.Address.Hex(), rec.Base.Hex(), rec.Quote.Hex(),
			rec.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func fieldErrors(errs form.FieldErrors) error {
	for field, msg := range errs {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", field, msg)
	}
	return fmt.Errorf("invalid input")
}
