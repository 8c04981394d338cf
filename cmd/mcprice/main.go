package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/leekchan/accounting"
	"github.com/shopspring/decimal"

	"github.com/meenmo/marketmodel/cmd/mcprice/internal/pricer"
	"github.com/meenmo/marketmodel/internal/logger"
	"github.com/meenmo/marketmodel/internal/runconfig"
	"github.com/meenmo/marketmodel/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// PricingOutput is the JSON result; money values are rounded to cents.
type PricingOutput struct {
	Product  string          `json:"product"`
	Measure  string          `json:"measure"`
	Paths    int             `json:"paths"`
	Seed     uint64          `json:"seed"`
	Notional float64         `json:"notional"`
	Periods  []PeriodOutput  `json:"periods"`
	Total    decimal.Decimal `json:"total"`
	Error    string          `json:"error,omitempty"`
}

type PeriodOutput struct {
	Index  int              `json:"index"`
	Value  decimal.Decimal  `json:"value"`
	StdErr decimal.Decimal  `json:"std_err"`
	Black  *decimal.Decimal `json:"black,omitempty"`
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mcprice", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "run config path (yaml, json or toml)")
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	help := fs.Bool("h", false, "Show help")
	fs.BoolVar(help, "help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		usage(stdout)
		return 0
	}

	cfg, err := runconfig.Load(strings.TrimSpace(*configPath))
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}
	log, logCloser, err := logger.New(cfg.Logger, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return 2
	}
	defer logCloser.Close()

	model, err := pricer.BuildModel(cfg)
	if err != nil {
		return fail(stdout, stderr, *asJSON, err)
	}
	res, err := pricer.Run(ctx, cfg, model, log)
	if err != nil {
		return fail(stdout, stderr, *asJSON, err)
	}

	if cfg.Store.DSN != "" {
		if err := save(ctx, cfg.Store, res); err != nil {
			log.Error("store run summary", slog.String("error", err.Error()))
			return 1
		}
		log.Info("run summary stored", slog.String("table", cfg.Store.Table))
	}

	if *asJSON {
		out, _ := json.Marshal(toOutput(res, cfg.Product.Notional))
		fmt.Fprintln(stdout, string(out))
		return 0
	}
	printTable(stdout, res, cfg.Product.Notional)
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  mcprice -config run.yaml [-json]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Simulate a one-factor log-normal forward-rate model and value a strip of")
	fmt.Fprintln(w, "caplets or FRAs path by path. Settings can be overridden with MCPRICE_*")
	fmt.Fprintln(w, "environment variables, e.g. MCPRICE_SIMULATION_PATHS=50000.")
}

func fail(stdout, stderr io.Writer, asJSON bool, err error) int {
	if asJSON {
		out, _ := json.Marshal(PricingOutput{Error: err.Error()})
		fmt.Fprintln(stdout, string(out))
	} else {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return 1
}

func money(v, notional float64) decimal.Decimal {
	return decimal.NewFromFloat(v * notional).Round(2)
}

func toOutput(res pricer.Result, notional float64) PricingOutput {
	out := PricingOutput{
		Product:  res.Product,
		Measure:  res.Measure,
		Paths:    res.Paths,
		Seed:     res.Seed,
		Notional: notional,
		Periods:  make([]PeriodOutput, len(res.Means)),
		Total:    money(res.Total, notional),
	}
	for i := range res.Means {
		p := PeriodOutput{
			Index:  i,
			Value:  money(res.Means[i], notional),
			StdErr: money(res.StdErrs[i], notional),
		}
		if res.Black != nil {
			b := money(res.Black[i], notional)
			p.Black = &b
		}
		out.Periods[i] = p
	}
	return out
}

func printTable(w io.Writer, res pricer.Result, notional float64) {
	ac := accounting.Accounting{Symbol: "", Precision: 2}
	fmt.Fprintf(w, "%s under %s measure, %d paths (seed %d, %s)\n",
		res.Product, res.Measure, res.Paths, res.Seed, res.Elapsed.Round(time.Millisecond))
	if res.Black != nil {
		fmt.Fprintf(w, "%6s %18s %14s %18s\n", "period", "value", "std err", "black")
	} else {
		fmt.Fprintf(w, "%6s %18s %14s\n", "period", "value", "std err")
	}
	for i, m := range res.Means {
		if res.Black != nil {
			fmt.Fprintf(w, "%6d %18s %14s %18s\n", i,
				ac.FormatMoney(m*notional), ac.FormatMoney(res.StdErrs[i]*notional), ac.FormatMoney(res.Black[i]*notional))
			continue
		}
		fmt.Fprintf(w, "%6d %18s %14s\n", i, ac.FormatMoney(m*notional), ac.FormatMoney(res.StdErrs[i]*notional))
	}
	fmt.Fprintf(w, "%6s %18s\n", "total", ac.FormatMoney(res.Total*notional))
}

func save(ctx context.Context, cfg runconfig.StoreConfig, res pricer.Result) error {
	pg, err := store.Open(cfg.DSN, cfg.Table)
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := pg.EnsureSchema(ctx); err != nil {
		return err
	}
	summary := store.Summary{
		RunAt:   time.Now().UTC(),
		Product: res.Product,
		Measure: res.Measure,
		Paths:   res.Paths,
		Seed:    res.Seed,
		Values:  make([]store.ProductValue, len(res.Means)),
	}
	for i := range res.Means {
		summary.Values[i] = store.ProductValue{Index: i, Mean: res.Means[i], StdErr: res.StdErrs[i]}
	}
	return pg.Save(ctx, summary)
}
