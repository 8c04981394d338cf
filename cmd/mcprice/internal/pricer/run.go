// Package pricer runs many independent accounting-engine paths and aggregates
// them into price estimates.
package pricer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/meenmo/marketmodel/internal/runconfig"
	"github.com/meenmo/marketmodel/marketmodel"
	"github.com/meenmo/marketmodel/marketmodel/config"
	"github.com/meenmo/marketmodel/marketmodel/evolver"
)

// Result holds per-product estimates per unit notional.
type Result struct {
	Product string
	Measure string
	Paths   int
	Seed    uint64
	Means   []float64
	StdErrs []float64
	// Total is the value of the whole strip.
	Total float64
	// Black is the analytic caplet price per period; nil for other products.
	Black   []float64
	Elapsed time.Duration
}

// Run values cfg.Simulation.Paths paths on cfg.Simulation.Workers goroutines.
//
// Each worker owns its evolver, product and engine; the evolution description
// and discounters are shared read-only. Worker w draws from seed+w and values
// paths w, w+workers, w+2*workers, ... so a run is reproducible for a given
// seed and worker count.
func Run(ctx context.Context, cfg runconfig.Config, model *Model, log *slog.Logger) (Result, error) {
	if log == nil {
		log = slog.Default()
	}
	sim := cfg.Simulation
	workers := min(sim.Workers, sim.Paths)
	engineCfg := config.GetConfig()
	engineCfg.MaxStepsPerPath = sim.MaxStepsPerPath
	var err error

	products := make([]marketmodel.Product, workers)
	for w := range products {
		if products[w], err = NewProduct(cfg.Product, model.Evolution); err != nil {
			return Result{}, fmt.Errorf("pricer.Run: %w", err)
		}
	}
	// discounters are built once and shared by every engine
	discounters, err := marketmodel.NewDiscounters(products[0].PossibleCashFlowTimes(), model.Evolution.RateTimes())
	if err != nil {
		return Result{}, fmt.Errorf("pricer.Run: %w", err)
	}

	nProducts := model.Evolution.NumberOfRates()
	values := make([]float64, sim.Paths*nProducts)
	weights := make([]float64, sim.Paths)

	start := time.Now()
	log.Info("simulation started",
		slog.Int("paths", sim.Paths),
		slog.Int("workers", workers),
		slog.Int("steps", model.Evolution.NumberOfSteps()),
		slog.String("product", cfg.Product.Type),
		slog.String("measure", cfg.Model.Measure),
	)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		ev, err := evolver.NewLogNormal(model.Evolution, model.InitialForwards, model.Volatilities, sim.Seed+uint64(w))
		if err != nil {
			return Result{}, fmt.Errorf("pricer.Run: %w", err)
		}
		engine, err := marketmodel.NewAccountingEngine(ev, products[w], model.Evolution, model.InitialNumeraireValue,
			marketmodel.WithLogger(log),
			marketmodel.WithConfig(engineCfg),
			marketmodel.WithDiscounters(discounters),
		)
		if err != nil {
			return Result{}, fmt.Errorf("pricer.Run: %w", err)
		}

		g.Go(func() error {
			for p := w; p < sim.Paths; p += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				weight, err := engine.SinglePathValues(values[p*nProducts : (p+1)*nProducts])
				if err != nil {
					return fmt.Errorf("path %d: %w", p, err)
				}
				weights[p] = weight
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("pricer.Run: %w", err)
	}

	res := Result{
		Product: cfg.Product.Type,
		Measure: cfg.Model.Measure,
		Paths:   sim.Paths,
		Seed:    sim.Seed,
		Means:   make([]float64, nProducts),
		StdErrs: make([]float64, nProducts),
		Elapsed: time.Since(start),
	}
	column := make([]float64, sim.Paths)
	for i := 0; i < nProducts; i++ {
		for p := range column {
			column[p] = values[p*nProducts+i]
		}
		mean, std := stat.MeanStdDev(column, weights)
		res.Means[i] = mean
		res.StdErrs[i] = stat.StdErr(std, float64(sim.Paths))
	}
	res.Total = floats.Sum(res.Means)

	if strings.EqualFold(cfg.Product.Type, "caplets") {
		strikes, err := Strikes(cfg.Product, nProducts)
		if err != nil {
			return Result{}, fmt.Errorf("pricer.Run: %w", err)
		}
		res.Black = model.BlackReference(strikes)
	}

	log.Info("simulation finished",
		slog.Duration("elapsed", res.Elapsed),
		slog.Float64("total", res.Total),
	)
	return res, nil
}
