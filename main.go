package main

import (
	"fmt"

	"github.com/meenmo/marketmodel/curve"
	"github.com/meenmo/marketmodel/marketmodel"
	"github.com/meenmo/marketmodel/marketmodel/evolver"
	"github.com/meenmo/marketmodel/marketmodel/products"
)

func main() {
	// semi-annual grid out to 5y on a sloped curve
	rateTimes := []float64{0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5}
	crv, err := curve.NewCurveFromDFs(
		[]float64{0.5, 1, 2, 3, 5},
		[]float64{0.98760, 0.97450, 0.94700, 0.91820, 0.85930},
	)
	if err != nil {
		panic(err)
	}
	forwards, err := crv.ForwardRates(rateTimes)
	if err != nil {
		panic(err)
	}

	evolutionTimes := marketmodel.DefaultEvolutionTimes(rateTimes)
	numeraires := marketmodel.TerminalMeasure(rateTimes, evolutionTimes)
	evolution, err := marketmodel.NewEvolutionDescription(rateTimes, evolutionTimes, numeraires)
	if err != nil {
		panic(err)
	}

	vols := make([]float64, len(forwards))
	for i := range vols {
		vols[i] = 0.20
	}
	caplets, err := products.NewCaplets(evolution, forwards)
	if err != nil {
		panic(err)
	}
	ev, err := evolver.NewLogNormal(evolution, forwards, vols, 42)
	if err != nil {
		panic(err)
	}
	engine, err := marketmodel.NewAccountingEngine(ev, caplets, evolution, crv.DF(rateTimes[numeraires[0]]))
	if err != nil {
		panic(err)
	}

	const paths = 20000
	sums := make([]float64, engine.NumberOfProducts())
	values := make([]float64, engine.NumberOfProducts())
	for p := 0; p < paths; p++ {
		if _, err := engine.SinglePathValues(values); err != nil {
			panic(err)
		}
		for i, v := range values {
			sums[i] += v
		}
	}

	const notional = 10_000_000
	fmt.Printf("%-8s %10s %14s %14s\n", "expiry", "forward", "monte carlo", "black")
	for k := range sums {
		tau := rateTimes[k+1] - rateTimes[k]
		black := products.BlackCaplet(crv.DF(rateTimes[k+1]), tau, forwards[k], forwards[k], vols[k], rateTimes[k])
		fmt.Printf("%-8.2f %9.4f%% %14.2f %14.2f\n", rateTimes[k], forwards[k]*100, sums[k]/paths*notional, black*notional)
	}
}
