package balance

import (
	"gonum.org/v1/gonum/stat"

	"github.com/mkarlsson/edge-offload-engine/pkg/models"
)

// Aggregator accumulates per-run outcomes and reports averaged metrics
// across an experiment.
type Aggregator struct {
	delays   []float64
	energies []float64
	balances []float64
}

// Summary holds averaged experiment metrics.
type Summary struct {
	Runs        int     `json:"runs"`
	MeanDelay   float64 `json:"mean_delay"`
	MeanEnergy  float64 `json:"mean_energy"`
	MeanBalance float64 `json:"mean_balance"`
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Add records one run's outcome.
func (a *Aggregator) Add(o models.Outcome) {
	a.delays = append(a.delays, o.Delay)
	a.energies = append(a.energies, o.Energy)
	a.balances = append(a.balances, o.Balance)
}

// Count returns the number of recorded outcomes.
func (a *Aggregator) Count() int {
	return len(a.delays)
}

// Summary returns the averaged metrics over all recorded outcomes.
// An empty aggregator yields a zero summary.
func (a *Aggregator) Summary() Summary {
	if len(a.delays) == 0 {
		return Summary{}
	}
	return Summary{
		Runs:        len(a.delays),
		MeanDelay:   stat.Mean(a.delays, nil),
		MeanEnergy:  stat.Mean(a.energies, nil),
		MeanBalance: stat.Mean(a.balances, nil),
	}
}

// Reset clears all recorded outcomes.
func (a *Aggregator) Reset() {
	a.delays = a.delays[:0]
	a.energies = a.energies[:0]
	a.balances = a.balances[:0]
}
