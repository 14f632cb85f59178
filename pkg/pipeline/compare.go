package pipeline

import (
	"fmt"

	"github.com/itohio/godaq/pkg/filter"
	"github.com/itohio/godaq/pkg/table"
)

// Variant is one cutoff/order pair to compare.
type Variant struct {
	CutoffHz float64
	Order    int
}

func (v Variant) String() string {
	return fmt.Sprintf("%gHz, order %d", v.CutoffHz, v.Order)
}

// Grid returns every combination of cutoffs and orders, cutoff major.
func Grid(cutoffs []float64, orders []int) []Variant {
	out := make([]Variant, 0, len(cutoffs)*len(orders))
	for _, c := range cutoffs {
		for _, o := range orders {
			out = append(out, Variant{CutoffHz: c, Order: o})
		}
	}
	return out
}

// DefaultVariants is the 2x2 grid of 1Hz and 2Hz against orders 2 and 4.
func DefaultVariants() []Variant {
	return Grid([]float64{1, 2}, []int{2, 4})
}

// Comparison is one variant applied to a channel.
type Comparison struct {
	Variant Variant
	Spec    filter.Spec
	Values  []float64
	Err     error
}

// Compare applies each variant to one channel without modifying tbl.
// Variants that fail carry their error; the rest are still computed.
func Compare(tbl *table.CleanTable, channel string, sampleRateHz float64, variants []Variant) ([]Comparison, error) {
	if tbl.Len() == 0 {
		return nil, ErrNoData
	}

	raw, err := tbl.Column(channel)
	if err != nil {
		return nil, err
	}

	fs, _, err := SampleRate(tbl, sampleRateHz)
	if err != nil {
		return nil, err
	}

	out := make([]Comparison, len(variants))
	for i, v := range variants {
		out[i] = Comparison{
			Variant: v,
			Spec:    filter.Spec{CutoffHz: v.CutoffHz, Order: v.Order, SampleRateHz: fs},
		}
		coefs, err := filter.Design(out[i].Spec)
		if err != nil {
			out[i].Err = err
			continue
		}
		out[i].Values, out[i].Err = filter.FiltFilt(coefs, raw)
	}
	return out, nil
}
