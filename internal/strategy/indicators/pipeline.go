package indicators

import (
	"math"
	"time"

	"wickrSignals/internal/domain"
	"wickrSignals/internal/ports"
)

// Row holds the derived values for one candle.
// Values contains only fields whose family had enough history at this candle.
type Row struct {
	Timestamp time.Time
	Close     float64
	Values    map[string]float64
}

// Value returns a field and whether it is defined at this row.
func (r Row) Value(name string) (float64, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// Snapshot is the column union of every configured family, one row per candle.
type Snapshot struct {
	Columns []string
	Rows    []Row
}

// HasColumn reports whether a family produced the column.
func (s Snapshot) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Pipeline runs a fixed, ordered list of indicator families over a candle window.
// It holds no state between calls.
type Pipeline struct {
	families []Family
	lookback int
	columns  []string
}

// NewPipeline resolves the configured families once, in a fixed order.
// Missing parameter blocks fall back to the defaults.
func NewPipeline(params Params) (*Pipeline, error) {
	params = params.withDefaults()

	families := make([]Family, 0, len(familyOrder))
	for _, name := range familyOrder {
		family, err := registry[name](params)
		if err != nil {
			return nil, err
		}
		families = append(families, family)
	}
	return NewPipelineWith(families...), nil
}

// NewPipelineWith builds a pipeline from explicit families, keeping their order.
func NewPipelineWith(families ...Family) *Pipeline {
	p := &Pipeline{families: families}
	for _, f := range families {
		p.columns = append(p.columns, f.Columns()...)
		if l := f.RequiredLookback(); l > p.lookback {
			p.lookback = l
		}
	}
	return p
}

// RequiredLookback returns the longest lookback across all families.
func (p *Pipeline) RequiredLookback() int { return p.lookback }

// Columns returns every column the pipeline can produce, in family order.
func (p *Pipeline) Columns() []string {
	out := make([]string, len(p.columns))
	copy(out, p.columns)
	return out
}

// Compute derives the snapshot for the window.
// It fails with *ports.InsufficientDataError for the first family whose lookback
// exceeds the window length.
func (p *Pipeline) Compute(candles []domain.Candle) (Snapshot, error) {
	for _, f := range p.families {
		if required := f.RequiredLookback(); len(candles) < required {
			return Snapshot{}, &ports.InsufficientDataError{
				Indicator: f.Name(),
				Required:  required,
				Available: len(candles),
			}
		}
	}

	rows := make([]Row, len(candles))
	for i, c := range candles {
		rows[i] = Row{Timestamp: c.OpenTime, Close: c.Close, Values: make(map[string]float64)}
	}

	for _, f := range p.families {
		for col, series := range f.Compute(candles) {
			for i, v := range series {
				if i >= len(rows) || math.IsNaN(v) || math.IsInf(v, 0) {
					continue
				}
				rows[i].Values[col] = v
			}
		}
	}

	kept := rows[:0]
	for _, r := range rows {
		if len(r.Values) > 0 {
			kept = append(kept, r)
		}
	}

	columns := make([]string, len(p.columns))
	copy(columns, p.columns)
	return Snapshot{Columns: columns, Rows: kept}, nil
}
