package qc

import "fmt"

// Aggregation selects how contributing checks combine into the per-sample
// flag.
type Aggregation int

const (
	// AggregateOverwrite lets every triggered contributing check overwrite
	// the combined flag in pipeline order, so the last check that matched a
	// sample decides it, even when an earlier check failed the sample.
	AggregateOverwrite Aggregation = iota
	// AggregateWorstCase keeps the most severe code any contributing check
	// assigned.
	AggregateWorstCase
)

func (a Aggregation) String() string {
	switch a {
	case AggregateWorstCase:
		return "worst-case"
	default:
		return "overwrite"
	}
}

// ParseAggregation accepts "overwrite" (or empty) and "worst-case".
func ParseAggregation(s string) (Aggregation, error) {
	switch s {
	case "", "overwrite":
		return AggregateOverwrite, nil
	case "worst-case", "worstcase", "max":
		return AggregateWorstCase, nil
	}
	return AggregateOverwrite, fmt.Errorf("unknown aggregation policy %q", s)
}

// merge folds one check's result into combined.
func (a Aggregation) merge(combined, result []FlagCode) {
	for i, f := range result {
		if f == Pass {
			continue
		}
		switch a {
		case AggregateWorstCase:
			if f > combined[i] {
				combined[i] = f
			}
		default:
			combined[i] = f
		}
	}
}
