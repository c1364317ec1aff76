package qc

import "math"

const (
	mudMinPressure   = 100.0 // dbar
	mudWindow        = 10
	mudFlatDiff      = 0.005 // °C per sample
	mudMinFlat       = 10
	mudMaxAscentFlat = 2
	mudWholeFraction = 0.9
)

// checkMud detects a descent trace that sat in sediment: the deep part of
// the descent is thermally flat while the ascent through the same depths is
// not. The flag is advisory and does not touch the combined flag.
func checkMud(b *battery) []FlagCode {
	out := fill(b.n(), Pass)
	if maxOf(b.pressure) < mudMinPressure {
		return out
	}

	descent := b.phaseIndices(Descent)
	ascent := b.phaseIndices(Ascent)
	if len(descent) == 0 || len(ascent) == 0 {
		return out
	}

	diff := make([]float64, b.n())
	diff[0] = math.NaN()
	for i := 1; i < b.n(); i++ {
		diff[i] = b.temperature[i] - b.temperature[i-1]
	}

	deepDescent := b.deepHalf(descent)
	flatDescent := flatPoints(deepDescent, diff)
	flatAscent := flatPoints(b.deepHalf(ascent), diff)
	if len(flatDescent) < mudMinFlat || len(flatAscent) >= mudMaxAscentFlat {
		return out
	}

	if float64(len(flatDescent))/float64(len(deepDescent)) > mudWholeFraction {
		for _, i := range descent {
			out[i] = Suspect
		}
		return out
	}

	// Walk the rest of the descent against the ascent from the shallow end
	// until both traces agree; everything before that point is suspect.
	lastFlat := flatDescent[len(flatDescent)-1]
	var rest []int
	for _, i := range descent {
		if i > lastFlat+1 {
			rest = append(rest, i)
		}
	}
	if len(rest) == 0 {
		return out
	}
	restMax := maxOf(pick(b.pressure, rest))

	var reference []int
	for k := len(ascent) - 1; k >= 0; k-- {
		if b.pressure[ascent[k]] < restMax {
			reference = append(reference, ascent[k])
		}
	}

	intersection := -1
	for k := 0; k < len(rest) && k < len(reference); k++ {
		if b.temperature[reference[k]] <= b.temperature[rest[k]] {
			intersection = rest[k]
			break
		}
	}
	if intersection < 0 {
		return out
	}
	for _, i := range descent {
		if i < intersection {
			out[i] = Suspect
		}
	}
	return out
}

func (b *battery) phaseIndices(p Phase) []int {
	var idx []int
	for i, ph := range b.phases {
		if ph == p {
			idx = append(idx, i)
		}
	}
	return idx
}

// deepHalf keeps the indices deeper than half the maximum pressure among them.
func (b *battery) deepHalf(idx []int) []int {
	half := maxOf(pick(b.pressure, idx)) / 2
	var out []int
	for _, i := range idx {
		if b.pressure[i] > half {
			out = append(out, i)
		}
	}
	return out
}

// flatPoints returns the indices whose rolling mean temperature difference,
// taken over the idx sequence, is below the flat threshold.
func flatPoints(idx []int, diff []float64) []int {
	rolled := centeredMean(pick(diff, idx), mudWindow, 1)
	var out []int
	for k, i := range idx {
		if math.Abs(rolled[k]) < mudFlatDiff {
			out = append(out, i)
		}
	}
	return out
}
