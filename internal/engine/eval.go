package engine

import (
	"math"
	"time"
)

// evalMode selects whether a Sleep equation performs its wall-clock delay.
// Every other kind behaves identically in both modes; the mode flag never
// branches any other operator, matching the teacher's policy of modeling
// evaluation as a single code path with one exception rather than a second
// evaluator per entry point.
type evalMode bool

const (
	silent     evalMode = false
	observable evalMode = true
)

// evaluate computes eq's value against the current sheet state. In silent
// mode Sleep never blocks; in observable mode Sleep blocks the caller for
// the computed duration before returning. No other entry point in this
// package ever passes observable except the one outermost call the shell
// makes after a rebind has finished recomputing its closure.
func evaluate(eq Equation, sheet *Sheet, mode evalMode) Value {
	switch eq.Kind {
	case KindNul:
		return Int(0)
	case KindAdd, KindSub, KindMul, KindDiv:
		return evalArithmetic(eq)
	case KindMin, KindMax, KindSum, KindAvg, KindStdev:
		return evalRange(eq.Kind, sheet.rectangle(eq.Operands[0].(*Cell).coord, eq.Operands[1].(*Cell).coord))
	case KindSleep:
		return evalSleep(eq, mode)
	default:
		panic("engine: unknown equation kind " + string(eq.Kind))
	}
}

func evalArithmetic(eq Equation) Value {
	a := eq.Operands[0].Value()
	b := eq.Operands[1].Value()
	if a.IsErr() || b.IsErr() {
		return ErrValue
	}
	switch eq.Kind {
	case KindAdd:
		return Int(a.N + b.N)
	case KindSub:
		return Int(a.N - b.N)
	case KindMul:
		return Int(a.N * b.N)
	case KindDiv:
		if b.N == 0 {
			return ErrValue
		}
		return Int(a.N / b.N)
	default:
		panic("engine: evalArithmetic called with non-arithmetic kind")
	}
}

// evalSleep computes Sleep(x): Err propagates, a negative argument is
// itself treated as Err (a well-formed equation never carries one — the
// shell's parser rejects a literal negative sleep argument before it
// reaches the Sheet, see internal/shell/parse.go), and in observable mode
// the call blocks for x milliseconds.
func evalSleep(eq Equation, mode evalMode) Value {
	x := eq.Operands[0].Value()
	if x.IsErr() || x.N < 0 {
		return ErrValue
	}
	if mode == observable {
		time.Sleep(time.Duration(x.N) * time.Millisecond)
	}
	return Int(x.N)
}

func evalRange(kind Kind, cells []*Cell) Value {
	switch kind {
	case KindSum:
		var total int32
		for _, c := range cells {
			if !c.value.IsErr() {
				total += c.value.N
			}
		}
		return Int(total)
	case KindAvg:
		total, count := sumAndCount(cells)
		if count == 0 {
			return ErrValue
		}
		return Int(total / count)
	case KindMin:
		return extremum(cells, func(a, b int32) bool { return a < b })
	case KindMax:
		return extremum(cells, func(a, b int32) bool { return a > b })
	case KindStdev:
		return stdev(cells)
	default:
		panic("engine: evalRange called with non-range kind")
	}
}

func sumAndCount(cells []*Cell) (int32, int32) {
	var total int32
	var count int32
	for _, c := range cells {
		if !c.value.IsErr() {
			total += c.value.N
			count++
		}
	}
	return total, count
}

func extremum(cells []*Cell, better func(a, b int32) bool) Value {
	var best int32
	found := false
	for _, c := range cells {
		if c.value.IsErr() {
			continue
		}
		if !found || better(c.value.N, best) {
			best = c.value.N
			found = true
		}
	}
	if !found {
		return ErrValue
	}
	return Int(best)
}

// stdev computes the truncated population standard deviation over the
// Some-valued cells in the range: the mean squared deviation from the mean,
// square-rooted, cast to int32. An all-Err range divides by a zero count
// and is reported as Err rather than a floating-point artifact.
func stdev(cells []*Cell) Value {
	var sum float64
	var count float64
	for _, c := range cells {
		if !c.value.IsErr() {
			sum += float64(c.value.N)
			count++
		}
	}
	if count == 0 {
		return ErrValue
	}
	mean := sum / count
	var sqDiff float64
	for _, c := range cells {
		if !c.value.IsErr() {
			d := float64(c.value.N) - mean
			sqDiff += d * d
		}
	}
	variance := sqDiff / count
	return Int(int32(math.Sqrt(variance)))
}
