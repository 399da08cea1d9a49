package engine

import "testing"

func at(r, c int) Coordinate { return Coordinate{Row: r, Col: c} }

func mustEquation(t *testing.T, coord Coordinate, kind Kind, operands ...Operand) Equation {
	t.Helper()
	eq, err := NewEquation(coord, kind, operands...)
	if err != nil {
		t.Fatalf("NewEquation(%v): %v", kind, err)
	}
	return eq
}

func setConst(t *testing.T, s *Sheet, coord Coordinate, n int32) {
	t.Helper()
	eq := mustEquation(t, coord, KindAdd, NewConstant(n), NewConstant(0))
	if err := s.SetEquation(coord, eq); err != nil {
		t.Fatalf("SetEquation(%v, %d): %v", coord, n, err)
	}
}

func wantInt(t *testing.T, s *Sheet, coord Coordinate, want int32) {
	t.Helper()
	got := s.ReadValue(coord)
	if got.IsErr() || got.N != want {
		t.Fatalf("ReadValue(%v) = %+v, want Int(%d)", coord, got, want)
	}
}

func wantErr(t *testing.T, s *Sheet, coord Coordinate) {
	t.Helper()
	if got := s.ReadValue(coord); !got.IsErr() {
		t.Fatalf("ReadValue(%v) = %+v, want Err", coord, got)
	}
}

// Basic add: A1=2, B1=3, C1=A1+B1 -> 5, then A1=10 -> C1=13.
func TestBasicAdd(t *testing.T) {
	s := NewSheet(3, 3)
	a1, b1, c1 := at(0, 0), at(0, 1), at(0, 2)

	setConst(t, s, a1, 2)
	setConst(t, s, b1, 3)

	eq := mustEquation(t, c1, KindAdd, s.Cell(a1), s.Cell(b1))
	if err := s.SetEquation(c1, eq); err != nil {
		t.Fatalf("SetEquation(C1): %v", err)
	}
	wantInt(t, s, c1, 5)

	setConst(t, s, a1, 10)
	wantInt(t, s, c1, 13)
}

// Divide by zero propagation: A1=5, B1=0, C1=A1/B1, D1=C1+1.
func TestDivideByZeroPropagation(t *testing.T) {
	s := NewSheet(3, 4)
	a1, b1, c1, d1 := at(0, 0), at(0, 1), at(0, 2), at(0, 3)

	setConst(t, s, a1, 5)
	setConst(t, s, b1, 0)

	divEq := mustEquation(t, c1, KindDiv, s.Cell(a1), s.Cell(b1))
	if err := s.SetEquation(c1, divEq); err != nil {
		t.Fatalf("SetEquation(C1): %v", err)
	}

	addEq := mustEquation(t, d1, KindAdd, s.Cell(c1), NewConstant(1))
	if err := s.SetEquation(d1, addEq); err != nil {
		t.Fatalf("SetEquation(D1): %v", err)
	}

	wantErr(t, s, c1)
	wantErr(t, s, d1)

	setConst(t, s, b1, 1)
	wantInt(t, s, c1, 5)
	wantInt(t, s, d1, 6)
}

// Range function: A1..A4 = 1,2,3,4; B1=SUM, B2=AVG, B3=MAX.
func TestRangeFunctions(t *testing.T) {
	s := NewSheet(5, 5)
	a := [4]Coordinate{at(0, 0), at(1, 0), at(2, 0), at(3, 0)}
	for i, coord := range a {
		setConst(t, s, coord, int32(i+1))
	}

	b1, b2, b3 := at(0, 1), at(1, 1), at(2, 1)
	sumEq := mustEquation(t, b1, KindSum, s.Cell(a[0]), s.Cell(a[3]))
	avgEq := mustEquation(t, b2, KindAvg, s.Cell(a[0]), s.Cell(a[3]))
	maxEq := mustEquation(t, b3, KindMax, s.Cell(a[0]), s.Cell(a[3]))

	for coord, eq := range map[Coordinate]Equation{b1: sumEq, b2: avgEq, b3: maxEq} {
		if err := s.SetEquation(coord, eq); err != nil {
			t.Fatalf("SetEquation(%v): %v", coord, err)
		}
	}

	wantInt(t, s, b1, 10)
	wantInt(t, s, b2, 2)
	wantInt(t, s, b3, 4)

	divByZero := mustEquation(t, a[0], KindDiv, NewConstant(1), NewConstant(0))
	if err := s.SetEquation(a[0], divByZero); err != nil {
		t.Fatalf("SetEquation(A1 -> err): %v", err)
	}

	wantInt(t, s, b1, 9)
	wantInt(t, s, b2, 3)
	wantInt(t, s, b3, 4)
}

// Cycle rejection: A1=1, B1=A1+1, C1=B1+1; A1=C1+1 must be rejected leaving
// everything, including downstream edges, untouched.
func TestCycleRejection(t *testing.T) {
	s := NewSheet(3, 3)
	a1, b1, c1 := at(0, 0), at(0, 1), at(0, 2)

	setConst(t, s, a1, 1)
	bEq := mustEquation(t, b1, KindAdd, s.Cell(a1), NewConstant(1))
	if err := s.SetEquation(b1, bEq); err != nil {
		t.Fatalf("SetEquation(B1): %v", err)
	}
	cEq := mustEquation(t, c1, KindAdd, s.Cell(b1), NewConstant(1))
	if err := s.SetEquation(c1, cEq); err != nil {
		t.Fatalf("SetEquation(C1): %v", err)
	}

	cyclic := mustEquation(t, a1, KindAdd, s.Cell(c1), NewConstant(1))
	err := s.SetEquation(a1, cyclic)
	if err != ErrCycle {
		t.Fatalf("SetEquation(A1 -> cyclic) = %v, want ErrCycle", err)
	}

	wantInt(t, s, a1, 1)
	wantInt(t, s, b1, 2)
	wantInt(t, s, c1, 3)

	if !s.cellAt(a1).hasDownstream(s.cellAt(b1)) {
		t.Fatal("A1's downstream edge to B1 was lost on rollback")
	}
	if !s.cellAt(b1).hasDownstream(s.cellAt(c1)) {
		t.Fatal("B1's downstream edge to C1 was lost on rollback")
	}
	if s.cellAt(c1).hasDownstream(s.cellAt(a1)) {
		t.Fatal("rejected cyclic edge C1->A1 leaked into the downstream graph")
	}
}

// Self-reference rejection: C3 = SUM(A1:C3) places C3 inside its own range.
func TestSelfReferenceRejection(t *testing.T) {
	s := NewSheet(5, 5)
	a1, c3 := at(0, 0), at(2, 2)
	setConst(t, s, a1, 5)

	eq := mustEquation(t, c3, KindSum, s.Cell(a1), s.Cell(c3))
	if err := s.SetEquation(c3, eq); err != ErrSelfReference {
		t.Fatalf("SetEquation(C3 -> self-range) = %v, want ErrSelfReference", err)
	}
	wantInt(t, s, c3, 0)
}

func TestSleepPropagatesErrAndNegativeAsErr(t *testing.T) {
	s := NewSheet(3, 3)
	a1, b1, c1 := at(0, 0), at(0, 1), at(0, 2)

	divByZero := mustEquation(t, a1, KindDiv, NewConstant(1), NewConstant(0))
	if err := s.SetEquation(a1, divByZero); err != nil {
		t.Fatalf("SetEquation(A1): %v", err)
	}
	sleepEq := mustEquation(t, b1, KindSleep, s.Cell(a1))
	if err := s.SetEquation(b1, sleepEq); err != nil {
		t.Fatalf("SetEquation(B1 sleep of Err): %v", err)
	}
	wantErr(t, s, b1)

	negSleep := mustEquation(t, c1, KindSleep, NewConstant(-1))
	if err := s.SetEquation(c1, negSleep); err != nil {
		t.Fatalf("SetEquation(C1 sleep of negative): %v", err)
	}
	wantErr(t, s, c1)
}

func TestSleepSideEffectOnlyOnTarget(t *testing.T) {
	s := NewSheet(3, 3)
	a1, b1 := at(0, 0), at(0, 1)

	sleepEq := mustEquation(t, a1, KindSleep, NewConstant(0))
	if err := s.SetEquation(a1, sleepEq); err != nil {
		t.Fatalf("SetEquation(A1 sleep): %v", err)
	}
	downstream := mustEquation(t, b1, KindAdd, s.Cell(a1), NewConstant(1))
	if err := s.SetEquation(b1, downstream); err != nil {
		t.Fatalf("SetEquation(B1): %v", err)
	}

	// A zero-duration sleep must return promptly regardless of mode; this
	// asserts the call is well-formed rather than timing behavior.
	s.RunSleepSideEffect(a1)
	s.RunSleepSideEffect(b1) // no-op: B1 is not a Sleep equation

	wantInt(t, s, a1, 0)
	wantInt(t, s, b1, 1)
}

func TestAvgAndStdevOverAllErrRangeIsErr(t *testing.T) {
	s := NewSheet(3, 3)
	a1, a2 := at(0, 0), at(1, 0)
	divByZero := mustEquation(t, a1, KindDiv, NewConstant(1), NewConstant(0))
	if err := s.SetEquation(a1, divByZero); err != nil {
		t.Fatalf("SetEquation(A1): %v", err)
	}
	if err := s.SetEquation(a2, divByZero); err != nil {
		t.Fatalf("SetEquation(A2): %v", err)
	}

	b1 := at(0, 1)
	avgEq := mustEquation(t, b1, KindAvg, s.Cell(a1), s.Cell(a2))
	if err := s.SetEquation(b1, avgEq); err != nil {
		t.Fatalf("SetEquation(B1): %v", err)
	}
	wantErr(t, s, b1)

	b2 := at(1, 1)
	stdevEq := mustEquation(t, b2, KindStdev, s.Cell(a1), s.Cell(a2))
	if err := s.SetEquation(b2, stdevEq); err != nil {
		t.Fatalf("SetEquation(B2): %v", err)
	}
	wantErr(t, s, b2)
}

func TestGetEquationParametersRoundTrips(t *testing.T) {
	s := NewSheet(3, 3)
	a1, b1, c1 := at(0, 0), at(0, 1), at(0, 2)
	setConst(t, s, a1, 7)
	eq := mustEquation(t, c1, KindAdd, s.Cell(a1), s.Cell(b1))
	if err := s.SetEquation(c1, eq); err != nil {
		t.Fatalf("SetEquation(C1): %v", err)
	}

	sc := s.GetEquationParameters(c1)
	if sc.Kind != KindAdd {
		t.Fatalf("Kind = %v, want ADD", sc.Kind)
	}
	if sc.C1 == nil || *sc.C1 != [2]int{0, 0} {
		t.Fatalf("C1 = %v, want (0,0)", sc.C1)
	}
	if sc.C2 == nil || *sc.C2 != [2]int{0, 1} {
		t.Fatalf("C2 = %v, want (0,1)", sc.C2)
	}

	resolved := ResolveEquation(sc, s)
	got := evaluate(resolved, s, silent)
	wantInt(t, s, c1, got.N)
}
