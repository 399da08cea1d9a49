package engine

// SerialCell is the serializable form of one cell's binding: a kind plus
// two operand slots, each either a coordinate reference or a literal
// value. Exactly one of CN/VN is set per slot in use; both unset means the
// slot is unused (legal only for Nul and the second slot of Sleep).
type SerialCell struct {
	Row  int     `json:"row"`
	Col  int     `json:"col"`
	C1   *[2]int `json:"c1,omitempty"`
	C2   *[2]int `json:"c2,omitempty"`
	V1   *int32  `json:"v1,omitempty"`
	V2   *int32  `json:"v2,omitempty"`
	Kind Kind    `json:"kind"`
}

// Equal compares two SerialCells by structural equality over (kind, c1,
// c2, v1, v2) — the exact comparison the VCS uses to decide whether a cell
// changed since the last commit. Row/Col are assumed equal by the caller
// (diffing always compares same-addressed cells).
func (s SerialCell) Equal(o SerialCell) bool {
	return s.Kind == o.Kind &&
		coordPtrEqual(s.C1, o.C1) && coordPtrEqual(s.C2, o.C2) &&
		int32PtrEqual(s.V1, o.V1) && int32PtrEqual(s.V2, o.V2)
}

func coordPtrEqual(a, b *[2]int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func int32PtrEqual(a, b *int32) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// GetEquationParameters returns the serializable form of the cell's
// current binding, used by the VCS snapshot path.
func (s *Sheet) GetEquationParameters(coord Coordinate) SerialCell {
	cell := s.cellAt(coord)
	eq := cell.equation

	sc := SerialCell{Row: coord.Row, Col: coord.Col, Kind: eq.Kind}
	for i := 0; i < eq.Kind.OperandCount(); i++ {
		op := eq.Operands[i]
		switch v := op.(type) {
		case *Cell:
			c := [2]int{v.coord.Row, v.coord.Col}
			if i == 0 {
				sc.C1 = &c
			} else {
				sc.C2 = &c
			}
		case *Constant:
			n := v.v.N
			if i == 0 {
				sc.V1 = &n
			} else {
				sc.V2 = &n
			}
		}
	}
	return sc
}

// ResolveEquation reconstructs an Equation from its serialized form against
// the given sheet, resolving cell-coordinate slots to live *Cell operands.
// Used by VCS checkout hydration.
func ResolveEquation(sc SerialCell, sheet *Sheet) Equation {
	coord := Coordinate{Row: sc.Row, Col: sc.Col}
	eq := Equation{Coord: coord, Kind: sc.Kind}

	resolveSlot := func(c *[2]int, v *int32) Operand {
		if c != nil {
			return sheet.Cell(Coordinate{Row: c[0], Col: c[1]})
		}
		if v != nil {
			return NewConstant(*v)
		}
		return nil
	}

	if sc.Kind.OperandCount() >= 1 {
		eq.Operands[0] = resolveSlot(sc.C1, sc.V1)
	}
	if sc.Kind.OperandCount() >= 2 {
		eq.Operands[1] = resolveSlot(sc.C2, sc.V2)
	}
	return eq
}
