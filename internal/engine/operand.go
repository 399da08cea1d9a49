package engine

// Operand is the uniform element placed in an equation's operand slots. A
// Cell carries an equation, a value, and reverse-dependency edges; a
// Constant wraps a literal integer with no grid identity. Formulas mix both
// freely through this single interface.
type Operand interface {
	Value() Value

	// operand is unexported so no type outside this package can implement
	// Operand; callers distinguish Cell from Constant with a type switch.
	operand()
}

// Constant is an inline literal operand.
type Constant struct {
	v Value
}

// NewConstant wraps a literal integer as an Operand.
func NewConstant(n int32) *Constant {
	return &Constant{v: Int(n)}
}

func (c *Constant) Value() Value { return c.v }
func (c *Constant) operand()     {}

// Cell is a grid slot: a value, the equation currently bound to it, and the
// reverse-dependency list of cells whose equations reference this one
// (directly or through a range).
type Cell struct {
	coord      Coordinate
	value      Value
	equation   Equation
	downstream []*Cell
}

func newCell(coord Coordinate) *Cell {
	return &Cell{
		coord:    coord,
		value:    Int(0),
		equation: Equation{Coord: coord, Kind: KindNul},
	}
}

func (c *Cell) Value() Value { return c.value }
func (c *Cell) operand()     {}

// Coordinate returns the cell's grid position.
func (c *Cell) Coordinate() Coordinate { return c.coord }

// Equation returns the cell's current equation.
func (c *Cell) Equation() Equation { return c.equation }

// hasDownstream reports whether target already appears in c's downstream
// list, by pointer identity.
func (c *Cell) hasDownstream(target *Cell) bool {
	for _, d := range c.downstream {
		if d == target {
			return true
		}
	}
	return false
}

// addDownstreamOnce appends target to c's downstream list unless it is
// already present.
func (c *Cell) addDownstreamOnce(target *Cell) {
	if !c.hasDownstream(target) {
		c.downstream = append(c.downstream, target)
	}
}

// removeDownstream deletes target from c's downstream list by pointer
// identity, if present.
func (c *Cell) removeDownstream(target *Cell) {
	for i, d := range c.downstream {
		if d == target {
			c.downstream = append(c.downstream[:i], c.downstream[i+1:]...)
			return
		}
	}
}
