package engine

import "errors"

// ErrCycle is returned by SetEquation when installing the new equation
// would introduce a circular dependency; the sheet is left unchanged.
var ErrCycle = errors.New("engine: equation would introduce a cycle")

// ErrSelfReference is returned by SetEquation when the target cell appears
// among its own new equation's operands, directly or through a range.
var ErrSelfReference = errors.New("engine: equation references its own cell")

// Sheet is the grid of cells, their dependency edges, and the rebind/
// recompute machinery layered over them.
type Sheet struct {
	rows int
	cols int
	grid [][]*Cell
}

// NewSheet builds a rows x cols sheet where every cell starts Unbound:
// value 0, equation Nul, empty downstream list.
func NewSheet(rows, cols int) *Sheet {
	grid := make([][]*Cell, rows)
	for r := range grid {
		row := make([]*Cell, cols)
		for c := range row {
			row[c] = newCell(Coordinate{Row: r, Col: c})
		}
		grid[r] = row
	}
	return &Sheet{rows: rows, cols: cols, grid: grid}
}

// Rows and Cols report the sheet's fixed dimensions.
func (s *Sheet) Rows() int { return s.rows }
func (s *Sheet) Cols() int { return s.cols }

// cellAt returns the cell at coord. Out-of-bounds access is a programming
// error at this layer (the parser enforces bounds for user input) and
// panics via the ordinary slice bounds check.
func (s *Sheet) cellAt(coord Coordinate) *Cell {
	return s.grid[coord.Row][coord.Col]
}

// Cell exposes the cell handle at coord for callers (the VCS hydration
// path, equation construction) that need an Operand referencing it.
func (s *Sheet) Cell(coord Coordinate) *Cell {
	return s.cellAt(coord)
}

// rectangle returns every cell in the inclusive rectangle [from,to] in
// row-major order.
func (s *Sheet) rectangle(from, to Coordinate) []*Cell {
	cells := make([]*Cell, 0, (to.Row-from.Row+1)*(to.Col-from.Col+1))
	for r := from.Row; r <= to.Row; r++ {
		for c := from.Col; c <= to.Col; c++ {
			cells = append(cells, s.grid[r][c])
		}
	}
	return cells
}

// ReadValue is a constant-time lookup of the cell's current value.
func (s *Sheet) ReadValue(coord Coordinate) Value {
	return s.cellAt(coord).value
}

// Equation returns the equation currently bound to the cell at coord.
func (s *Sheet) Equation(coord Coordinate) Equation {
	return s.cellAt(coord).equation
}

// SetEquation atomically rebinds the target cell. Either the binding is
// replaced, every transitively dependent cell is recomputed in topological
// order, and nil is returned; or nothing in the sheet changes and an error
// (ErrSelfReference or ErrCycle) is returned.
func (s *Sheet) SetEquation(target Coordinate, eq Equation) error {
	cell := s.cellAt(target)

	for _, ref := range eq.directCells(s) {
		if ref == cell {
			return ErrSelfReference
		}
	}

	oldEquation := cell.equation
	s.installEquation(cell, eq)

	order, ok := s.topoOrder(cell)
	if !ok {
		s.installEquation(cell, oldEquation)
		return ErrCycle
	}

	for _, c := range order {
		c.value = evaluate(c.equation, s, silent)
	}
	return nil
}

// installEquation is the edge-maintenance operation described for Operand
// in the data model: it detaches reverse edges installed by the cell's old
// equation, silently evaluates the new equation, installs it, then attaches
// reverse edges for the new equation's operands (expanding the rectangle
// for range kinds).
func (s *Sheet) installEquation(cell *Cell, eq Equation) {
	for _, ref := range cell.equation.directCells(s) {
		ref.removeDownstream(cell)
	}

	cell.value = evaluate(eq, s, silent)
	cell.equation = eq

	for _, ref := range eq.directCells(s) {
		ref.addDownstreamOnce(cell)
	}
}

// RunSleepSideEffect performs the user-visible wall-clock delay for a cell
// bound to a Sleep equation. It is the single suspension point in the
// system: the shell calls it exactly once, on the target of a `C =
// SLEEP(X)` command, after SetEquation has finished recomputing the
// dependency closure. It has no effect on cells bound to any other kind.
func (s *Sheet) RunSleepSideEffect(target Coordinate) {
	cell := s.cellAt(target)
	if cell.equation.Kind != KindSleep {
		return
	}
	evaluate(cell.equation, s, observable)
}

// topoOrder builds the in-degree map over target and its transitive
// downstream closure by BFS over downstream edges (seeding target at
// in-degree 0, incrementing a neighbour's count on every edge visited but
// recursing into it only the first time it is discovered — this guards
// against a DAG diamond inflating in-degrees and still lets a genuine cycle
// surface as a count that never reaches zero), then runs Kahn's algorithm.
// The returned bool is false iff a cycle exists in the subgraph.
func (s *Sheet) topoOrder(target *Cell) ([]*Cell, bool) {
	indegree := map[*Cell]int{target: 0}
	queue := []*Cell{target}
	for i := 0; i < len(queue); i++ {
		node := queue[i]
		for _, nb := range node.downstream {
			if _, seen := indegree[nb]; !seen {
				indegree[nb] = 0
				queue = append(queue, nb)
			}
			indegree[nb]++
		}
	}

	subgraphSize := len(indegree)
	ready := make([]*Cell, 0, subgraphSize)
	for c, d := range indegree {
		if d == 0 {
			ready = append(ready, c)
		}
	}

	order := make([]*Cell, 0, subgraphSize)
	processed := make(map[*Cell]bool, subgraphSize)
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		if processed[n] {
			continue
		}
		processed[n] = true
		order = append(order, n)

		for _, nb := range n.downstream {
			if _, inSubgraph := indegree[nb]; !inSubgraph || processed[nb] {
				continue
			}
			indegree[nb]--
			if indegree[nb] == 0 {
				ready = append(ready, nb)
			}
		}
	}

	return order, len(order) == subgraphSize
}
