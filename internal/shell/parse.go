package shell

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/vogtb/gitsap/internal/engine"
)

// ErrInvalidCommand is returned by Parse for input that matches none of the
// grammar's productions, or that matches syntactically but fails semantic
// validation (out-of-range cell, reversed range, wrong cell in a reference
// slot).
var ErrInvalidCommand = errors.New("shell: invalid command")

const (
	cellPattern     = `[A-Z]+[0-9]+`
	constantPattern = `-?[0-9]+`
	functionPattern = `MAX|MIN|AVG|STDEV|SUM`
)

var (
	reVCS       = regexp.MustCompile(`^gitsap\s+(commit|list|checkout)(?:\s+(\S+))?\s*$`)
	reUI        = regexp.MustCompile(`^(w|a|s|d|q|enable_output|disable_output)\s*$`)
	reScrollTo  = regexp.MustCompile(`^scroll_to\s+(` + cellPattern + `)\s*$`)
	reSleep     = regexp.MustCompile(`^(` + cellPattern + `)\s*=\s*SLEEP\(\s*(` + cellPattern + `|` + constantPattern + `)\s*\)\s*$`)
	reRange     = regexp.MustCompile(`^(` + cellPattern + `)\s*=\s*(` + functionPattern + `)\(\s*(` + cellPattern + `)\s*:\s*(` + cellPattern + `)\s*\)\s*$`)
	reArithOne  = regexp.MustCompile(`^(` + cellPattern + `)\s*=\s*(` + cellPattern + `|` + constantPattern + `)\s*$`)
	reArithTwo  = regexp.MustCompile(`^(` + cellPattern + `)\s*=\s*(` + cellPattern + `|` + constantPattern + `)\s*([+\-*/])\s*(` + cellPattern + `|` + constantPattern + `)\s*$`)
	reCellToken = regexp.MustCompile(`^` + cellPattern + `$`)
)

// Parse translates one line of user input into a Command, validating every
// cell reference against the sheet's actual rows x cols extent. Candidate
// productions are tried in the same precedence order as the grammar: VCS,
// viewport/quit, sleep, range function, arithmetic.
func Parse(input string, rows, cols int) (Command, error) {
	line := strings.TrimSpace(input)

	if m := reVCS.FindStringSubmatch(line); m != nil {
		return VCSCommand{Name: m[1], Arg: m[2]}, nil
	}

	if m := reUI.FindStringSubmatch(line); m != nil {
		if m[1] == "q" {
			return QuitCommand{}, nil
		}
		return ViewportCommand{Name: m[1]}, nil
	}

	if m := reScrollTo.FindStringSubmatch(line); m != nil {
		target, ok := parseCell(m[1], rows, cols)
		if !ok {
			return nil, ErrInvalidCommand
		}
		return ViewportCommand{Name: "scroll_to", ScrollTarget: target}, nil
	}

	if m := reSleep.FindStringSubmatch(line); m != nil {
		target, ok := parseCell(m[1], rows, cols)
		if !ok {
			return nil, ErrInvalidCommand
		}
		value, ok := parseOperand(m[2], rows, cols)
		if !ok {
			return nil, ErrInvalidCommand
		}
		if !value.IsCell && value.Constant < 0 {
			return nil, ErrInvalidCommand
		}
		return SleepCommand{Target: target, Value: value}, nil
	}

	if m := reRange.FindStringSubmatch(line); m != nil {
		target, ok := parseCell(m[1], rows, cols)
		if !ok {
			return nil, ErrInvalidCommand
		}
		from, ok := parseCell(m[3], rows, cols)
		if !ok {
			return nil, ErrInvalidCommand
		}
		to, ok := parseCell(m[4], rows, cols)
		if !ok {
			return nil, ErrInvalidCommand
		}
		if from.Row > to.Row || from.Col > to.Col {
			return nil, ErrInvalidCommand
		}
		if cellRefCoord(target).Within(cellRefCoord(from), cellRefCoord(to)) {
			return nil, ErrInvalidCommand
		}
		return RangeCommand{Target: target, Function: m[2], From: from, To: to}, nil
	}

	if m := reArithTwo.FindStringSubmatch(line); m != nil {
		target, ok := parseCell(m[1], rows, cols)
		if !ok {
			return nil, ErrInvalidCommand
		}
		op1, ok := parseOperand(m[2], rows, cols)
		if !ok {
			return nil, ErrInvalidCommand
		}
		op2, ok := parseOperand(m[4], rows, cols)
		if !ok {
			return nil, ErrInvalidCommand
		}
		return ArithmeticCommand{Target: target, Operand1: op1, Operator: m[3], Operand2: op2, HasOp2: true}, nil
	}

	if m := reArithOne.FindStringSubmatch(line); m != nil {
		target, ok := parseCell(m[1], rows, cols)
		if !ok {
			return nil, ErrInvalidCommand
		}
		op1, ok := parseOperand(m[2], rows, cols)
		if !ok {
			return nil, ErrInvalidCommand
		}
		return ArithmeticCommand{Target: target, Operand1: op1}, nil
	}

	return nil, ErrInvalidCommand
}

// parseCell converts a user-facing cell token ("A1") into a 1-indexed
// CellRef, validated against the live sheet's extent.
func parseCell(token string, rows, cols int) (CellRef, bool) {
	if !reCellToken.MatchString(token) {
		return CellRef{}, false
	}
	i := 0
	for i < len(token) && token[i] >= 'A' && token[i] <= 'Z' {
		i++
	}
	col := engine.ColumnNumber(token[:i])
	row, err := strconv.Atoi(token[i:])
	if err != nil {
		return CellRef{}, false
	}
	if row < 1 || row > rows || col < 1 || col > cols {
		return CellRef{}, false
	}
	return CellRef{Row: row, Col: col}, true
}

func parseOperand(token string, rows, cols int) (Operand, bool) {
	if n, err := strconv.ParseInt(token, 10, 32); err == nil {
		return Operand{IsCell: false, Constant: int32(n)}, true
	}
	cell, ok := parseCell(token, rows, cols)
	if !ok {
		return Operand{}, false
	}
	return Operand{IsCell: true, Cell: cell}, true
}

func colLetters(col int) string {
	return engine.ColumnLetters(col)
}

// cellRefCoord adapts a CellRef to an engine.Coordinate for rectangle
// containment checks; Within only compares relative ordering, so the
// 1-indexed/0-indexed distinction between the two types doesn't matter here.
func cellRefCoord(c CellRef) engine.Coordinate {
	return engine.Coordinate{Row: c.Row, Col: c.Col}
}
