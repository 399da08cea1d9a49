package shell

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vogtb/gitsap/internal/engine"
	"github.com/vogtb/gitsap/internal/render"
	"github.com/vogtb/gitsap/internal/vcs"
)

// status is the outcome tag printed on the prompt line per command, in
// line with the process output contract.
type status string

const (
	statusOK      status = "ok"
	statusErr     status = "err"
	statusInvalid status = "invalid command"
)

// Session owns the live sheet, its VCS, the viewport, and the loop's quit
// flag. One Session processes commands strictly sequentially, matching the
// single cooperative-thread concurrency model.
type Session struct {
	Sheet *engine.Sheet
	VCS   *vcs.VCS
	View  *render.Viewport
	Quit  bool
	log   zerolog.Logger
}

// NewSession wires a sheet, its VCS, and a fresh viewport into a ready
// command loop.
func NewSession(sheet *engine.Sheet, store *vcs.VCS, log zerolog.Logger) *Session {
	return &Session{
		Sheet: sheet,
		VCS:   store,
		View:  render.New(sheet.Rows(), sheet.Cols()),
		log:   log,
	}
}

// Dispatch parses and executes one line of input, returning the rendered
// viewport (empty when output is disabled or the input fails to parse; for
// "gitsap list" this slot holds the commit listing instead) and the exact
// status-line string the process contract requires.
func (s *Session) Dispatch(input string) (viewport string, statusLine string) {
	start := time.Now()
	cmdLog := s.log.With().Str("command", strings.TrimSpace(input)).Logger()

	cmd, err := Parse(input, s.Sheet.Rows(), s.Sheet.Cols())
	if err != nil {
		cmdLog.Debug().Msg("rejected by parser")
		return "", formatStatusLine(statusInvalid, time.Since(start))
	}

	st, output := s.execute(cmd, &cmdLog)

	switch {
	case output != "":
		viewport = output
	case s.View.Output:
		viewport = s.View.Render(s.Sheet)
	}
	return viewport, formatStatusLine(st, time.Since(start))
}

// execute runs cmd and reports its outcome, plus any extra text it wants
// printed in place of the rendered viewport (used by "gitsap list", which
// has no sheet rendering of its own).
func (s *Session) execute(cmd Command, log *zerolog.Logger) (status, string) {
	switch c := cmd.(type) {
	case QuitCommand:
		s.Quit = true
		return statusOK, ""

	case ViewportCommand:
		s.executeViewport(c)
		return statusOK, ""

	case VCSCommand:
		return s.executeVCS(c, log)

	case ArithmeticCommand:
		return s.executeArithmetic(c, log), ""

	case RangeCommand:
		return s.executeRange(c, log), ""

	case SleepCommand:
		return s.executeSleep(c, log), ""

	default:
		panic(fmt.Sprintf("shell: unhandled command type %T", cmd))
	}
}

func (s *Session) executeViewport(c ViewportCommand) {
	switch c.Name {
	case "enable_output":
		s.View.Output = true
	case "disable_output":
		s.View.Output = false
	case "w":
		s.View.Up()
	case "a":
		s.View.Left()
	case "s":
		s.View.Down()
	case "d":
		s.View.Right()
	case "scroll_to":
		s.View.ScrollTo(c.ScrollTarget.Row, c.ScrollTarget.Col)
	}
}

func (s *Session) executeArithmetic(c ArithmeticCommand, log *zerolog.Logger) status {
	target := toCoordinate(c.Target)
	op1 := toEngineOperand(s.Sheet, c.Operand1)

	var eq engine.Equation
	var err error
	if c.HasOp2 {
		op2 := toEngineOperand(s.Sheet, c.Operand2)
		eq, err = engine.NewEquation(target, arithmeticKind(c.Operator), op1, op2)
	} else {
		eq, err = engine.NewEquation(target, engine.KindAdd, op1, engine.NewConstant(0))
	}
	if err != nil {
		log.Warn().Err(err).Msg("rejected by equation constructor")
		return statusInvalid
	}
	return s.bind(target, eq, log)
}

func (s *Session) executeRange(c RangeCommand, log *zerolog.Logger) status {
	target := toCoordinate(c.Target)
	from := s.Sheet.Cell(toCoordinate(c.From))
	to := s.Sheet.Cell(toCoordinate(c.To))

	eq, err := engine.NewEquation(target, engine.Kind(c.Function), from, to)
	if err != nil {
		log.Warn().Err(err).Msg("rejected by equation constructor")
		return statusInvalid
	}
	return s.bind(target, eq, log)
}

func (s *Session) executeSleep(c SleepCommand, log *zerolog.Logger) status {
	target := toCoordinate(c.Target)
	value := toEngineOperand(s.Sheet, c.Value)

	eq, err := engine.NewEquation(target, engine.KindSleep, value)
	if err != nil {
		log.Warn().Err(err).Msg("rejected by equation constructor")
		return statusInvalid
	}
	st := s.bind(target, eq, log)
	if st == statusOK {
		s.Sheet.RunSleepSideEffect(target)
	}
	return st
}

func (s *Session) bind(target engine.Coordinate, eq engine.Equation, log *zerolog.Logger) status {
	if err := s.Sheet.SetEquation(target, eq); err != nil {
		log.Info().Err(err).Msg("binding rejected")
		return statusErr
	}
	return statusOK
}

func (s *Session) executeVCS(c VCSCommand, log *zerolog.Logger) (status, string) {
	switch c.Name {
	case "commit":
		if err := s.VCS.Commit(s.Sheet, c.Arg); err != nil {
			log.Warn().Err(err).Msg("commit failed")
			return statusErr, ""
		}
		return statusOK, ""

	case "list":
		return statusOK, formatCommitList(s.VCS.List())

	case "checkout":
		id, err := parseCommitID(c.Arg)
		if err != nil {
			return statusInvalid, ""
		}
		sheet, err := s.VCS.Checkout(id)
		if err != nil {
			if errors.Is(err, vcs.ErrUnknownCommit) {
				log.Info().Err(err).Msg("checkout: unknown commit")
			} else {
				log.Warn().Err(err).Msg("checkout failed")
			}
			return statusErr, ""
		}
		s.Sheet = sheet
		return statusOK, ""

	default:
		return statusInvalid, ""
	}
}

// formatCommitList renders the commit listing the same way each commit was
// printed before, just into a string instead of straight to stdout, so it
// flows back through Dispatch's return values like every other command.
func formatCommitList(commits []vcs.CommitInfo) string {
	var b strings.Builder
	for _, info := range commits {
		fmt.Fprintf(&b, "\nID: %d, Message: %s, Parent: %d\n", info.ID, info.Message, info.Parent)
	}
	return b.String()
}

func formatStatusLine(st status, elapsed time.Duration) string {
	return fmt.Sprintf("[%.1f] (%s) > ", elapsed.Seconds(), st)
}

func toCoordinate(c CellRef) engine.Coordinate {
	return engine.Coordinate{Row: c.Row - 1, Col: c.Col - 1}
}

func toEngineOperand(sheet *engine.Sheet, op Operand) engine.Operand {
	if op.IsCell {
		return sheet.Cell(toCoordinate(op.Cell))
	}
	return engine.NewConstant(op.Constant)
}

func arithmeticKind(operator string) engine.Kind {
	switch operator {
	case "+":
		return engine.KindAdd
	case "-":
		return engine.KindSub
	case "*":
		return engine.KindMul
	case "/":
		return engine.KindDiv
	default:
		panic("shell: unknown arithmetic operator " + operator)
	}
}

func parseCommitID(arg string) (int, error) {
	var id int
	if _, err := fmt.Sscanf(arg, "%d", &id); err != nil {
		return 0, err
	}
	return id, nil
}
