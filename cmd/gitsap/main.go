// Command gitsap is the interactive terminal entry point: it wires a fresh
// or resumed sheet to its VCS and runs the read-dispatch-print loop over
// stdin.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vogtb/gitsap/internal/engine"
	"github.com/vogtb/gitsap/internal/shell"
	"github.com/vogtb/gitsap/internal/vcs"
)

const (
	maxRows = 999
	maxCols = 18278
)

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: !term.IsTerminal(int(os.Stderr.Fd()))}).
		With().Timestamp().Logger()
}

func newCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gitsap",
		Short: "An interactive spreadsheet with version control",
	}

	var freshVCSDir string
	newSheet := &cobra.Command{
		Use:   "new <rows> <cols>",
		Short: "Start a fresh sheet backed by a new VCS directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, cols, err := parseDimensions(args[0], args[1])
			if err != nil {
				return err
			}
			log := newLogger()
			sheet := engine.NewSheet(rows, cols)
			store, err := vcs.New(freshVCSDir, sheet)
			if err != nil {
				return fmt.Errorf("initializing vcs directory: %w", err)
			}
			return runLoop(shell.NewSession(sheet, store, log), log)
		},
	}
	newSheet.Flags().StringVar(&freshVCSDir, "vcs-dir", "", "directory to create for commit history (required)")
	_ = newSheet.MarkFlagRequired("vcs-dir")

	var resumeVCSDir string
	openSheet := &cobra.Command{
		Use:   "open",
		Short: "Resume a sheet from an existing VCS directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			store, err := vcs.Open(resumeVCSDir)
			if err != nil {
				return fmt.Errorf("opening vcs directory: %w", err)
			}
			head := headCommit(store)
			sheet, err := store.Checkout(head)
			if err != nil {
				return fmt.Errorf("hydrating sheet from commit %d: %w", head, err)
			}
			return runLoop(shell.NewSession(sheet, store, log), log)
		},
	}
	openSheet.Flags().StringVar(&resumeVCSDir, "vcs-dir", "", "existing directory holding commit history (required)")
	_ = openSheet.MarkFlagRequired("vcs-dir")

	root.AddCommand(newSheet, openSheet)
	return root
}

// headCommit picks the highest commit id in the loaded index as the chain
// to hydrate from when resuming, since the index carries no separate
// "current branch" pointer beyond the live current=0 reset.
func headCommit(store *vcs.VCS) int {
	head := 1
	for _, info := range store.List() {
		if info.ID > head {
			head = info.ID
		}
	}
	return head
}

func parseDimensions(rowsArg, colsArg string) (rows, cols int, err error) {
	if _, err := fmt.Sscanf(rowsArg, "%d", &rows); err != nil || rows < 1 || rows > maxRows {
		return 0, 0, fmt.Errorf("rows must be an integer in 1..%d, got %q", maxRows, rowsArg)
	}
	if _, err := fmt.Sscanf(colsArg, "%d", &cols); err != nil || cols < 1 || cols > maxCols {
		return 0, 0, fmt.Errorf("cols must be an integer in 1..%d, got %q", maxCols, colsArg)
	}
	return rows, cols, nil
}

func runLoop(session *shell.Session, log zerolog.Logger) error {
	scanner := bufio.NewScanner(os.Stdin)
	for !session.Quit {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		viewport, statusLine := session.Dispatch(scanner.Text())
		if viewport != "" {
			fmt.Print(viewport)
		}
		fmt.Print(statusLine)
		fmt.Println()
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("reading stdin")
		return err
	}
	return nil
}

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
