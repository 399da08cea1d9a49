// Package vcs implements the delta-based version-control layer over a
// spreadsheet: a commit DAG keyed by monotonic id, each commit holding only
// the cells whose bindings changed since its parent, and checkout by
// replaying the chain from the root and re-evaluating every equation.
package vcs

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/vogtb/gitsap/internal/engine"
)

// ErrUnknownCommit is returned by Checkout when the requested id is not in
// the index.
var ErrUnknownCommit = errors.New("vcs: unknown commit id")

// ErrCommitUnreadable wraps a missing or corrupt commit_<id>.json
// encountered while replaying a chain during Checkout.
var ErrCommitUnreadable = errors.New("vcs: commit file unreadable")

// ErrCorruptIndex is returned by Open when vcs.json cannot be read or
// parsed, or holds a malformed commit id.
var ErrCorruptIndex = errors.New("vcs: corrupt index")

// CommitInfo is the public, read-only view of one entry in the commit DAG,
// as reported by List.
type CommitInfo struct {
	ID      int
	Parent  int
	Message string
}

// VCS tracks a commit DAG rooted at a fixed commit 1 ("Init", empty diff)
// alongside the on-disk directory that backs it.
type VCS struct {
	dir      string
	rows     int
	cols     int
	parent   map[int]int
	message  map[int]string
	current  int
	next     int
	baseline [][]engine.SerialCell
}

// New creates a fresh VCS directory (if it does not already exist),
// initialises the root commit "Init" with an empty diff against a zeroed
// sheet, and returns the ready-to-use store. Matches spec fresh-mode
// process entry: the root commit is written immediately, so current
// becomes 1.
func New(dir string, sheet *engine.Sheet) (*VCS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("vcs: create directory %s: %w", dir, err)
	}

	v := &VCS{
		dir:     dir,
		rows:    sheet.Rows(),
		cols:    sheet.Cols(),
		parent:  map[int]int{},
		message: map[int]string{},
		current: 0,
		next:    1,
	}
	v.baseline = emptyGrid(v.rows, v.cols)

	if err := v.Commit(sheet, "Init"); err != nil {
		return nil, fmt.Errorf("vcs: writing root commit: %w", err)
	}
	return v, nil
}

// Open loads an existing VCS directory's index without creating a new
// commit. Per the resumed-mode process entry, current starts at 0 and the
// baseline is an empty grid; until a Checkout runs, a Commit records parent
// 0 and a diff against an empty sheet. cmd/gitsap checks out the head
// commit right after Open, which moves current onto the loaded chain.
func Open(dir string) (*VCS, error) {
	idx, err := readIndex(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}

	v := &VCS{
		dir:     dir,
		rows:    idx.Rows,
		cols:    idx.Cols,
		parent:  map[int]int{},
		message: map[int]string{},
		current: 0,
	}
	maxID := 0
	for idStr, p := range idx.Map {
		var id int
		if _, err := fmt.Sscanf(idStr, "%d", &id); err != nil {
			return nil, fmt.Errorf("%w: malformed commit id %q", ErrCorruptIndex, idStr)
		}
		v.parent[id] = p.Parent
		v.message[id] = p.Message
		if id > maxID {
			maxID = id
		}
	}
	v.next = maxID + 1
	v.baseline = emptyGrid(v.rows, v.cols)
	return v, nil
}

// Rows and Cols report the dimensions recorded at VCS creation.
func (v *VCS) Rows() int { return v.rows }
func (v *VCS) Cols() int { return v.cols }

// Commit snapshots sheet, diffs it against the in-memory baseline, and
// writes the resulting delta as the next commit. The index is rewritten
// only after the commit file has been written, per the append-only,
// never-partial contract.
func (v *VCS) Commit(sheet *engine.Sheet, message string) error {
	snapshot := snapshotSheet(sheet)

	var diff []engine.SerialCell
	for r := 0; r < v.rows; r++ {
		for c := 0; c < v.cols; c++ {
			if !snapshot[r][c].Equal(v.baseline[r][c]) {
				diff = append(diff, snapshot[r][c])
			}
		}
	}

	id := v.next
	parent := v.current

	if err := writeCommit(v.dir, commitFile{ID: id, Parent: parent, Message: message, Diff: diff}); err != nil {
		return err
	}

	v.parent[id] = parent
	v.message[id] = message

	if err := v.writeIndexLocked(); err != nil {
		return err
	}

	v.current = id
	v.next = id + 1
	v.baseline = snapshot
	return nil
}

// List returns every commit in the index ordered by id.
func (v *VCS) List() []CommitInfo {
	out := make([]CommitInfo, 0, len(v.parent))
	for id, p := range v.parent {
		out = append(out, CommitInfo{ID: id, Parent: p, Message: v.message[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Checkout walks the parent chain from id back to the root, replays each
// commit's diff onto an in-memory grid, hydrates a fresh Sheet from the
// result, and makes it current. It returns a new Sheet and never modifies
// an existing one; if anything fails, current and the baseline are left
// unchanged.
func (v *VCS) Checkout(id int) (*engine.Sheet, error) {
	if _, ok := v.parent[id]; !ok {
		return nil, ErrUnknownCommit
	}

	var chain []int
	for cur := id; cur != 0; {
		chain = append(chain, cur)
		if cur == 1 {
			break
		}
		cur = v.parent[cur]
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	grid := emptyGrid(v.rows, v.cols)
	for _, cid := range chain {
		cf, err := readCommit(v.dir, cid)
		if err != nil {
			return nil, err
		}
		for _, sc := range cf.Diff {
			grid[sc.Row][sc.Col] = sc
		}
	}

	sheet := engine.NewSheet(v.rows, v.cols)
	for r := 0; r < v.rows; r++ {
		for c := 0; c < v.cols; c++ {
			sc := grid[r][c]
			if sc.Kind == "" || sc.Kind == engine.KindNul {
				continue
			}
			eq := engine.ResolveEquation(sc, sheet)
			// Cycles cannot arise here: a replayed chain only reproduces
			// bindings a live sheet already accepted at commit time.
			if err := sheet.SetEquation(engine.Coordinate{Row: r, Col: c}, eq); err != nil {
				return nil, fmt.Errorf("vcs: replaying commit chain for %d: %w", id, err)
			}
		}
	}

	v.current = id
	v.baseline = snapshotSheet(sheet)
	return sheet, nil
}

func (v *VCS) writeIndexLocked() error {
	idx := indexFile{Rows: v.rows, Cols: v.cols, Map: make(map[string]indexParent, len(v.parent))}
	for id, p := range v.parent {
		idx.Map[fmt.Sprintf("%d", id)] = indexParent{Parent: p, Message: v.message[id]}
	}
	return writeIndex(v.dir, idx)
}

func snapshotSheet(sheet *engine.Sheet) [][]engine.SerialCell {
	grid := make([][]engine.SerialCell, sheet.Rows())
	for r := range grid {
		row := make([]engine.SerialCell, sheet.Cols())
		for c := range row {
			row[c] = sheet.GetEquationParameters(engine.Coordinate{Row: r, Col: c})
		}
		grid[r] = row
	}
	return grid
}

func emptyGrid(rows, cols int) [][]engine.SerialCell {
	grid := make([][]engine.SerialCell, rows)
	for r := range grid {
		row := make([]engine.SerialCell, cols)
		for c := range row {
			row[c] = engine.SerialCell{Row: r, Col: c, Kind: engine.KindNul}
		}
		grid[r] = row
	}
	return grid
}
