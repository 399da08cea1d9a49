package vcs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vogtb/gitsap/internal/engine"
)

// indexFile is the on-disk form of vcs.json: sheet dimensions plus the
// commit DAG's parent/message map, keyed by commit id.
type indexFile struct {
	Rows int                    `json:"rows"`
	Cols int                    `json:"cols"`
	Map  map[string]indexParent `json:"map"`
}

type indexParent struct {
	Parent  int    `json:"parent"`
	Message string `json:"message"`
}

// commitFile is the on-disk form of commit_<id>.json.
type commitFile struct {
	ID      int                 `json:"id"`
	Parent  int                 `json:"parent"`
	Message string              `json:"message"`
	Diff    []engine.SerialCell `json:"diff"`
}

func indexPath(dir string) string {
	return filepath.Join(dir, "vcs.json")
}

func commitPath(dir string, id int) string {
	return filepath.Join(dir, fmt.Sprintf("commit_%d.json", id))
}

func writeIndex(dir string, idx indexFile) error {
	f, err := os.Create(indexPath(dir))
	if err != nil {
		return fmt.Errorf("vcs: create index: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(idx); err != nil {
		return fmt.Errorf("vcs: encode index: %w", err)
	}
	return nil
}

func readIndex(dir string) (indexFile, error) {
	f, err := os.Open(indexPath(dir))
	if err != nil {
		return indexFile{}, fmt.Errorf("vcs: open index: %w", err)
	}
	defer f.Close()
	var idx indexFile
	if err := json.NewDecoder(f).Decode(&idx); err != nil {
		return indexFile{}, fmt.Errorf("vcs: decode index: %w", err)
	}
	return idx, nil
}

func writeCommit(dir string, c commitFile) error {
	f, err := os.Create(commitPath(dir, c.ID))
	if err != nil {
		return fmt.Errorf("vcs: create commit %d: %w", c.ID, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("vcs: encode commit %d: %w", c.ID, err)
	}
	return nil
}

// readCommit returns an error wrapping ErrCommitUnreadable on any I/O or
// decode failure, with the underlying cause's text appended (not wrapped),
// so callers can detect a uniform checkout failure with errors.Is.
func readCommit(dir string, id int) (commitFile, error) {
	f, err := os.Open(commitPath(dir, id))
	if err != nil {
		return commitFile{}, fmt.Errorf("%w: commit %d: %v", ErrCommitUnreadable, id, err)
	}
	defer f.Close()
	var c commitFile
	if err := json.NewDecoder(f).Decode(&c); err != nil {
		return commitFile{}, fmt.Errorf("%w: commit %d: %v", ErrCommitUnreadable, id, err)
	}
	return c, nil
}
