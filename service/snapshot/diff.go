package snapshot

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	sgdiff "github.com/sourcegraph/go-diff/diff"
)

// Stats counts changed lines of a diff.
type Stats struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Hunks   int `json:"hunks"`
}

// Hunk is one contiguous change between two dumps.
type Hunk struct {
	OrigStart int      `json:"origStart"`
	OrigLines int      `json:"origLines"`
	NewStart  int      `json:"newStart"`
	NewLines  int      `json:"newLines"`
	Removed   []string `json:"removed,omitempty"`
	Added     []string `json:"added,omitempty"`
}

// Diff is the comparison of two dumps.
type Diff struct {
	Text  string  `json:"text"`
	Stats Stats   `json:"stats"`
	Hunks []*Hunk `json:"hunks,omitempty"`
}

// Empty reports whether the dumps were identical.
func (d *Diff) Empty() bool {
	return d.Text == ""
}

// Compare produces a unified diff between two dumps named name.
func Compare(before, after []byte, name string, contextLines int) (*Diff, error) {
	if contextLines <= 0 {
		contextLines = 3
	}
	if string(before) == string(after) {
		return &Diff{}, nil
	}
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  contextLines,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %v: %w", name, err)
	}
	ret := &Diff{Text: text}
	fileDiff, err := sgdiff.ParseFileDiff([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff of %v: %w", name, err)
	}
	for _, h := range fileDiff.Hunks {
		hunk := &Hunk{
			OrigStart: int(h.OrigStartLine),
			OrigLines: int(h.OrigLines),
			NewStart:  int(h.NewStartLine),
			NewLines:  int(h.NewLines),
		}
		for _, line := range strings.Split(string(h.Body), "\n") {
			switch {
			case strings.HasPrefix(line, "+"):
				hunk.Added = append(hunk.Added, line[1:])
			case strings.HasPrefix(line, "-"):
				hunk.Removed = append(hunk.Removed, line[1:])
			}
		}
		ret.Stats.Added += len(hunk.Added)
		ret.Stats.Removed += len(hunk.Removed)
		ret.Hunks = append(ret.Hunks, hunk)
	}
	ret.Stats.Hunks = len(ret.Hunks)
	return ret, nil
}
