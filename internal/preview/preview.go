// Package preview summarises what an update will do to an existing file.
package preview

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineDelta counts the lines added and removed when oldText becomes newText.
func LineDelta(oldText, newText string) (added, removed int) {
	if oldText == newText {
		return 0, 0
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			removed += countLines(d.Text)
		}
	}
	return added, removed
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
