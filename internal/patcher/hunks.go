package patcher

import (
	"fmt"
	"strings"
)

// hunk is the body of one `@@` section, without its header.
type hunk struct {
	lines []string
}

// targetBlock returns the lines guaranteed to exist in the source file
// (context and removed lines), skipping blank ones so matching survives
// whitespace-only drift. lead counts the blank source lines before the first
// kept line.
func (h hunk) targetBlock() (block []string, lead int) {
	for _, line := range h.lines {
		if !isSourceLine(line) {
			continue
		}
		content := line[1:]
		if strings.TrimSpace(content) == "" {
			if len(block) == 0 {
				lead++
			}
			continue
		}
		block = append(block, content)
	}
	return block, lead
}

func (h hunk) counts() (oldLines, newLines int) {
	for _, line := range h.lines {
		switch {
		case strings.HasPrefix(line, "+"):
			newLines++
		case strings.HasPrefix(line, "-"):
			oldLines++
		case strings.HasPrefix(line, " "):
			oldLines++
			newLines++
		}
	}
	return oldLines, newLines
}

func isSourceLine(line string) bool {
	return strings.HasPrefix(line, "-") || strings.HasPrefix(line, " ")
}

// normalizeLine trims a line and collapses internal whitespace runs.
func normalizeLine(line string) string {
	return strings.Join(strings.Fields(line), " ")
}

// matchBlock finds the 1-based line in source where block starts, looking
// no earlier than line from. Blank source lines are ignored and comparison
// is whitespace-normalized. It returns -1 when there is no match.
func matchBlock(source, block []string, from int) int {
	if len(block) == 0 {
		return -1
	}

	want := make([]string, len(block))
	for i, line := range block {
		want[i] = normalizeLine(line)
	}

	var filtered []string
	var lineNumbers []int
	for i, line := range source {
		if i+1 < from {
			continue
		}
		if n := normalizeLine(line); n != "" {
			filtered = append(filtered, n)
			lineNumbers = append(lineNumbers, i+1)
		}
	}

	for i := 0; i+len(want) <= len(filtered); i++ {
		match := true
		for j := range want {
			if filtered[i+j] != want[j] {
				match = false
				break
			}
		}
		if match {
			return lineNumbers[i]
		}
	}
	return -1
}

// splitHunks separates the file header lines of a diff section from its
// hunks. A bare empty line inside a hunk is read as an empty context line,
// which LLMs often emit after trimming trailing spaces.
func splitHunks(raw string) (header []string, hunks []hunk) {
	var current *hunk
	for _, line := range strings.Split(strings.TrimRight(raw, "\n"), "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case strings.HasPrefix(line, "@@"):
			if current != nil && len(current.lines) > 0 {
				hunks = append(hunks, *current)
			}
			current = &hunk{}
		case current == nil:
			if strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ ") {
				header = append(header, line)
			}
		case line == "":
			current.lines = append(current.lines, " ")
		case strings.HasPrefix(line, "+"), strings.HasPrefix(line, "-"),
			strings.HasPrefix(line, " "), strings.HasPrefix(line, `\`):
			current.lines = append(current.lines, line)
		}
	}
	if current != nil && len(current.lines) > 0 {
		hunks = append(hunks, *current)
	}
	return header, hunks
}

// correctDiffHunks rebuilds a diff section with hunk headers that match the
// current source lines.
func correctDiffHunks(sourceLines []string, raw string) (string, error) {
	header, hunks := splitHunks(raw)
	if len(hunks) == 0 {
		return "", nil
	}

	var b strings.Builder
	for _, line := range header {
		b.WriteString(line + "\n")
	}

	offset, from := 0, 1
	for i, h := range hunks {
		block, lead := h.targetBlock()
		oldStart := matchBlock(sourceLines, block, from)
		if oldStart == -1 {
			return "", fmt.Errorf("could not find matching block for hunk %d", i+1)
		}
		if oldStart-lead >= 1 {
			oldStart -= lead
		}

		oldLines, newLines := h.counts()
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", oldStart, oldLines, oldStart+offset, newLines)
		for _, line := range h.lines {
			b.WriteString(line + "\n")
		}

		offset += newLines - oldLines
		from = oldStart + oldLines
	}
	return b.String(), nil
}
