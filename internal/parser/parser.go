package parser

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/sokinpui/promp/internal/extract"
	"github.com/sokinpui/promp/model"
)

// Parse converts an extracted payload into a Batch. Only batch-level
// problems are returned as errors; per-record oddities stay in the batch
// for the validator to flag.
func Parse(p extract.Payload) (*model.Batch, error) {
	batch := &model.Batch{Dialect: p.Dialect}

	var (
		records  []model.ChangeRecord
		warnings []string
		err      error
	)
	switch p.Dialect {
	case model.DialectBlocks:
		records, err = ParseBlocks(p.Text)
	case model.DialectJSON:
		records, warnings, err = ParseJSON(p.Text)
	default:
		return nil, fmt.Errorf("cannot parse payload of format %q", p.Dialect)
	}
	if err != nil {
		return nil, err
	}

	records, dupWarnings := foldDuplicates(records)
	batch.Records = records
	batch.Warnings = append(warnings, dupWarnings...)

	slog.Debug("parsed batch", "dialect", p.Dialect, "records", len(batch.Records), "warnings", len(batch.Warnings))
	return batch, nil
}

// ParseBlocks tokenizes a delimited-block payload. A header token is a whole
// `---- <path> ----` line; a content token is everything up to the next
// header or the end of input. Text before the first header is discarded.
func ParseBlocks(text string) ([]model.ChangeRecord, error) {
	var (
		records      []model.ChangeRecord
		currentPath  string
		inBlock      bool
		contentStart int
	)

	flush := func(end int) {
		if !inBlock {
			return
		}
		records = append(records, model.ChangeRecord{
			Path:         currentPath,
			Operation:    model.OpUpdate,
			RawOperation: string(model.OpUpdate),
			Content:      strings.TrimRightFunc(text[contentStart:end], unicode.IsSpace),
			HasContent:   true,
		})
	}

	for pos := 0; pos < len(text); {
		nl := strings.IndexByte(text[pos:], '\n')
		if nl < 0 {
			// An unterminated last line is never a header.
			break
		}
		lineEnd := pos + nl
		if p, ok := extract.HeaderPath(text[pos:lineEnd]); ok {
			flush(pos)
			currentPath = p
			inBlock = true
			contentStart = lineEnd + 1
		}
		pos = lineEnd + 1
	}
	flush(len(text))

	if len(records) == 0 {
		return nil, &model.BatchError{
			Err:    model.ErrMalformedBatch,
			Size:   len(text),
			Detail: "no `---- path ----` header line found",
		}
	}
	return records, nil
}

// NormalizeOperation lower-cases a payload operation and maps anything
// unrecognized onto OpUnknown.
func NormalizeOperation(raw string) model.Operation {
	switch op := model.Operation(strings.ToLower(strings.TrimSpace(raw))); op {
	case model.OpCreate, model.OpUpdate, model.OpDelete:
		return op
	}
	return model.OpUnknown
}

func foldDuplicates(records []model.ChangeRecord) ([]model.ChangeRecord, []string) {
	last := make(map[string]int, len(records))
	for i, r := range records {
		if r.Path == "" {
			continue
		}
		last[pathKey(r.Path)] = i
	}

	dups := mapset.NewThreadUnsafeSet[string]()
	var warnings []string
	kept := make([]model.ChangeRecord, 0, len(records))
	for i, r := range records {
		if r.Path != "" {
			key := pathKey(r.Path)
			if last[key] != i {
				if dups.Add(key) {
					warnings = append(warnings, fmt.Sprintf("duplicate path %q: last record wins", r.Path))
				}
				continue
			}
		}
		kept = append(kept, r)
	}
	return kept, warnings
}

func pathKey(p string) string {
	return path.Clean(filepath.ToSlash(p))
}
