package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/sokinpui/promp/model"
)

// document is the structured-list payload. Unknown fields are ignored.
// Each change is decoded on its own so one malformed entry only costs that
// record.
type document struct {
	Changes []json.RawMessage `json:"changes"`
}

// change keeps every field raw; a value of the wrong JSON type is treated
// as absent.
type change struct {
	FilePath  json.RawMessage `json:"file_path"`
	Operation json.RawMessage `json:"operation"`
	Content   json.RawMessage `json:"content"`
}

const nothingToApply = "nothing to apply: the payload has no changes"

// ParseJSON decodes a structured-list payload. An empty or missing changes
// list is not an error; it yields no records and a warning.
func ParseJSON(text string) ([]model.ChangeRecord, []string, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, nil, &model.BatchError{
			Err:    model.ErrInvalidEncoding,
			Size:   len(text),
			Detail: "top-level value must be an object with a \"changes\" list",
		}
	}

	var doc document
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, nil, &model.BatchError{
			Err:      model.ErrInvalidEncoding,
			Size:     len(text),
			Location: errorLocation(text, err),
			Detail:   err.Error(),
		}
	}

	if len(doc.Changes) == 0 {
		return nil, []string{nothingToApply}, nil
	}

	records := make([]model.ChangeRecord, 0, len(doc.Changes))
	for _, raw := range doc.Changes {
		records = append(records, decodeChange(raw))
	}
	return records, nil, nil
}

func decodeChange(raw json.RawMessage) model.ChangeRecord {
	var c change
	if err := json.Unmarshal(raw, &c); err != nil {
		return model.ChangeRecord{Operation: model.OpUnknown, RawOperation: string(raw)}
	}

	path, _ := stringValue(c.FilePath)
	r := model.ChangeRecord{Path: strings.TrimSpace(path)}
	if op, ok := stringValue(c.Operation); ok {
		r.Operation = NormalizeOperation(op)
		r.RawOperation = op
	} else {
		r.Operation = model.OpUnknown
		r.RawOperation = string(c.Operation)
	}
	r.Content, r.HasContent = stringValue(c.Content)
	return r
}

// stringValue decodes a JSON string. Absent, null and non-string values
// report false.
func stringValue(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func errorLocation(text string, err error) string {
	var offset int64 = -1

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	}
	if offset < 0 || offset > int64(len(text)) {
		return ""
	}
	line := 1 + strings.Count(text[:offset], "\n")
	return fmt.Sprintf("line %d, byte %d", line, offset)
}
