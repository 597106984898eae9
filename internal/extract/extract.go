// Package extract locates the machine-readable change payload embedded in
// an LLM response.
package extract

import (
	"log/slog"
	"strings"

	"github.com/sokinpui/promp/model"
)

const (
	headerOpen  = "---- "
	headerClose = " ----"
	// headerMark may not appear inside a header path.
	headerMark = "----"
	// byteOrderMark is what editors on Windows tend to put in front of a
	// saved response.
	byteOrderMark = "\ufeff"
)

// Payload is the dialect-specific part of a response.
type Payload struct {
	Dialect model.Dialect
	Text    string
	// Offset is the byte offset of Text within the raw response.
	Offset int
	// Fenced is true when Text came from a ```json block.
	Fenced bool
}

// HeaderPath reports whether line (without its terminating newline) is a
// `---- <path> ----` header, returning the trimmed path.
func HeaderPath(line string) (string, bool) {
	line = strings.TrimSuffix(line, "\r")
	if len(line) < len(headerOpen)+len(headerClose) {
		return "", false
	}
	if !strings.HasPrefix(line, headerOpen) || !strings.HasSuffix(line, headerClose) {
		return "", false
	}
	path := strings.TrimSpace(line[len(headerOpen) : len(line)-len(headerClose)])
	if path == "" || strings.Contains(path, headerMark) {
		return "", false
	}
	return path, true
}

// HasHeader reports whether text holds at least one newline-terminated
// header line.
func HasHeader(text string) bool {
	for {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			return false
		}
		if _, ok := HeaderPath(text[:i]); ok {
			return true
		}
		text = text[i+1:]
	}
}

// Detect picks the dialect of a response. Delimited headers win over JSON so
// that a file block may itself contain a ```json example.
func Detect(raw string) (model.Dialect, error) {
	if strings.TrimSpace(raw) == "" {
		return "", noPayload(raw, "response is empty")
	}
	text := strings.TrimPrefix(raw, byteOrderMark)
	if HasHeader(text) {
		return model.DialectBlocks, nil
	}
	if _, ok := FirstBlock([]byte(text), "json"); ok {
		return model.DialectJSON, nil
	}
	if strings.HasPrefix(strings.TrimSpace(text), "{") {
		return model.DialectJSON, nil
	}
	return "", noPayload(raw, "expected `---- path ----` headers, a ```json block or a JSON document")
}

// Extract isolates the payload for the wanted dialect. DialectAuto runs
// Detect first. A leading byte order mark is dropped. Extract never touches
// the filesystem.
func Extract(raw string, want model.Dialect) (Payload, error) {
	text := strings.TrimPrefix(raw, byteOrderMark)
	if strings.TrimSpace(text) == "" {
		return Payload{}, noPayload(raw, "response is empty")
	}
	bom := len(raw) - len(text)

	dialect := want
	if dialect == model.DialectAuto || dialect == "" {
		d, err := Detect(text)
		if err != nil {
			return Payload{}, err
		}
		dialect = d
	}

	switch dialect {
	case model.DialectBlocks:
		return Payload{Dialect: model.DialectBlocks, Text: text, Offset: bom}, nil
	case model.DialectJSON:
		if block, ok := FirstBlock([]byte(text), "json"); ok {
			slog.Debug("using fenced json block", "offset", bom+block.Offset, "size", len(block.Content))
			return Payload{Dialect: model.DialectJSON, Text: block.Content, Offset: bom + block.Offset, Fenced: true}, nil
		}
		slog.Debug("no fenced json block, using the whole response")
		return Payload{Dialect: model.DialectJSON, Text: text, Offset: bom}, nil
	}
	return Payload{}, noPayload(raw, "unsupported format "+string(dialect))
}

func noPayload(raw, detail string) error {
	return &model.BatchError{
		Err:    model.ErrNoPayloadFound,
		Size:   len(raw),
		Detail: detail,
	}
}
