package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

var (
	// ErrNoPayloadFound means no recognizable change payload was in the text.
	ErrNoPayloadFound = errors.New("no payload found")
	// ErrMalformedBatch means a delimited-block payload had no usable header.
	ErrMalformedBatch = errors.New("malformed batch")
	// ErrInvalidEncoding means a structured payload could not be decoded.
	ErrInvalidEncoding = errors.New("invalid encoding")

	// ErrDeclined is returned when the user rejects the confirmation gate.
	ErrDeclined = errors.New("declined by user")
	// ErrNoTerminal means the response came on stdin and no terminal is left
	// to ask for confirmation on.
	ErrNoTerminal = errors.New("stdin carried the response and no terminal is available to confirm; pass --yes to apply without asking")

	// ErrToolNotFound means the external patch utility is not installed.
	ErrToolNotFound = errors.New("patch tool not found")
	// ErrPatchRejected matches any *PatchRejectedError.
	ErrPatchRejected = errors.New("patch rejected")
)

// BatchError is a batch-level parse failure. No file has been touched when
// one is returned.
type BatchError struct {
	Err error
	// Size is the length in bytes of the content that failed.
	Size int
	// Location points into that content, e.g. "line 4, byte 37". May be empty.
	Location string
	Detail   string
}

func (e *BatchError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	fmt.Fprintf(&b, " (%s read", humanize.Bytes(uint64(e.Size)))
	if e.Location != "" {
		b.WriteString(", at ")
		b.WriteString(e.Location)
	}
	b.WriteString(")")
	return b.String()
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// PatchRejectedError carries the external tool's output verbatim.
type PatchRejectedError struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *PatchRejectedError) Error() string {
	out := strings.TrimSpace(e.Stderr)
	if out == "" {
		out = strings.TrimSpace(e.Stdout)
	}
	return fmt.Sprintf("patch rejected (exit %d): %s", e.ExitCode, out)
}

func (e *PatchRejectedError) Is(target error) bool {
	return target == ErrPatchRejected
}
