package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sokinpui/promp/model"
)

// PromptConfirmer lists the pending records and asks a (y/N) question on a
// line-oriented terminal. Anything but "y" or "yes" declines.
//
// The answer is read on a separate goroutine. When ctx is cancelled Confirm
// returns at once, but that goroutine stays blocked on In until a line or
// EOF arrives; close In to release it.
type PromptConfirmer struct {
	In  io.Reader
	Out io.Writer
}

// NewPromptConfirmer reads answers from stdin and prints to stderr.
func NewPromptConfirmer() *PromptConfirmer {
	return &PromptConfirmer{In: os.Stdin, Out: os.Stderr}
}

func (c *PromptConfirmer) Confirm(ctx context.Context, pending []model.Pending) (bool, error) {
	PrintPending(c.Out, pending)

	actionable := 0
	for _, p := range pending {
		if p.Actionable() {
			actionable++
		}
	}
	fmt.Fprint(c.Out, Prompt("\nApply %d change(s)? (y/N) ", actionable))

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(c.In).ReadString('\n')
		ch <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(c.Out)
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && a.err != io.EOF {
			return false, fmt.Errorf("failed to read confirmation: %w", a.err)
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}
