package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// PlainChat reads one question per line from in and writes answers to out.
// It is used when stdin or stdout is not a terminal.
func PlainChat(ctx context.Context, a Answerer, in io.Reader, out io.Writer) error {
	st := NoColorStyles()
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		q := strings.TrimSpace(sc.Text())
		if q == "" {
			continue
		}
		if q == "/quit" || q == "/exit" {
			return nil
		}

		resp, err := a.Answer(ctx, q)
		if err != nil {
			_, _ = fmt.Fprintln(out, errorLine(err))
			continue
		}
		_, _ = fmt.Fprintln(out, RenderResponse(st, resp))
		_, _ = fmt.Fprintln(out)
	}
	return sc.Err()
}
