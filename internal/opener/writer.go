package opener

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Writer prints each link on its own line. It never refuses.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (p *Writer) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintln(p.w, url)
	return err
}
