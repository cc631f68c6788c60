package typewriter

import (
	"context"
	"io"
	"time"
)

const DefaultDelay = 10 * time.Millisecond

// Typewriter reveals text one character at a time.
type Typewriter struct {
	Delay time.Duration
}

func New(delay time.Duration) *Typewriter {
	if delay < 0 {
		delay = 0
	}
	return &Typewriter{Delay: delay}
}

// Type calls emit once per rune of text, pausing Delay after each one.
// It returns early with ctx.Err() or the first emit error.
func (t *Typewriter) Type(ctx context.Context, text string, emit func(string) error) error {
	var timer *time.Timer
	if t.Delay > 0 {
		timer = time.NewTimer(t.Delay)
		timer.Stop()
		defer timer.Stop()
	}

	for _, r := range text {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(string(r)); err != nil {
			return err
		}
		if timer == nil {
			continue
		}
		timer.Reset(t.Delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

func (t *Typewriter) Write(ctx context.Context, w io.Writer, text string) error {
	return t.Type(ctx, text, func(s string) error {
		_, err := io.WriteString(w, s)
		return err
	})
}
