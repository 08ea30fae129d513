package screenshot

import (
	"context"
	"fmt"
	"time"
)

// Size is a rendered page size in CSS pixels.
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// OrElse returns fallback when either dimension of s is not positive.
func (s Size) OrElse(fallback Size) Size {
	if s.Width <= 0 || s.Height <= 0 {
		return fallback
	}
	return s
}

// MeasureFunc reads the current layout size.
type MeasureFunc func(ctx context.Context) (Size, error)

// WaitStable polls measure every interval until two consecutive reads
// match, or until maxWait has elapsed. It returns the last measurement and
// whether it was stable. Only measure errors and ctx cancellation fail.
func WaitStable(ctx context.Context, measure MeasureFunc, interval, maxWait time.Duration) (Size, bool, error) {
	deadline := time.Now().Add(maxWait)

	prev, err := measure(ctx)
	if err != nil {
		return Size{}, false, err
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return prev, false, ctx.Err()
		case <-timer.C:
		}

		cur, err := measure(ctx)
		if err != nil {
			return prev, false, err
		}
		if cur == prev {
			return cur, true, nil
		}
		prev = cur

		if !time.Now().Before(deadline) {
			return cur, false, nil
		}
		timer.Reset(interval)
	}
}
