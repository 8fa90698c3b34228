package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ketram/parley/pkg/domain"
)

// ExtraHandlerFunc is a callback attached around a component's body.
type ExtraHandlerFunc func(ctx context.Context, dc *domain.Context, p *Pipeline, info RuntimeInfo) error

// ExtraOption configures an ExtraHandler.
type ExtraOption func(*ExtraHandler)

// ExtraConcurrent makes the handler run its callbacks in parallel instead of
// in list order.
func ExtraConcurrent() ExtraOption {
	return func(h *ExtraHandler) { h.async = true }
}

// ExtraTimeout bounds the handler's total execution time. Exceeding it logs
// a warning and abandons the remaining callbacks; it never fails the
// component.
func ExtraTimeout(d time.Duration) ExtraOption {
	return func(h *ExtraHandler) { h.timeout = d }
}

// ExtraHandler holds an ordered list of callbacks that run before or after a
// component's body. Callbacks run sequentially unless the handler is marked
// concurrent.
type ExtraHandler struct {
	stage   Stage
	fns     []ExtraHandlerFunc
	async   bool
	timeout time.Duration
}

// NewExtraHandler builds a handler over the given callbacks. The stage is
// assigned when the handler is attached to a component.
func NewExtraHandler(fns []ExtraHandlerFunc, opts ...ExtraOption) *ExtraHandler {
	h := &ExtraHandler{fns: fns}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *ExtraHandler) add(fn ExtraHandlerFunc) {
	h.fns = append(h.fns, fn)
}

// run executes the callbacks. A returned error means a callback failed; a
// timeout is logged and swallowed.
func (h *ExtraHandler) run(ctx context.Context, dc *domain.Context, p *Pipeline, info RuntimeInfo) error {
	if h == nil || len(h.fns) == 0 {
		return nil
	}
	if h.timeout <= 0 {
		return h.call(ctx, dc, p, info)
	}

	tctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- h.call(tctx, dc, p, info)
	}()

	select {
	case err := <-done:
		return err
	case <-tctx.Done():
		if errors.Is(tctx.Err(), context.DeadlineExceeded) {
			p.log().Warn("extra handler timed out",
				"stage", h.stage,
				"component", info.Path,
				"timeout", h.timeout)
		}
		return nil
	}
}

func (h *ExtraHandler) call(ctx context.Context, dc *domain.Context, p *Pipeline, info RuntimeInfo) error {
	if !h.async {
		for _, fn := range h.fns {
			if err := fn(ctx, dc, p, info); err != nil {
				return err
			}
		}
		return nil
	}

	errs := make([]error, len(h.fns))
	var wg sync.WaitGroup
	for i, fn := range h.fns {
		wg.Add(1)
		go func(i int, fn ExtraHandlerFunc) {
			defer wg.Done()
			errs[i] = fn(ctx, dc, p, info)
		}(i, fn)
	}
	wg.Wait()
	return errors.Join(errs...)
}
