package memctx

import (
	"fmt"

	"go.uber.org/multierr"
)

// CleanupSet collects teardown funcs and runs them LIFO, the order contexts
// themselves unwind. Every func runs even when earlier ones fail or panic;
// failures are aggregated into one error.
type CleanupSet struct {
	fns []func() error
}

// Add appends a cleanup func.
func (s *CleanupSet) Add(fn func() error) {
	s.fns = append(s.fns, fn)
}

// Len returns the number of pending cleanups.
func (s *CleanupSet) Len() int { return len(s.fns) }

// Run executes all cleanups in reverse registration order and clears the set.
func (s *CleanupSet) Run() error {
	var err error
	for i := len(s.fns) - 1; i >= 0; i-- {
		err = multierr.Append(err, runOne(s.fns[i]))
	}
	s.fns = nil
	return err
}

func runOne(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cleanup panicked: %v", r)
		}
	}()
	return fn()
}
