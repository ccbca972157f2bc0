package watch

import (
	"sync"

	"github.com/yaklabco/kiln/pkg/paths"
)

//go:generate go tool golang.org/x/tools/cmd/stringer -type=State -linecomment

// State is a binding's dispatch state.
type State int

const (
	Idle        State = iota // idle
	Dispatching              // dispatching
)

// binding ties one asset class's watch pattern to the step it re-runs. Changes
// queue on the binding and are drained by its own dispatcher goroutine.
type binding struct {
	class paths.Class

	mu      sync.Mutex
	state   State
	pending []string
	queued  map[string]struct{}

	// wake holds at most one signal: any number of changes that arrive before
	// the dispatcher looks are handled by one run.
	wake chan struct{}
}

func newBinding(class paths.Class) *binding {
	return &binding{
		class:  class,
		queued: make(map[string]struct{}),
		wake:   make(chan struct{}, 1),
	}
}

func (b *binding) enqueue(path string) {
	b.mu.Lock()
	if _, ok := b.queued[path]; !ok {
		b.queued[path] = struct{}{}
		b.pending = append(b.pending, path)
	}
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// take returns the queued changes in arrival order and marks the binding
// Dispatching when there are any.
func (b *binding) take() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	files := b.pending
	b.pending = nil
	b.queued = make(map[string]struct{})
	if len(files) > 0 {
		b.state = Dispatching
	}
	return files
}

func (b *binding) idle() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Idle
}

func (b *binding) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
