package step

import (
	"errors"
	"fmt"
)

//go:generate go tool golang.org/x/tools/cmd/stringer -type=Kind -linecomment

// Kind classifies step failures.
type Kind int

const (
	SourceRead Kind = iota // source read error
	Transform              // transform error
	Write                  // write error
	WatchSetup             // watch setup error
)

// Error is a failure of one step on one path.
type Error struct {
	Kind Kind
	Step string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s: %v", e.Step, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s: %v", e.Step, e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's tree.
func KindOf(err error) (Kind, bool) {
	var stepErr *Error
	if errors.As(err, &stepErr) {
		return stepErr.Kind, true
	}
	return 0, false
}
