// Package exit maps errors to process exit codes.
package exit

import (
	"errors"
	"fmt"
)

// Statuser is implemented by errors that carry an exit status code.
type Statuser interface {
	ExitStatus() int
}

type fatalError struct {
	code int
	error
}

func (f fatalError) ExitStatus() int {
	return f.code
}

func (f fatalError) Unwrap() error {
	return f.error
}

// Fatalf returns an error that makes kiln exit with code after printing the
// formatted message.
func Fatalf(code int, format string, args ...any) error {
	return fatalError{
		code:  code,
		error: fmt.Errorf(format, args...),
	}
}

// Status returns 0 for nil, the code of the first Statuser in err's tree, or
// 1 for any other error.
func Status(err error) int {
	if err == nil {
		return 0
	}
	var statuser Statuser
	if errors.As(err, &statuser) {
		return statuser.ExitStatus()
	}
	return 1
}
