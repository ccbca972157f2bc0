package transform

import (
	"context"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
)

const (
	mediaCSS = "text/css"
	mediaJS  = "application/javascript"
)

// Minifier compresses stylesheets and scripts. z-index values are never
// rebased.
type Minifier struct {
	m *minify.M
}

// NewMinifier returns a minifier for CSS and JavaScript.
func NewMinifier() *Minifier {
	m := minify.New()
	m.Add(mediaCSS, &css.Minifier{})
	m.Add(mediaJS, &js.Minifier{})
	return &Minifier{m: m}
}

// CSS returns the stylesheet minification transform.
func (m *Minifier) CSS() Transform {
	return Contents("minify-css", func(_ context.Context, file File) ([]byte, error) {
		return m.m.Bytes(mediaCSS, file.Contents)
	})
}

// JS returns the script minification transform.
func (m *Minifier) JS() Transform {
	return Contents("minify-js", func(_ context.Context, file File) ([]byte, error) {
		return m.m.Bytes(mediaJS, file.Contents)
	})
}
