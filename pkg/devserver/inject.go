package devserver

import (
	"bytes"
	"errors"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// injectScript inserts tag before the closing body tag of page, or appends it
// when the page has none. Everything else is copied byte for byte.
func injectScript(page []byte, tag string) []byte {
	var out bytes.Buffer
	out.Grow(len(page) + len(tag))

	z := html.NewTokenizer(bytes.NewReader(page))
	injected := false
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if !errors.Is(z.Err(), io.EOF) {
				// Not parseable as HTML; serve it untouched.
				return page
			}
			break
		}
		if !injected && tt == html.EndTagToken {
			if name, _ := z.TagName(); atom.Lookup(name) == atom.Body {
				out.WriteString(tag)
				injected = true
			}
		}
		out.Write(z.Raw())
	}

	if !injected {
		out.WriteString(tag)
	}
	return out.Bytes()
}
