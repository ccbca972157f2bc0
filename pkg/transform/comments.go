package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gorilla/css/scanner"
)

// esbuild only prints "/*!" comments, and only where a rule may stand. Before
// a stylesheet goes through it, every comment sitting between rules becomes a
// numbered legal comment and every comment sitting between declarations
// becomes a numbered custom property; restoreComments puts the originals back.
// Comments inside a selector or a value are left alone and do not survive.

//nolint:gochecknoglobals // compiled once
var commentPlaceholder = regexp.MustCompile(`/\*!kiln:(\d+)\*/|--kiln-comment-(\d+):\s*0;`)

type blockKind int

const (
	ruleBlock blockKind = iota
	declarationBlock
	keyframesBlock
)

//nolint:gochecknoglobals // lookup table
var ruleListAtRules = map[string]bool{
	"media":          true,
	"supports":       true,
	"layer":          true,
	"container":      true,
	"document":       true,
	"-moz-document":  true,
	"scope":          true,
	"starting-style": true,
}

// protectComments replaces comments with placeholders esbuild keeps. It
// returns the input unchanged if the scanner cannot tokenize it.
func protectComments(css string) (string, []string) {
	var (
		out      strings.Builder
		comments []string
		stack    = []blockKind{ruleBlock}
		prelude  string // first token of the statement in progress
		pending  bool   // statement in progress
	)
	out.Grow(len(css))

	scan := scanner.New(css)
	for {
		token := scan.Next()
		switch token.Type {
		case scanner.TokenEOF:
			return out.String(), comments
		case scanner.TokenError:
			return css, nil
		case scanner.TokenS:
			out.WriteString(token.Value)
			continue
		case scanner.TokenComment:
			top := stack[len(stack)-1]
			if pending || top == keyframesBlock {
				out.WriteString(token.Value)
				continue
			}
			id := len(comments)
			comments = append(comments, token.Value)
			if top == declarationBlock {
				fmt.Fprintf(&out, "--kiln-comment-%d:0;", id)
			} else {
				fmt.Fprintf(&out, "/*!kiln:%d*/", id)
			}
			continue
		}

		out.WriteString(token.Value)

		if token.Type == scanner.TokenChar {
			switch token.Value {
			case "{":
				stack = append(stack, openedBlock(stack[len(stack)-1], prelude))
				prelude, pending = "", false
				continue
			case "}":
				if len(stack) > 1 {
					stack = stack[:len(stack)-1]
				}
				prelude, pending = "", false
				continue
			case ";":
				prelude, pending = "", false
				continue
			}
		}

		if !pending {
			pending = true
			if token.Type == scanner.TokenAtKeyword {
				prelude = strings.ToLower(strings.TrimPrefix(token.Value, "@"))
			}
		}
	}
}

// openedBlock is the kind of block a "{" opens inside parent, given the
// at-rule name starting its prelude ("" for a selector).
func openedBlock(parent blockKind, atRule string) blockKind {
	switch {
	case parent != ruleBlock:
		return declarationBlock
	case strings.HasSuffix(atRule, "keyframes"):
		return keyframesBlock
	case ruleListAtRules[atRule]:
		return ruleBlock
	default:
		return declarationBlock
	}
}

func restoreComments(css []byte, comments []string) []byte {
	if len(comments) == 0 {
		return css
	}
	return commentPlaceholder.ReplaceAllFunc(css, func(match []byte) []byte {
		groups := commentPlaceholder.FindSubmatch(match)
		digits := groups[1]
		if len(digits) == 0 {
			digits = groups[2]
		}
		id, err := strconv.Atoi(string(digits))
		if err != nil || id >= len(comments) {
			return match
		}
		return []byte(comments[id])
	})
}
