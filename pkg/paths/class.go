package paths

//go:generate go tool golang.org/x/tools/cmd/stringer -type=Class -linecomment

// Class is an asset class: a category of source file with its own glob
// pattern and output location.
type Class int

const (
	Markup  Class = iota // markup
	Styles               // styles
	Scripts              // scripts
	Images               // images
	Fonts                // fonts
)

// Classes lists every asset class in declaration order.
func Classes() []Class {
	return []Class{Markup, Styles, Scripts, Images, Fonts}
}

// ParseClass returns the class whose name is s.
func ParseClass(s string) (Class, bool) {
	for _, c := range Classes() {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}
