package log

const (
	Chain    = "chain"
	Class    = "class"
	Digest   = "digest"
	Dir      = "dir"
	Duration = "duration"
	Error    = "error"
	Event    = "event"
	Files    = "files"
	Kind     = "kind"
	Path     = "path"
	Pattern  = "pattern"
	Run      = "run"
	Step     = "step"
	Written  = "written"
	Addr     = "addr"
	Clients  = "clients"
)
