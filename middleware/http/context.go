package http

// ContextKey is the type of keys this package stores in request contexts.
type ContextKey uint

const (
	NoKey ContextKey = iota
	ClientIP
)
