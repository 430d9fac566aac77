package parser

// strategy is one named way of extracting a field. ok reports whether it produced a usable
// value; an unusable value is never returned to the caller.
type strategy[T any] struct {
	name string
	fn   func(*page) (T, bool)
}

func try[T any](name string, fn func(*page) (T, bool)) strategy[T] {
	return strategy[T]{name: name, fn: fn}
}

// firstOf runs strategies in order and returns the first usable value along with the name
// of the strategy that produced it. Later strategies are not evaluated.
func firstOf[T any](p *page, strategies ...strategy[T]) (T, string, bool) {
	for _, s := range strategies {
		if v, ok := s.fn(p); ok {
			return v, s.name, true
		}
	}
	var zero T
	return zero, "", false
}
