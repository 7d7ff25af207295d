package store

// Page is 1-based offset pagination.  The query services clamp Size
// before it reaches a store, but stores still defend against zero
// values so direct callers cannot request unbounded reads.
type Page struct {
	Number int
	Size   int
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	n := p.Number
	if n < 1 {
		n = 1
	}
	return (n - 1) * p.Limit()
}

// Limit returns the row cap for the page, never zero.
func (p Page) Limit() int {
	if p.Size < 1 {
		return 50
	}
	return p.Size
}
