package pagination

// Page is a clamped offset/limit window. Discovery, match and conversation
// lists paginate after in-memory filtering, so the window is applied to the
// already-filtered slice and Total reflects the post-filter count.
type Page struct {
	Limit  int
	Offset int
}

// Clamp normalizes the window: non-positive limits fall back to def, limits
// above max are capped, negative offsets become zero.
func Clamp(limit, offset, def, max int) Page {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}

// Bounds returns the [start, end) slice indices for a list of n elements.
func (p Page) Bounds(n int) (int, int) {
	start := p.Offset
	if start > n {
		start = n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}

// HasMore reports whether elements exist past this window in a list of n.
func (p Page) HasMore(n int) bool {
	return p.Offset+p.Limit < n
}

// Slice applies the window to a slice, returning the page and the total.
func Slice[T any](items []T, p Page) ([]T, int) {
	start, end := p.Bounds(len(items))
	return items[start:end], len(items)
}
