package thread

// Anchor keeps the viewport on the same message when older history is
// prepended above it.
type Anchor struct {
	before int
	set    bool
}

// Mark records the content height before a prepend.
func (a *Anchor) Mark(height int) {
	a.before = height
	a.set = true
}

// Restore returns the scroll row that shows what row showed before the
// prepend, given the new content height. Without a mark, row is unchanged.
func (a *Anchor) Restore(row, after int) int {
	if !a.set {
		return row
	}
	a.set = false
	next := row + (after - a.before)
	if next < 0 {
		return 0
	}
	return next
}

// Pending reports whether a mark awaits restoration.
func (a *Anchor) Pending() bool { return a.set }
