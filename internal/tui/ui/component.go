package ui

// MenuHint describes a keyboard shortcut for display in the menu bar.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // digit shortcuts, drawn in NumericKeyColor
}

// Component is a page of the app. Init runs once before the first draw,
// Start each time the page gains focus, Stop on exit. Name labels the page
// in the breadcrumb trail.
type Component interface {
	Name() string
	Init()
	Start()
	Stop()
	Hints() []MenuHint
}
