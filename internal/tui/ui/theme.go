package ui

import "github.com/gdamore/tcell/v2"

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor           tcell.Color
	FgColor           tcell.Color
	BorderColor       tcell.Color
	BorderFocusColor  tcell.Color
	TableHeaderFg     tcell.Color
	TableHeaderBg     tcell.Color
	TableCursorFg     tcell.Color
	TableCursorBg     tcell.Color
	CrumbActiveFg     tcell.Color
	CrumbActiveBg     tcell.Color
	CrumbInactiveFg   tcell.Color
	CrumbInactiveBg   tcell.Color
	MenuKeyColor      tcell.Color
	NumericKeyColor   tcell.Color
	TitleColor        tcell.Color
	CounterColor      tcell.Color
	FlashInfoColor    tcell.Color
	FlashWarnColor    tcell.Color
	FlashErrColor     tcell.Color
	PromptBorderColor tcell.Color
	UnreadColor       tcell.Color
	PendingColor      tcell.Color
	ErrorColor        tcell.Color
	OwnMessageColor   tcell.Color
}

// DefaultTheme returns the dark navy and brass palette.
func DefaultTheme() *Theme {
	const (
		navy  = tcell.ColorMidnightBlue
		brass = tcell.ColorGoldenrod
		paper = tcell.ColorWhiteSmoke
		slate = tcell.ColorLightSlateGray
	)
	return &Theme{
		BgColor:           tcell.ColorDefault,
		FgColor:           paper,
		BorderColor:       slate,
		BorderFocusColor:  brass,
		TableHeaderFg:     brass,
		TableHeaderBg:     tcell.ColorDefault,
		TableCursorFg:     paper,
		TableCursorBg:     navy,
		CrumbActiveFg:     navy,
		CrumbActiveBg:     brass,
		CrumbInactiveFg:   paper,
		CrumbInactiveBg:   navy,
		MenuKeyColor:      brass,
		NumericKeyColor:   tcell.ColorSkyblue,
		TitleColor:        brass,
		CounterColor:      paper,
		FlashInfoColor:    tcell.ColorLightGreen,
		FlashWarnColor:    tcell.ColorSandyBrown,
		FlashErrColor:     tcell.ColorIndianRed,
		PromptBorderColor: brass,
		UnreadColor:       tcell.ColorLightGreen,
		PendingColor:      slate,
		ErrorColor:        tcell.ColorIndianRed,
		OwnMessageColor:   tcell.ColorSkyblue,
	}
}
