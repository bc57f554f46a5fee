package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/lexchat/internal/chatapi"
	"github.com/rivo/tview"
)

// FlashLevel represents the severity of a flash message.
type FlashLevel int

const (
	FlashInfo FlashLevel = iota
	FlashWarn
	FlashErr
)

var flashTTL = map[FlashLevel]time.Duration{
	FlashInfo: 4 * time.Second,
	FlashWarn: 8 * time.Second,
	FlashErr:  12 * time.Second,
}

// FlashMessage is a transient notice. Repeat counts identical notices
// raised while the first was still showing.
type FlashMessage struct {
	Text    string
	Level   FlashLevel
	Repeat  int
	Expires time.Time
}

// FlashModel holds the one notice currently shown under the pages.
type FlashModel struct {
	mu      sync.RWMutex
	current FlashMessage
	now     func() time.Time
	notify  chan struct{}
}

// NewFlashModel creates an empty flash model.
func NewFlashModel() *FlashModel {
	return &FlashModel{
		now:    time.Now,
		notify: make(chan struct{}, 1),
	}
}

// Info shows a confirmation such as "Conversation ready".
func (f *FlashModel) Info(msg string) { f.set(msg, FlashInfo) }

// Warn shows a usage problem such as an unknown command.
func (f *FlashModel) Warn(msg string) { f.set(msg, FlashWarn) }

// Err shows a failed request. Cancellations are not failures and are
// dropped.
func (f *FlashModel) Err(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	f.set(describeError(err), FlashErr)
}

// Clear removes the current notice.
func (f *FlashModel) Clear() {
	f.mu.Lock()
	f.current = FlashMessage{}
	f.mu.Unlock()
	f.signal()
}

func (f *FlashModel) set(msg string, level FlashLevel) {
	now := f.now()
	f.mu.Lock()
	if f.current.Text == msg && f.current.Level == level && now.Before(f.current.Expires) {
		f.current.Repeat++
	} else {
		f.current = FlashMessage{Text: msg, Level: level, Repeat: 1}
	}
	f.current.Expires = now.Add(flashTTL[level])
	f.mu.Unlock()
	f.signal()
}

func (f *FlashModel) signal() {
	select {
	case f.notify <- struct{}{}:
	default:
	}
}

// Get returns the current notice text, or "" once it expired.
func (f *FlashModel) Get() string {
	if m := f.GetMessage(); m != nil {
		return m.Text
	}
	return ""
}

// GetMessage returns the current notice, or nil once it expired.
func (f *FlashModel) GetMessage() *FlashMessage {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.current.Text == "" || !f.now().Before(f.current.Expires) {
		return nil
	}
	m := f.current
	return &m
}

// Watch fires whenever the notice changes. Signals coalesce.
func (f *FlashModel) Watch() <-chan struct{} {
	return f.notify
}

// describeError turns client errors into one line fit for the flash bar.
func describeError(err error) string {
	var httpErr *chatapi.HTTPError
	var transportErr *chatapi.TransportError
	switch {
	case errors.As(err, &httpErr) && httpErr.RequestID != "":
		return err.Error() + " (request " + httpErr.RequestID + ")"
	case errors.As(err, &transportErr):
		return "backend unreachable: " + err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return err.Error() + " (timed out)"
	default:
		return err.Error()
	}
}

// FlashBar is the UI component that displays flash notifications.
type FlashBar struct {
	*tview.TextView
	theme *Theme
}

// NewFlashBar creates a new flash notification bar.
func NewFlashBar(theme *Theme) *FlashBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &FlashBar{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders msg, or blanks the bar when msg is nil.
func (fb *FlashBar) Update(msg *FlashMessage) {
	fb.Clear()
	if msg == nil {
		return
	}

	color := fb.theme.FlashInfoColor
	switch msg.Level {
	case FlashWarn:
		color = fb.theme.FlashWarnColor
	case FlashErr:
		color = fb.theme.FlashErrColor
	}
	text := tview.Escape(msg.Text)
	if msg.Repeat > 1 {
		text += fmt.Sprintf(" (x%d)", msg.Repeat)
	}
	_, _ = fmt.Fprintf(fb, " [%s]%s[-]", ColorName(color), text)
}
