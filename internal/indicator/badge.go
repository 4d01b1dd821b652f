// Package indicator is the compact, rotating price badge.
package indicator

import (
	"sync"
	"time"
)

// Badge is a host surface that shows short text on a colored background
// with a tooltip.
type Badge interface {
	SetText(text string)
	// SetColor sets the background color. An empty color clears it.
	SetColor(color string)
	SetTitle(title string)
}

type State struct {
	Text      string `json:"text"`
	Color     string `json:"color,omitempty"`
	Title     string `json:"title"`
	UpdatedAt int64  `json:"updated_at"`
}

var _ Badge = (*Board)(nil)

// Board keeps the badge state in memory for the HTTP surface to read.
type Board struct {
	mu    sync.RWMutex
	state State
}

func NewBoard() *Board {
	return &Board{}
}

func (b *Board) SetText(text string) {
	b.update(func(s *State) { s.Text = text })
}

func (b *Board) SetColor(color string) {
	b.update(func(s *State) { s.Color = color })
}

func (b *Board) SetTitle(title string) {
	b.update(func(s *State) { s.Title = title })
}

// Set replaces text, color and title in one update, so readers never see
// fields from two different renders.
func (b *Board) Set(text, color, title string) {
	b.update(func(s *State) {
		s.Text = text
		s.Color = color
		s.Title = title
	})
}

func (b *Board) Snapshot() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *Board) update(fn func(*State)) {
	b.mu.Lock()
	fn(&b.state)
	b.state.UpdatedAt = time.Now().Unix()
	b.mu.Unlock()
}
