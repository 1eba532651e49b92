package stores

import (
	"sync"
)

// Storage is the gateway's storage surface: the in-memory application
// state plus the per-chat redis history cache.
type Storage interface {
	State() *State
	History(chatID string) HistoryCache
}

// vars ...
var (
	_ Storage = (*Wrap)(nil)

	stoOnce sync.Once
	stoW    *Wrap
)

// Wrap implements Storage
type Wrap struct {
	state *State
}

// NewWrap return new instance of Wrap
func NewWrap() *Wrap {
	return &Wrap{state: NewState()}
}

// Sgt start and return a singleton instance of Storage
func Sgt() *Wrap {
	stoOnce.Do(func() {
		stoW = NewWrap()
	})
	return stoW
}

func (w *Wrap) State() *State { return w.state }

func (w *Wrap) History(chatID string) HistoryCache {
	return NewHistoryCache(chatID)
}
