package harness

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Category names one response panel
type Category string

const (
	CategoryAuth      Category = "auth"
	CategoryStudy     Category = "study"
	CategoryWebSocket Category = "websocket"
	CategorySession   Category = "session"
	CategoryHealth    Category = "health"
)

// Categories lists all panels in display order
var Categories = []Category{
	CategoryAuth,
	CategoryStudy,
	CategoryWebSocket,
	CategorySession,
	CategoryHealth,
}

// Valid reports whether the category is one of the known panels
func (category Category) Valid() bool {
	for _, known := range Categories {
		if category == known {
			return true
		}
	}
	return false
}

// Board keeps the last formatted response of every category.
// Every Present call overwrites the previous value of its category; nothing is accumulated.
type Board struct {
	mtx    sync.RWMutex
	panels map[Category]string
}

// NewBoard creates a new empty board
func NewBoard() *Board {
	return &Board{
		panels: make(map[Category]string),
	}
}

// Present formats the given value and stores it as the category's panel text.
// Strings are stored as they are, everything else as indented JSON.
func (board *Board) Present(category Category, value any) string {
	text := Format(value)
	board.mtx.Lock()
	defer board.mtx.Unlock()
	board.panels[category] = text
	return text
}

// Panel returns the current text of a category and whether it was ever set
func (board *Board) Panel(category Category) (string, bool) {
	board.mtx.RLock()
	defer board.mtx.RUnlock()
	text, ok := board.panels[category]
	return text, ok
}

// Snapshot returns a copy of all panels
func (board *Board) Snapshot() map[Category]string {
	board.mtx.RLock()
	defer board.mtx.RUnlock()
	snapshot := make(map[Category]string, len(board.panels))
	for category, text := range board.panels {
		snapshot[category] = text
	}
	return snapshot
}

// Format renders a value the way panels show it
func Format(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case error:
		return typed.Error()
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(typed, &decoded); err != nil {
			return string(typed)
		}
		value = decoded
	}
	formatted, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(formatted)
}
