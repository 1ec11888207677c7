package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a transient, user-visible message (a toast).
type Notification struct {
	ID     string    `json:"id"`
	Level  Level     `json:"level"`
	Title  string    `json:"title"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

type Notifier interface {
	Success(title, detail string)
	Error(title string)
}

// Feed keeps the most recent notifications for the UI to pick up.
type Feed struct {
	mu    sync.Mutex
	limit int
	items []Notification
	log   logrus.FieldLogger
}

func NewFeed(limit int, log logrus.FieldLogger) *Feed {
	if limit <= 0 {
		limit = 50
	}
	return &Feed{limit: limit, log: log}
}

func (f *Feed) Success(title, detail string) {
	f.log.WithField("detail", detail).Info(title)
	f.push(LevelSuccess, title, detail)
}

func (f *Feed) Error(title string) {
	f.log.Warn(title)
	f.push(LevelError, title, "")
}

func (f *Feed) push(level Level, title, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = append(f.items, Notification{
		ID:     uuid.New().String(),
		Level:  level,
		Title:  title,
		Detail: detail,
		At:     time.Now(),
	})
	if over := len(f.items) - f.limit; over > 0 {
		f.items = append(f.items[:0:0], f.items[over:]...)
	}
}

// Recent returns the buffered notifications, oldest first.
func (f *Feed) Recent() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.items...)
}

// Drain returns the buffered notifications and empties the feed.
func (f *Feed) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.items
	f.items = nil
	return out
}
