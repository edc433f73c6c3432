package feed

import (
	"strconv"
	"sync"

	"github.com/puyokura/roomchat/model"
)

// Entry is one delivered message as it appears on screen.
type Entry struct {
	Seq     int
	ID      model.ID
	Sender  string
	Content string
	// Mine marks messages sent by the viewing user.
	Mine bool
}

// Log is the append-only, ordered record of every message delivered to the
// view. Entries are never removed or reordered.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	seen    map[model.ID]bool
	last    model.ID
}

func NewLog() *Log {
	return &Log{seen: make(map[model.ID]bool)}
}

// Append adds msgs in order and returns the entries it added. A message the
// backend identified and that is already in the log is skipped; messages
// without an id are taken as new.
func (l *Log) Append(msgs []model.Message, self string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var added []Entry
	for _, m := range msgs {
		if m.ID != "" {
			if l.seen[m.ID] {
				continue
			}
			l.seen[m.ID] = true
			l.last = m.ID
		}
		e := Entry{
			Seq:     len(l.entries),
			ID:      m.ID,
			Sender:  m.Sender,
			Content: m.Content,
			Mine:    self != "" && m.Sender == self,
		}
		l.entries = append(l.entries, e)
		added = append(added, e)
	}
	return added
}

// Cursor is the last-seen marker to hand the server: the id of the newest
// identified message, else the number of delivered messages. It is empty
// while nothing has been delivered.
func (l *Log) Cursor() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.last != "" {
		return l.last.String()
	}
	if len(l.entries) == 0 {
		return ""
	}
	return strconv.Itoa(len(l.entries))
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns a copy of the log.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}
