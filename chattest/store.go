// Package chattest provides an in-process chat backend that speaks the same
// REST dialect as the production server. It exists for tests.
package chattest

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/puyokura/roomchat/model"
)

type storedMessage struct {
	id      int
	room    int
	sender  string
	content string
}

type storedRoom struct {
	id    int
	name  string
	owner int
}

// session is the state the real backend keeps in its signed session cookie.
type session struct {
	uid      int
	username string
	room     int
	roomName string
	received map[int]bool
}

// Store holds users, rooms, messages and sessions.
type Store struct {
	mu       sync.Mutex
	users    map[string]int
	rooms    map[int]*storedRoom
	messages []storedMessage
	sessions map[string]*session
	nextID   int
}

func newStore() *Store {
	return &Store{
		users:    make(map[string]int),
		rooms:    make(map[int]*storedRoom),
		sessions: make(map[string]*session),
	}
}

func (s *Store) id() int {
	s.nextID++
	return s.nextID
}

// Login registers username if needed and opens a session for it. It returns
// the user and the session token to send as the session cookie.
func (s *Store) Login(username string) (model.User, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uid, ok := s.users[username]
	if !ok {
		uid = s.id()
		s.users[username] = uid
	}
	token := fmt.Sprintf("sess-%d-%s", s.id(), username)
	s.sessions[token] = &session{uid: uid, username: username, received: map[int]bool{}}
	return model.User{UID: model.ID(strconv.Itoa(uid)), Username: username}, token
}

// CreateRoom adds a room owned by owner.
func (s *Store) CreateRoom(name string, owner model.User) model.Chatroom {
	s.mu.Lock()
	defer s.mu.Unlock()

	ownerID, _ := owner.UID.Int()
	r := &storedRoom{id: s.id(), name: name, owner: int(ownerID)}
	s.rooms[r.id] = r
	return r.wire()
}

// create adds a room owned by the session's user. Room names are unique.
func (s *Store) create(sess *session, name string) (model.Chatroom, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rooms {
		if r.name == name {
			return model.Chatroom{}, false
		}
	}
	r := &storedRoom{id: s.id(), name: name, owner: sess.uid}
	s.rooms[r.id] = r
	return r.wire(), true
}

// Post stores a message in room as if sender had sent it.
func (s *Store) Post(room model.ID, sender, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rid, _ := room.Int()
	s.messages = append(s.messages, storedMessage{id: s.id(), room: int(rid), sender: sender, content: content})
}

// DeleteRoom removes a room and its messages.
func (s *Store) DeleteRoom(room model.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rid, _ := room.Int()
	return s.deleteRoomLocked(int(rid))
}

func (s *Store) deleteRoomLocked(rid int) bool {
	if _, ok := s.rooms[rid]; !ok {
		return false
	}
	delete(s.rooms, rid)
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.room != rid {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	return true
}

// RoomMessages returns the stored messages of a room in arrival order.
func (s *Store) RoomMessages(room model.ID) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	rid, _ := room.Int()
	var out []model.Message
	for _, m := range s.messages {
		if m.room == int(rid) {
			out = append(out, model.Message{Sender: m.sender, Content: m.content})
		}
	}
	return out
}

func (s *Store) lookup(token string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[token]
}

func (s *Store) roomList() []model.Chatroom {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Chatroom, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r.wire())
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := out[i].ID.Int()
		b, _ := out[j].ID.Int()
		return a < b
	})
	return out
}

// history returns every message of the session's room and marks them all
// received, like the full-history endpoint of the real backend.
func (s *Store) history(sess *session, withIDs bool) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess.received = map[int]bool{}
	out := []model.Message{}
	for _, m := range s.messages {
		if m.room != sess.room {
			continue
		}
		sess.received[m.id] = true
		out = append(out, m.wire(withIDs))
	}
	return out
}

// delta returns the messages of the session's room not yet received.
func (s *Store) delta(sess *session, withIDs bool) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []model.Message{}
	if _, ok := s.rooms[sess.room]; !ok {
		return out
	}
	for _, m := range s.messages {
		if m.room != sess.room || sess.received[m.id] {
			continue
		}
		sess.received[m.id] = true
		out = append(out, m.wire(withIDs))
	}
	return out
}

func (s *Store) send(sess *session, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[sess.room]; !ok {
		sess.room = 0
		sess.roomName = ""
		return false
	}
	s.messages = append(s.messages, storedMessage{id: s.id(), room: sess.room, sender: sess.username, content: content})
	return true
}

func (r *storedRoom) wire() model.Chatroom {
	return model.Chatroom{
		ID:    model.ID(strconv.Itoa(r.id)),
		Name:  r.name,
		Owner: model.ID(strconv.Itoa(r.owner)),
	}
}

func (m storedMessage) wire(withID bool) model.Message {
	out := model.Message{Sender: m.sender, Content: m.content}
	if withID {
		out.ID = model.ID(strconv.Itoa(m.id))
	}
	return out
}
