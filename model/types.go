package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf16"
)

// MaxMessageLength is the longest message the backend stores, as counted by
// MessageLength.
const MaxMessageLength = 256

// MessageLength counts s in UTF-16 code units, the way the web client measures
// its input. Characters outside the BMP, such as most emoji, count twice.
func MessageLength(s string) int {
	n := 0
	for _, r := range s {
		if w := utf16.RuneLen(r); w > 0 {
			n += w
		} else {
			n++
		}
	}
	return n
}

// ID is an opaque identifier. The backend emits integers for users and rooms,
// but the client only ever compares them, so both numbers and strings decode
// into the same value.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Int reports the numeric value of the id, if it has one.
func (id ID) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

// User is the identity the backend associates with the current session.
type User struct {
	UID      ID     `json:"uid"`
	Username string `json:"username"`
}

// Message is a chat message as delivered by the backend. Sender is the
// sender's username.
type Message struct {
	ID      ID     `json:"id,omitempty"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// Chatroom is a room listed by the backend. Owner is the owner's user id.
type Chatroom struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Owner ID     `json:"owner"`
}

// OwnedBy reports whether the room belongs to the given user.
func (c Chatroom) OwnedBy(u User) bool {
	return c.Owner != "" && c.Owner == u.UID
}

// RoomsResponse is the body of GET /get_chats.
type RoomsResponse struct {
	Rooms []Chatroom `json:"rooms"`
}

// MessagesResponse is the body of GET /get_messages and /get_new_messages.
type MessagesResponse struct {
	Messages []Message `json:"messages"`
}

// SendRequest is the body of POST /send_message.
type SendRequest struct {
	Message string `json:"message"`
}
