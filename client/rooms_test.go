package main

import (
	"net/http"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puyokura/roomchat/model"
)

func TestOwnerOnlyDeleteControl(t *testing.T) {
	rooms := roomList{
		user: model.User{UID: "u1", Username: "alice"},
		rooms: []model.Chatroom{
			{ID: "r1", Name: "General", Owner: "u1"},
			{ID: "r2", Name: "Random", Owner: "u2"},
		},
		loaded: true,
	}

	cards := rooms.cards()
	require.Len(t, cards, 2)
	assert.True(t, cards[0].deletable)
	assert.False(t, cards[1].deletable)

	assert.Contains(t, plain(cards[0].View()), "Delete")
	assert.NotContains(t, plain(cards[1].View()), "Delete")

	view := plain(rooms.View(80))
	assert.Contains(t, view, "General")
	assert.Contains(t, view, "Random")
	assert.Equal(t, 1, strings.Count(view, "Delete"))
	assert.Equal(t, 2, strings.Count(view, "Join"))
}

func TestEmptyRoomsPlaceholder(t *testing.T) {
	rooms := roomList{user: model.User{UID: "u1"}, loaded: true}

	view := plain(rooms.View(60))
	assert.Equal(t, 1, strings.Count(view, emptyRoomsHint))
	assert.NotContains(t, view, "Join")

	line := strings.TrimRight(view, " ")
	lead := len(line) - len(strings.TrimLeft(line, " "))
	assert.Greater(t, lead, 0, "placeholder is centered")
}

func TestLoadRoomsFromBackend(t *testing.T) {
	h := newHarness(t, "alice")
	bob, _ := h.srv.Login("bob")
	h.srv.CreateRoom("General", h.user)
	h.srv.CreateRoom("Random", bob)

	msg, ok := loadRooms(h.client)().(roomsLoadedMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)
	assert.Equal(t, h.user, msg.user)

	m := h.model()
	m, _ = update(t, m, msg)
	require.True(t, m.rooms.loaded)

	cards := m.rooms.cards()
	require.Len(t, cards, 2)
	assert.Equal(t, "General", cards[0].room.Name)
	assert.True(t, cards[0].deletable)
	assert.Equal(t, "Random", cards[1].room.Name)
	assert.False(t, cards[1].deletable)
}

func TestLoadRoomsFailureShowsStatus(t *testing.T) {
	h := newHarness(t, "alice")
	h.srv.Fail("/get_chats", http.StatusInternalServerError)

	msg := loadRooms(h.client)().(roomsLoadedMsg)
	require.Error(t, msg.err)

	m := h.model()
	m, _ = update(t, m, msg)
	assert.Contains(t, m.status, "Could not load chatrooms")
	assert.False(t, m.rooms.loaded)
	assert.Empty(t, m.rooms.cards())

	view := plain(m.rooms.View(80))
	assert.NotContains(t, view, emptyRoomsHint, "a failed load is not an empty list")
	assert.NotContains(t, view, "Loading")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	reloaded := find[roomsLoadedMsg](t, drain(cmd))
	m, _ = update(t, m, reloaded)
	assert.True(t, m.rooms.loaded)
	assert.Contains(t, plain(m.rooms.View(80)), emptyRoomsHint)
}

func TestDeleteReloadsList(t *testing.T) {
	h := newHarness(t, "alice")
	bob, _ := h.srv.Login("bob")
	mine := h.srv.CreateRoom("General", h.user)
	h.srv.CreateRoom("Random", bob)

	m := h.model()
	m, _ = update(t, m, loadRooms(h.client)())

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Nil(t, cmd)
	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	assert.Nil(t, cmd, "cannot delete a room owned by someone else")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	require.NotNil(t, cmd)

	deleted := find[roomDeletedMsg](t, drain(cmd))
	require.NoError(t, deleted.err)
	assert.Equal(t, mine.ID, deleted.id)

	m, cmd = update(t, m, deleted)
	assert.False(t, m.rooms.loaded, "list is reloaded")

	reloaded := find[roomsLoadedMsg](t, drain(cmd))
	m, _ = update(t, m, reloaded)
	require.Len(t, m.rooms.cards(), 1)
	assert.Equal(t, "Random", m.rooms.cards()[0].room.Name)
}

func TestDeleteFailureStillReloads(t *testing.T) {
	h := newHarness(t, "alice")
	h.srv.CreateRoom("General", h.user)

	m := h.model()
	m, _ = update(t, m, loadRooms(h.client)())

	h.srv.Fail("/delete_chat", http.StatusInternalServerError)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	deleted := find[roomDeletedMsg](t, drain(cmd))
	require.Error(t, deleted.err)

	m, cmd = update(t, m, deleted)
	reloaded := find[roomsLoadedMsg](t, drain(cmd))
	m, _ = update(t, m, reloaded)
	assert.Len(t, m.rooms.cards(), 1, "the room survived")
}

func TestJoinOpensChatPage(t *testing.T) {
	h := newHarness(t, "alice")
	room := h.srv.CreateRoom("General", h.user)

	m := h.model()
	m, _ = update(t, m, loadRooms(h.client)())
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	joined := find[joinedMsg](t, drain(cmd))
	require.NoError(t, joined.err)

	m, _ = update(t, m, joined)
	t.Cleanup(func() { m.stopFeed() })
	assert.Equal(t, chatPage, m.page)
	assert.Equal(t, room.ID, m.room)
	assert.True(t, m.chat.input.Focused())
}

func TestJoinWhileInAnotherRoomStaysOnList(t *testing.T) {
	h := newHarness(t, "alice")
	general := h.srv.CreateRoom("General", h.user)
	h.srv.CreateRoom("Random", h.user)
	_, err := h.client.Join(t.Context(), general)
	require.NoError(t, err)

	m := h.model()
	m, _ = update(t, m, loadRooms(h.client)())
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	joined := find[joinedMsg](t, drain(cmd))

	m, _ = update(t, m, joined)
	assert.Equal(t, roomsPage, m.page)
	assert.Contains(t, m.status, "already in another chat room")
}

func typeRunes(t *testing.T, m modelState, text string) modelState {
	t.Helper()
	for _, r := range text {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestCreateRoomOpensChatPage(t *testing.T) {
	h := newHarness(t, "alice")

	m := h.model()
	m, _ = update(t, m, loadRooms(h.client)())
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	require.True(t, m.create.active)

	// Keys that drive the list go to the prompt while it is open.
	m = typeRunes(t, m, "dark jr")
	assert.Equal(t, "dark jr", m.create.input.Value())

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	created := find[roomCreatedMsg](t, drain(cmd))
	require.NoError(t, created.err)

	m, _ = update(t, m, created)
	t.Cleanup(func() { m.stopFeed() })
	assert.Equal(t, chatPage, m.page)
	assert.False(t, m.create.active)
	assert.Empty(t, m.status)

	rooms, err := h.client.Chats(t.Context())
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "dark jr", rooms[0].Name)
	assert.Equal(t, rooms[0].ID, m.room)
	assert.True(t, rooms[0].OwnedBy(h.user))
}

func TestCreateRoomNameTakenKeepsPrompt(t *testing.T) {
	h := newHarness(t, "alice")
	h.srv.CreateRoom("General", h.user)

	m := h.model()
	m, _ = update(t, m, loadRooms(h.client)())
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	m = typeRunes(t, m, "General")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	created := find[roomCreatedMsg](t, drain(cmd))
	require.Error(t, created.err)

	m, _ = update(t, m, created)
	assert.Equal(t, roomsPage, m.page)
	assert.Equal(t, msgRoomExists, m.status)
	assert.True(t, m.create.active)
	assert.Equal(t, "General", m.create.input.Value(), "the name can be edited and resubmitted")
}

func TestCreateRoomIgnoresBlankName(t *testing.T) {
	h := newHarness(t, "alice")
	m := h.model()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	m = typeRunes(t, m, "   ")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, 0, h.srv.Hits("/create_room"))
}

func TestCreatePromptEscCancels(t *testing.T) {
	h := newHarness(t, "alice")
	m := h.model()
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	assert.Contains(t, plain(m.View()), "Create a chatroom")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd, "esc closes the prompt instead of quitting")
	assert.False(t, m.create.active)
	assert.NotContains(t, plain(m.View()), "Create a chatroom")
}
