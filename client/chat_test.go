package main

import (
	"context"
	"net/http"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puyokura/roomchat/feed"
	"github.com/puyokura/roomchat/model"
)

// inRoom returns a model on the chat page of a freshly joined room.
func (h *harness) inRoom() (modelState, model.Chatroom) {
	t := h.t
	room := h.srv.CreateRoom("General", h.user)
	path, err := h.client.Join(context.Background(), room)
	require.NoError(t, err)

	m := h.model()
	m, _ = m.navigate(path)
	require.Equal(t, chatPage, m.page)
	stop := m.stopFeed
	t.Cleanup(stop)
	return m, room
}

func typeText(t *testing.T, m modelState, text string) modelState {
	t.Helper()
	m.chat.input.SetValue(text)
	return m
}

func TestRenderEntriesInOrderWithMarker(t *testing.T) {
	h := newHarness(t, "alice")
	m, _ := h.inRoom()

	batch := feed.Batch{Entries: []feed.Entry{
		{Seq: 0, Sender: "bob", Content: "first"},
		{Seq: 1, Sender: "alice", Content: "second", Mine: true},
		{Seq: 2, Sender: "carol", Content: "third"},
	}}
	m, cmd := update(t, m, batchMsg{feed: m.feed, batch: batch})
	require.NotNil(t, cmd, "keeps listening for batches")

	require.Len(t, m.chat.entries, 3)
	view := plain(m.chat.viewport.View())
	first := strings.Index(view, "first")
	second := strings.Index(view, "second")
	third := strings.Index(view, "third")
	assert.True(t, first >= 0 && first < second && second < third, view)

	assert.NotContains(t, plain(formatEntry(batch.Entries[0], 80)), myMarker)
	assert.Contains(t, plain(formatEntry(batch.Entries[1], 80)), myMarker)
	assert.Contains(t, plain(formatEntry(batch.Entries[0], 80)), "bob:")
}

func TestRenderIsAdditiveAndScrolls(t *testing.T) {
	h := newHarness(t, "alice")
	m, _ := h.inRoom()
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 12})

	var entries []feed.Entry
	for i := 0; i < 30; i++ {
		entries = append(entries, feed.Entry{Seq: i, Sender: "bob", Content: "line"})
	}
	m, _ = update(t, m, batchMsg{feed: m.feed, batch: feed.Batch{Entries: entries[:20]}})
	m, _ = update(t, m, batchMsg{feed: m.feed, batch: feed.Batch{Entries: entries[20:]}})

	assert.Len(t, m.chat.entries, 30)
	assert.True(t, m.chat.viewport.AtBottom())
}

func TestEmptyBatchChangesNothing(t *testing.T) {
	h := newHarness(t, "alice")
	m, _ := h.inRoom()

	m, _ = update(t, m, batchMsg{feed: m.feed, batch: feed.Batch{}})
	assert.Empty(t, m.chat.entries)
}

func TestStaleBatchIgnored(t *testing.T) {
	h := newHarness(t, "alice")
	m, _ := h.inRoom()

	other := feed.New(h.client, feed.Config{}, m.log)
	m, cmd := update(t, m, batchMsg{feed: other, batch: feed.Batch{Entries: []feed.Entry{{Sender: "x", Content: "y"}}}})
	assert.Nil(t, cmd)
	assert.Empty(t, m.chat.entries)
}

func TestComposerRejectsTooLong(t *testing.T) {
	h := newHarness(t, "alice")
	m, _ := h.inRoom()

	text := strings.Repeat("a", model.MaxMessageLength+1)
	m = typeText(t, m, text)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Equal(t, msgTooLong, m.alert)
	assert.Equal(t, text, m.chat.input.Value(), "input is kept")
	assert.Equal(t, 0, h.srv.Hits("/send_message"))
}

func TestComposerCountsCharactersNotBytes(t *testing.T) {
	h := newHarness(t, "alice")
	m, _ := h.inRoom()

	m = typeText(t, m, strings.Repeat("é", model.MaxMessageLength))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.alert)
	require.NotNil(t, cmd)
}

func TestComposerIgnoresBlank(t *testing.T) {
	h := newHarness(t, "alice")
	m, _ := h.inRoom()

	m = typeText(t, m, "   \t ")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Empty(t, m.alert)
	drain(cmd)
	assert.Equal(t, 0, h.srv.Hits("/send_message"))
}

func TestComposerSendsTrimmedMaxLength(t *testing.T) {
	h := newHarness(t, "alice")
	m, room := h.inRoom()

	text := strings.Repeat("b", model.MaxMessageLength)
	m = typeText(t, m, "  "+text+"  ")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	// Cleared and focused before the request has even been issued.
	assert.Empty(t, m.chat.input.Value())
	assert.True(t, m.chat.input.Focused())
	assert.Equal(t, 0, h.srv.Hits("/send_message"))

	sent := find[sentMsg](t, drain(cmd))
	require.NoError(t, sent.err)
	assert.Equal(t, text, sent.text)
	assert.Equal(t, []model.Message{{Sender: "alice", Content: text}}, h.srv.RoomMessages(room.ID))

	m, _ = update(t, m, sent)
	assert.Empty(t, m.alert)
	assert.Empty(t, m.status)
}

func TestSendButton(t *testing.T) {
	h := newHarness(t, "alice")
	m, _ := h.inRoom()

	m = typeText(t, m, "via button")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Empty(t, m.chat.input.Value())
	sent := find[sentMsg](t, drain(cmd))
	assert.Equal(t, "via button", sent.text)
}

func TestFailedSendRestoresInput(t *testing.T) {
	h := newHarness(t, "alice")
	m, _ := h.inRoom()
	h.srv.Fail("/send_message", http.StatusInternalServerError)

	m = typeText(t, m, "hello")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.chat.input.Value())

	sent := find[sentMsg](t, drain(cmd))
	require.Error(t, sent.err)

	m, _ = update(t, m, sent)
	assert.Equal(t, "hello", m.chat.input.Value())
	assert.Contains(t, m.status, "Message not sent")
}

func TestFailedSendKeepsNewDraft(t *testing.T) {
	h := newHarness(t, "alice")
	m, _ := h.inRoom()

	m = typeText(t, m, "newer draft")
	m, _ = update(t, m, sentMsg{text: "older", err: assert.AnError})
	assert.Equal(t, "newer draft", m.chat.input.Value())
}

func TestSendToDeletedRoomRedirects(t *testing.T) {
	h := newHarness(t, "alice")
	m, room := h.inRoom()
	h.srv.DeleteRoom(room.ID)

	m = typeText(t, m, "anyone?")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	sent := find[sentMsg](t, drain(cmd))
	require.True(t, sent.res.Redirected)

	m, _ = update(t, m, sent)
	assert.Equal(t, msgRoomGone, m.alert)

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.alert)
	assert.Equal(t, roomsPage, m.page)
	assert.Nil(t, m.feed)
	loaded := find[roomsLoadedMsg](t, drain(cmd))
	assert.NoError(t, loaded.err)
}

func TestSendThenPollMarksOwnMessage(t *testing.T) {
	h := newHarness(t, "alice")
	m, _ := h.inRoom()

	m = typeText(t, m, "hello")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	sent := find[sentMsg](t, drain(cmd))
	require.NoError(t, sent.err)
	m, _ = update(t, m, sent)

	b, err := m.feed.Tick(context.Background())
	require.NoError(t, err)
	m, _ = update(t, m, batchMsg{feed: m.feed, batch: b})

	require.Len(t, m.chat.entries, 1)
	e := m.chat.entries[0]
	assert.Equal(t, "alice", e.Sender)
	assert.Equal(t, "hello", e.Content)
	assert.True(t, e.Mine)
}

func TestPollingRunsOnChatPage(t *testing.T) {
	h := newHarness(t, "alice")
	m, room := h.inRoom()
	h.srv.Post(room.ID, "bob", "from the past")

	go runFeed(m.feedCtx, m.feed)()
	msg := waitForBatch(m.feedCtx, m.feed)()
	bm, ok := msg.(batchMsg)
	require.True(t, ok)
	require.NoError(t, bm.batch.Err)
	assert.True(t, bm.batch.Full)

	m, _ = update(t, m, bm)
	require.Len(t, m.chat.entries, 1)
	assert.Equal(t, "from the past", m.chat.entries[0].Content)
	assert.False(t, m.chat.entries[0].Mine)
}

func TestBlurPausesFeed(t *testing.T) {
	h := newHarness(t, "alice")
	m, _ := h.inRoom()

	m, _ = update(t, m, tea.BlurMsg{})
	assert.True(t, m.feed.Paused())
	m, _ = update(t, m, tea.FocusMsg{})
	assert.False(t, m.feed.Paused())
}

func TestBackAndLeave(t *testing.T) {
	h := newHarness(t, "alice")
	m, _ := h.inRoom()

	back, _ := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlB})
	assert.Equal(t, roomsPage, back.page)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	left := find[leftMsg](t, drain(cmd))
	require.NoError(t, left.err)
	assert.Equal(t, "/chatrooms", left.path)

	m, _ = update(t, m, left)
	assert.Equal(t, roomsPage, m.page)
}

func TestFormatEntryStripsEscapes(t *testing.T) {
	out := plain(formatEntry(feed.Entry{Sender: "eve", Content: "\x1b[2Jboo"}, 80))
	assert.Contains(t, out, "boo")
	assert.NotContains(t, out, "\x1b")
}

func TestTypingKeepsNewestVisible(t *testing.T) {
	h := newHarness(t, "alice")
	m, _ := h.inRoom()

	var entries []feed.Entry
	for i := 0; i < 40; i++ {
		entries = append(entries, feed.Entry{Seq: i, Sender: "bob", Content: "line"})
	}
	m, _ = update(t, m, batchMsg{feed: m.feed, batch: feed.Batch{Entries: entries}})
	require.True(t, m.chat.viewport.AtBottom())

	for _, r := range "bob jfkdu" {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	assert.Equal(t, "bob jfkdu", m.chat.input.Value())
	assert.True(t, m.chat.viewport.AtBottom(), "typing does not scroll the messages")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyPgUp})
	assert.False(t, m.chat.viewport.AtBottom(), "page keys still scroll")
}

func TestComposerCountsUTF16Units(t *testing.T) {
	h := newHarness(t, "alice")
	m, _ := h.inRoom()

	fits := strings.Repeat("😀", model.MaxMessageLength/2)
	m = typeText(t, m, fits+"😀")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, msgTooLong, m.alert)

	m.alert = ""
	m = typeText(t, m, fits)
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.alert)
	sent := find[sentMsg](t, drain(cmd))
	require.NoError(t, sent.err)
	assert.Equal(t, fits, sent.text)
}
