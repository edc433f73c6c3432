package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/puyokura/roomchat/api"
	"github.com/puyokura/roomchat/feed"
)

const (
	msgTooLong   = "Message is too long!"
	msgRoomGone  = "Chatroom was deleted by owner"
	myMarker     = "›"
	chatChrome   = 4 // header, separator, input, status
	minChatWidth = 20
)

type batchMsg struct {
	feed  *feed.Feed
	batch feed.Batch
}

type feedStoppedMsg struct {
	feed *feed.Feed
	err  error
}

type sentMsg struct {
	text string
	res  api.SendResult
	err  error
}

type leftMsg struct {
	path string
	err  error
}

// chatView is the message list and the composer of the chat page.
type chatView struct {
	viewport viewport.Model
	input    textinput.Model
	entries  []feed.Entry
	width    int
}

func newChatView(width, height int) chatView {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = "> "
	ti.Width = width - len(ti.Prompt) - 1

	vp := viewport.New(width, max(height-chatChrome, 1))
	vp.KeyMap = scrollKeys()
	vp.SetContent("")

	return chatView{viewport: vp, input: ti, width: width}
}

// scrollKeys leaves every printable key to the composer.
func scrollKeys() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
	}
}

func (c *chatView) resize(width, height int) {
	c.width = width
	c.viewport.Width = width
	c.viewport.Height = max(height-chatChrome, 1)
	c.input.Width = width - len(c.input.Prompt) - 1
	c.refresh()
}

// appendEntries adds entries after the existing ones and scrolls to the
// newest. Nothing already shown is touched.
func (c *chatView) appendEntries(entries []feed.Entry) {
	if len(entries) == 0 {
		return
	}
	c.entries = append(c.entries, entries...)
	c.refresh()
}

func (c *chatView) refresh() {
	lines := make([]string, len(c.entries))
	for i, e := range c.entries {
		lines[i] = formatEntry(e, c.width)
	}
	c.viewport.SetContent(strings.Join(lines, "\n"))
	c.viewport.GotoBottom()
}

func (c chatView) View() string {
	return fmt.Sprintf("%s\n%s\n%s",
		c.viewport.View(),
		lipgloss.NewStyle().Foreground(borderColor).Render(strings.Repeat("─", c.width)),
		c.input.View(),
	)
}

// formatEntry renders a sender label followed by the content, wrapped to
// width. Messages from the viewer are marked and right-aligned.
func formatEntry(e feed.Entry, width int) string {
	if width < minChatWidth {
		width = minChatWidth
	}

	sender := ansi.Strip(e.Sender) + ":"
	content := ansi.Strip(e.Content)

	if e.Mine {
		label := myMarkerStyle.Render(myMarker) + " " + mySenderStyle.Render(sender)
		body := lipgloss.NewStyle().Width(width * 3 / 4).Align(lipgloss.Right).Render(content)
		block := lipgloss.JoinVertical(lipgloss.Right, label, body)
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, block)
	}

	label := senderStyle.Render(sender)
	body := lipgloss.NewStyle().Width(width * 3 / 4).Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, label, body)
}

// waitForBatch is a tea.Cmd that waits for the feed's next render cycle.
func waitForBatch(ctx context.Context, f *feed.Feed) tea.Cmd {
	return func() tea.Msg {
		select {
		case b := <-f.Batches():
			return batchMsg{feed: f, batch: b}
		case <-ctx.Done():
			return nil
		}
	}
}

func runFeed(ctx context.Context, f *feed.Feed) tea.Cmd {
	return func() tea.Msg {
		return feedStoppedMsg{feed: f, err: f.Run(ctx)}
	}
}

func sendMessage(b backend, text string) tea.Cmd {
	return func() tea.Msg {
		res, err := b.Send(context.Background(), text)
		return sentMsg{text: text, res: res, err: err}
	}
}

func leaveRoom(b backend) tea.Cmd {
	return func() tea.Msg {
		path, err := b.Leave(context.Background())
		return leftMsg{path: path, err: err}
	}
}
