package main

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/puyokura/roomchat/model"
)

const (
	emptyRoomsHint = "No chatrooms available currently."
	msgOtherRoom   = "You're already in another chat room! You must leave your old one first!"
)

type roomsLoadedMsg struct {
	rooms []model.Chatroom
	user  model.User
	err   error
}

type roomDeletedMsg struct {
	id  model.ID
	err error
}

type joinedMsg struct {
	room model.Chatroom
	path string
	err  error
}

// roomCard is what one room renders as.
type roomCard struct {
	room      model.Chatroom
	deletable bool
}

type roomList struct {
	rooms  []model.Chatroom
	user   model.User
	cursor int
	loaded bool
	// failed is set when the last load did not complete. Nothing is known
	// about the rooms then.
	failed bool
}

func (r roomList) cards() []roomCard {
	cards := make([]roomCard, len(r.rooms))
	for i, room := range r.rooms {
		cards[i] = roomCard{room: room, deletable: room.OwnedBy(r.user)}
	}
	return cards
}

func (r roomList) selected() (roomCard, bool) {
	cards := r.cards()
	if r.cursor < 0 || r.cursor >= len(cards) {
		return roomCard{}, false
	}
	return cards[r.cursor], true
}

func (r *roomList) move(delta int) {
	r.cursor += delta
	if r.cursor >= len(r.rooms) {
		r.cursor = len(r.rooms) - 1
	}
	if r.cursor < 0 {
		r.cursor = 0
	}
}

// loadRooms fetches the room list and the viewer together.
func loadRooms(b backend) tea.Cmd {
	return func() tea.Msg {
		var msg roomsLoadedMsg
		g, ctx := errgroup.WithContext(context.Background())
		g.Go(func() error {
			rooms, err := b.Chats(ctx)
			msg.rooms = rooms
			return err
		})
		g.Go(func() error {
			user, err := b.CurrentUser(ctx)
			msg.user = user
			return err
		})
		msg.err = g.Wait()
		return msg
	}
}

func deleteRoom(b backend, id model.ID) tea.Cmd {
	return func() tea.Msg {
		return roomDeletedMsg{id: id, err: b.DeleteChat(context.Background(), id)}
	}
}

func joinRoom(b backend, room model.Chatroom) tea.Cmd {
	return func() tea.Msg {
		path, err := b.Join(context.Background(), room)
		return joinedMsg{room: room, path: path, err: err}
	}
}

func (r roomList) View(width int) string {
	if r.failed {
		return mutedStyle.Render("Press r to retry.")
	}
	if !r.loaded {
		return mutedStyle.Render("Loading chatrooms...")
	}
	if len(r.rooms) == 0 {
		return lipgloss.PlaceHorizontal(width, lipgloss.Center, mutedStyle.Render(emptyRoomsHint))
	}

	cardWidth := width - 2
	if cardWidth < 20 {
		cardWidth = 20
	}
	var sb strings.Builder
	for i, card := range r.cards() {
		style := cardStyle
		if i == r.cursor {
			style = selectedCardStyle
		}
		sb.WriteString(style.Width(cardWidth).Render(card.View()))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (c roomCard) View() string {
	parts := []string{
		previewTitleStyle.Render(c.room.Name),
		joinStyle.Render("Join"),
	}
	if c.deletable {
		parts = append(parts, deleteStyle.Render("Delete"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
