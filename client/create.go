package main

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const msgRoomExists = "A room with that name already exists!"

type roomCreatedMsg struct {
	name string
	path string
	err  error
}

// createForm is the new-room prompt of the rooms page.
type createForm struct {
	input  textinput.Model
	active bool
}

func (f createForm) open(width int) (createForm, tea.Cmd) {
	ti := textinput.New()
	ti.Placeholder = "Room name"
	ti.Prompt = "New room: "
	ti.Width = max(width-len(ti.Prompt)-4, 10)
	cmd := ti.Focus()
	f.input, f.active = ti, true
	return f, cmd
}

func (f createForm) close() createForm {
	f.input.Blur()
	f.active = false
	return f
}

func (f createForm) View() string {
	return cardStyle.BorderForeground(accentColor).Render(
		lipgloss.JoinVertical(lipgloss.Left, previewTitleStyle.Render("Create a chatroom"), f.input.View()),
	)
}

func createRoom(b backend, name string) tea.Cmd {
	return func() tea.Msg {
		path, err := b.CreateRoom(context.Background(), name)
		return roomCreatedMsg{name: name, path: path, err: err}
	}
}
