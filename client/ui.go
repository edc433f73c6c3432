package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"runtime"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/puyokura/roomchat/api"
	"github.com/puyokura/roomchat/feed"
	"github.com/puyokura/roomchat/model"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
)

// backend is what the screens need from the server.
type backend interface {
	feed.Source
	Chats(ctx context.Context) ([]model.Chatroom, error)
	Send(ctx context.Context, text string) (api.SendResult, error)
	DeleteChat(ctx context.Context, id model.ID) error
	Join(ctx context.Context, room model.Chatroom) (string, error)
	Leave(ctx context.Context) (string, error)
	CreateRoom(ctx context.Context, name string) (string, error)
}

type page int

const (
	roomsPage page = iota
	chatPage
)

// mounts lists the features a page hosts. A feature whose mount point is
// missing from the current page does nothing.
type mounts struct {
	roomsList    bool
	roomForm     bool
	messages     bool
	messageInput bool
	sendButton   bool
}

func (p page) mounts() mounts {
	switch p {
	case chatPage:
		return mounts{messages: true, messageInput: true, sendButton: true}
	default:
		return mounts{roomsList: true, roomForm: true}
	}
}

type modelState struct {
	backend  backend
	feedCfg  feed.Config
	log      zerolog.Logger
	help     help.Model
	page     page
	room     model.ID
	rooms    roomList
	create   createForm
	chat     chatView
	feed     *feed.Feed
	feedCtx  context.Context
	stopFeed context.CancelFunc
	alert    string
	alertNav string
	status   string
	width    int
	height   int
	ready    bool
	blurred  bool
	boot     tea.Cmd
}

func initialModel(b backend, cfg *Config, log zerolog.Logger) modelState {
	m := modelState{
		backend: b,
		feedCfg: cfg.feedConfig(),
		log:     log,
		help:    help.New(),
		width:   defaultWidth,
		height:  defaultHeight,
	}
	var cmd tea.Cmd
	m, cmd = m.enter(roomsPage, "")
	if room, ok := cfg.startRoom(); ok {
		cmd = tea.Batch(cmd, joinRoom(b, room))
	}
	m.boot = cmd
	return m
}

func (m modelState) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.boot)
}

// enter switches to page p and starts the features it mounts.
func (m modelState) enter(p page, room model.ID) (modelState, tea.Cmd) {
	if m.stopFeed != nil {
		m.stopFeed()
		m.stopFeed = nil
	}
	m.feed, m.feedCtx = nil, nil
	m.page, m.room = p, room
	m.status = ""

	mt := p.mounts()
	if !mt.roomForm {
		m.create = m.create.close()
	}
	var cmds []tea.Cmd
	if mt.roomsList {
		m.rooms = roomList{}
		cmds = append(cmds, loadRooms(m.backend))
	}
	if mt.messages {
		m.chat = newChatView(m.width, m.height)
		f := feed.New(m.backend, m.feedCfg, m.log.With().Str("component", "feed").Str("room", room.String()).Logger())
		ctx, cancel := context.WithCancel(context.Background())
		m.feed, m.feedCtx, m.stopFeed = f, ctx, cancel
		if m.blurred {
			f.Pause()
		}
		cmds = append(cmds, runFeed(ctx, f), waitForBatch(ctx, f))
	}
	if mt.messageInput {
		cmds = append(cmds, m.chat.input.Focus())
	}
	m.log.Debug().Int("page", int(p)).Str("room", room.String()).Msg("entered page")
	return m, tea.Batch(cmds...)
}

// navigate opens the page a server path stands for.
func (m modelState) navigate(target string) (modelState, tea.Cmd) {
	path := target
	if u, err := url.Parse(target); err == nil {
		path = u.Path
	}
	if id, ok := strings.CutPrefix(path, "/chat/"); ok && id != "" {
		return m.enter(chatPage, model.ID(id))
	}
	return m.enter(roomsPage, "")
}

func (m modelState) Update(msg tea.Msg) (next tea.Model, cmd tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			m.log.Error().Interface("panic", r).Str("stack", string(buf[:n])).Msg("panic in Update")
			next, cmd = m, nil
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.help.Width = msg.Width
		if m.page.mounts().messages {
			m.chat.resize(msg.Width, msg.Height)
		}
		return m, nil

	case tea.FocusMsg:
		m.blurred = false
		if m.feed != nil {
			m.feed.Resume()
		}
		return m, nil

	case tea.BlurMsg:
		m.blurred = true
		if m.feed != nil {
			m.feed.Pause()
		}
		return m, nil

	case tea.KeyMsg:
		if m.alert == "" && m.create.active && key.Matches(msg, keys.Cancel) {
			m.create = m.create.close()
			return m, nil
		}
		if key.Matches(msg, keys.Quit) && m.alert == "" {
			if m.stopFeed != nil {
				m.stopFeed()
			}
			return m, tea.Quit
		}
		if m.alert != "" {
			return m.dismissAlert()
		}
		if m.page == chatPage {
			return m.updateChat(msg)
		}
		return m.updateRooms(msg)

	case roomsLoadedMsg:
		if m.page != roomsPage {
			return m, nil
		}
		if msg.err != nil {
			m.log.Error().Err(msg.err).Msg("load chatrooms")
			m.status = "Could not load chatrooms: " + msg.err.Error()
			m.rooms = roomList{failed: true}
			return m, nil
		}
		m.rooms = roomList{rooms: msg.rooms, user: msg.user, loaded: true}
		return m, nil

	case roomDeletedMsg:
		if msg.err != nil {
			m.log.Error().Err(msg.err).Str("room", msg.id.String()).Msg("delete chatroom")
		} else {
			m.log.Info().Str("room", msg.id.String()).Msg("room deleted")
		}
		// The list is reloaded whatever the outcome.
		if m.page == roomsPage {
			return m.enter(roomsPage, "")
		}
		return m, nil

	case joinedMsg:
		if msg.err != nil {
			m.log.Error().Err(msg.err).Str("room", msg.room.ID.String()).Msg("join chatroom")
			m.status = "Could not join " + msg.room.Name + ": " + msg.err.Error()
			return m, nil
		}
		m, cmd = m.navigate(msg.path)
		if m.page != chatPage {
			m.status = msgOtherRoom
		}
		return m, cmd

	case roomCreatedMsg:
		if m.page != roomsPage {
			return m, nil
		}
		switch {
		case errors.Is(msg.err, api.ErrRoomExists):
			m.status = msgRoomExists
			return m, nil
		case msg.err != nil:
			m.log.Error().Err(msg.err).Str("name", msg.name).Msg("create chatroom")
			m.status = "Could not create " + msg.name + ": " + msg.err.Error()
			return m, nil
		}
		m.log.Info().Str("name", msg.name).Str("path", msg.path).Msg("room created")
		m.create = m.create.close()
		m, cmd = m.navigate(msg.path)
		if m.page != chatPage {
			m.status = msgOtherRoom
		}
		return m, cmd

	case leftMsg:
		if msg.err != nil {
			m.log.Error().Err(msg.err).Msg("leave chatroom")
		}
		return m.enter(roomsPage, "")

	case batchMsg:
		if msg.feed != m.feed || m.feed == nil {
			return m, nil
		}
		if msg.batch.Err != nil {
			m.log.Warn().Err(msg.batch.Err).Msg("render messages")
			m.status = "Connection problem: " + msg.batch.Err.Error()
		} else if m.status != "" && strings.HasPrefix(m.status, "Connection problem") {
			m.status = ""
		}
		m.chat.appendEntries(msg.batch.Entries)
		return m, waitForBatch(m.feedCtx, m.feed)

	case feedStoppedMsg:
		if msg.feed == m.feed && msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.log.Error().Err(msg.err).Msg("feed stopped")
		}
		return m, nil

	case sentMsg:
		return m.handleSent(msg)
	}

	var cmds []tea.Cmd
	if m.page.mounts().messageInput {
		var tiCmd, vpCmd tea.Cmd
		m.chat.input, tiCmd = m.chat.input.Update(msg)
		m.chat.viewport, vpCmd = m.chat.viewport.Update(msg)
		cmds = append(cmds, tiCmd, vpCmd)
	}
	if m.create.active {
		var ciCmd tea.Cmd
		m.create.input, ciCmd = m.create.input.Update(msg)
		cmds = append(cmds, ciCmd)
	}
	return m, tea.Batch(cmds...)
}

func (m modelState) dismissAlert() (modelState, tea.Cmd) {
	target := m.alertNav
	m.alert, m.alertNav = "", ""
	if target != "" {
		return m.navigate(target)
	}
	return m, nil
}

func (m modelState) updateRooms(msg tea.KeyMsg) (modelState, tea.Cmd) {
	if m.create.active {
		return m.updateCreate(msg)
	}
	switch {
	case key.Matches(msg, keys.Up):
		m.rooms.move(-1)
	case key.Matches(msg, keys.Down):
		m.rooms.move(1)
	case key.Matches(msg, keys.Reload):
		return m.enter(roomsPage, "")
	case key.Matches(msg, keys.New):
		if m.page.mounts().roomForm {
			var cmd tea.Cmd
			m.create, cmd = m.create.open(m.width)
			m.status = ""
			return m, cmd
		}
	case key.Matches(msg, keys.Join):
		if card, ok := m.rooms.selected(); ok {
			return m, joinRoom(m.backend, card.room)
		}
	case key.Matches(msg, keys.Delete):
		if card, ok := m.rooms.selected(); ok && card.deletable {
			return m, deleteRoom(m.backend, card.room.ID)
		}
	}
	return m, nil
}

func (m modelState) updateCreate(msg tea.KeyMsg) (modelState, tea.Cmd) {
	if key.Matches(msg, keys.Create) {
		name := strings.TrimSpace(m.create.input.Value())
		if name == "" {
			return m, nil
		}
		return m, createRoom(m.backend, name)
	}
	var cmd tea.Cmd
	m.create.input, cmd = m.create.input.Update(msg)
	return m, cmd
}

func (m modelState) updateChat(msg tea.KeyMsg) (modelState, tea.Cmd) {
	mt := m.page.mounts()
	switch {
	case mt.messageInput && key.Matches(msg, keys.Send), mt.sendButton && key.Matches(msg, keys.Submit):
		return m.send()
	case key.Matches(msg, keys.Back):
		return m.enter(roomsPage, "")
	case key.Matches(msg, keys.Leave):
		return m, leaveRoom(m.backend)
	}

	var tiCmd, vpCmd tea.Cmd
	m.chat.input, tiCmd = m.chat.input.Update(msg)
	m.chat.viewport, vpCmd = m.chat.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

// send validates the composer's text, clears the input and submits it.
func (m modelState) send() (modelState, tea.Cmd) {
	if !m.page.mounts().messageInput {
		return m, nil
	}
	text := strings.TrimSpace(m.chat.input.Value())
	if model.MessageLength(text) > model.MaxMessageLength {
		m.alert = msgTooLong
		return m, nil
	}
	if text == "" {
		return m, nil
	}

	m.chat.input.SetValue("")
	focus := m.chat.input.Focus()
	m.log.Debug().Int("len", len(text)).Msg("sending message")
	return m, tea.Batch(focus, sendMessage(m.backend, text))
}

func (m modelState) handleSent(msg sentMsg) (modelState, tea.Cmd) {
	if msg.res.Redirected {
		m.log.Info().Str("location", msg.res.Location).Msg("send redirected, room is gone")
		m.alert = msgRoomGone
		m.alertNav = msg.res.Location
		return m, nil
	}
	if msg.err != nil {
		m.log.Error().Err(msg.err).Msg("send message")
		m.status = "Message not sent: " + msg.err.Error()
		if m.page == chatPage && m.chat.input.Value() == "" {
			m.chat.input.SetValue(msg.text)
			m.chat.input.CursorEnd()
		}
		return m, nil
	}
	m.log.Debug().Int("status", msg.res.Status).Msg("message sent")
	return m, nil
}

func (m modelState) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	if m.alert != "" {
		box := alertStyle.Render(m.alert + "\n\n" + mutedStyle.Render("press any key"))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	var header, body string
	var bindings []key.Binding
	switch m.page {
	case chatPage:
		header = titleStyle.Render(fmt.Sprintf("Chatroom %s", m.room))
		body = m.chat.View()
		bindings = keys.chatHelp()
	default:
		header = titleStyle.Render("Chatrooms")
		body = m.rooms.View(m.width)
		bindings = keys.roomsHelp()
		if m.create.active {
			body = m.create.View() + "\n" + body
			bindings = keys.createHelp()
		}
	}

	footer := m.help.ShortHelpView(bindings)
	if m.status != "" {
		footer = statusStyle.Render(m.status) + "\n" + footer
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}
