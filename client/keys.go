package main

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Join   key.Binding
	Delete key.Binding
	Reload key.Binding
	New    key.Binding
	Create key.Binding
	Cancel key.Binding
	Send   key.Binding
	Submit key.Binding
	Back   key.Binding
	Leave  key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Join:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "join")),
	Delete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	New:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new room")),
	Create: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "create")),
	Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Send:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	Submit: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "send")),
	Back:   key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "rooms")),
	Leave:  key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "leave")),
	Quit:   key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
}

func (k keyMap) roomsHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Join, k.New, k.Delete, k.Reload, k.Quit}
}

func (k keyMap) createHelp() []key.Binding {
	return []key.Binding{k.Create, k.Cancel}
}

func (k keyMap) chatHelp() []key.Binding {
	return []key.Binding{k.Send, k.Back, k.Leave, k.Quit}
}
