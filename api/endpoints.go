package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/puyokura/roomchat/model"
)

// Chats lists the rooms on the server.
func (c *Client) Chats(ctx context.Context) ([]model.Chatroom, error) {
	var res model.RoomsResponse
	if err := c.getJSON(ctx, "/get_chats", nil, &res); err != nil {
		return nil, err
	}
	return res.Rooms, nil
}

// CurrentUser resolves who the session belongs to. Nothing is cached: every
// call is a round trip.
func (c *Client) CurrentUser(ctx context.Context) (model.User, error) {
	var u model.User
	if err := c.getJSON(ctx, "/get_user", nil, &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// Messages fetches the full history of the joined room. The server restarts
// its delta tracking from this point.
func (c *Client) Messages(ctx context.Context) ([]model.Message, error) {
	var res model.MessagesResponse
	if err := c.getJSON(ctx, "/get_messages", nil, &res); err != nil {
		return nil, err
	}
	return res.Messages, nil
}

// NewMessages fetches the messages the server has not delivered to this
// session yet. A non-empty since is passed along as the last-seen marker.
func (c *Client) NewMessages(ctx context.Context, since string) ([]model.Message, error) {
	var q url.Values
	if since != "" {
		q = url.Values{"since": {since}}
	}
	var res model.MessagesResponse
	if err := c.getJSON(ctx, "/get_new_messages", q, &res); err != nil {
		return nil, err
	}
	return res.Messages, nil
}

// SendResult describes how the backend answered a send.
type SendResult struct {
	Status int
	// Redirected is set when the server bounced the request elsewhere,
	// which it does when the joined room no longer exists.
	Redirected bool
	Location   string
}

// Send posts one message to the joined room.
func (c *Client) Send(ctx context.Context, text string) (SendResult, error) {
	req, resp, err := c.do(ctx, http.MethodPost, "/send_message", nil, model.SendRequest{Message: text}, nil)
	if err != nil {
		return SendResult{}, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	res := SendResult{Status: resp.StatusCode}
	res.Location, res.Redirected = finalURL(req, resp)
	if !res.Redirected {
		res.Location = ""
	}
	if !ok(resp.StatusCode) {
		return res, &StatusError{Method: http.MethodPost, Path: "/send_message", Code: resp.StatusCode}
	}
	return res, nil
}

// DeleteChat asks the server to delete a room.
func (c *Client) DeleteChat(ctx context.Context, id model.ID) error {
	path := "/delete_chat/" + url.PathEscape(id.String())
	h := http.Header{"Origin": {c.url(path, nil)}}
	_, resp, err := c.do(ctx, http.MethodDelete, path, nil, nil, h)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if !ok(resp.StatusCode) {
		return &StatusError{Method: http.MethodDelete, Path: path, Code: resp.StatusCode}
	}
	return nil
}

// ErrRoomExists is returned by CreateRoom when the name is already taken.
var ErrRoomExists = errors.New("a room with that name already exists")

const createRoomPath = "/create_room"

// CreateRoom submits the new-room form. The server joins the session to the
// new room and redirects there, so the returned path is normally the room's
// chat page. A name that is taken bounces back to the form.
func (c *Client) CreateRoom(ctx context.Context, name string) (string, error) {
	form := url.Values{"room-name": {name}}
	_, resp, err := c.do(ctx, http.MethodPost, createRoomPath, nil, form, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if !ok(resp.StatusCode) {
		return "", &StatusError{Method: http.MethodPost, Path: createRoomPath, Code: resp.StatusCode}
	}
	path := c.landedOn(resp, createRoomPath)
	if path == createRoomPath {
		return "", ErrRoomExists
	}
	return path, nil
}

// JoinPath is the page that makes the session enter a room.
func JoinPath(room model.Chatroom) string {
	return fmt.Sprintf("/join/id=%sname=%s", room.ID, room.Name)
}

// Join enters room and returns the path the server redirected to.
func (c *Client) Join(ctx context.Context, room model.Chatroom) (string, error) {
	return c.visit(ctx, JoinPath(room))
}

// Leave exits the joined room and returns the path the server redirected to.
func (c *Client) Leave(ctx context.Context) (string, error) {
	return c.visit(ctx, "/leave")
}

// visit loads a page, following redirects, and reports where it landed.
func (c *Client) visit(ctx context.Context, path string) (string, error) {
	_, resp, err := c.do(ctx, http.MethodGet, path, nil, nil, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if !ok(resp.StatusCode) {
		return "", &StatusError{Method: http.MethodGet, Path: path, Code: resp.StatusCode}
	}
	return c.landedOn(resp, path), nil
}

// landedOn is the path, relative to the base, a redirect chain ended at.
func (c *Client) landedOn(resp *http.Response, path string) string {
	if resp.Request != nil && resp.Request.URL != nil {
		return strings.TrimPrefix(resp.Request.URL.Path, c.base.Path)
	}
	return path
}
