package chattest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/puyokura/roomchat/model"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "session"

// Server is a running fake backend.
type Server struct {
	*Store
	srv *httptest.Server

	// EmitIDs makes the message endpoints include message ids.
	EmitIDs bool

	mu      sync.Mutex
	hits    map[string]int
	queries map[string][]url.Values
	faults  map[string]int
}

// NewServer starts a fake backend. Close it when done.
func NewServer() *Server {
	s := &Server{
		Store:   newStore(),
		hits:    make(map[string]int),
		queries: make(map[string][]url.Values),
		faults:  make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/chatrooms", http.StatusFound)
	})
	r.Get("/chatrooms", page("rooms"))
	r.Get("/chat/{room}", page("chat"))
	r.Get("/create_room", page("create_room"))
	r.Post("/create_room", s.createRoom)
	r.Get("/join/{target}", s.join)
	r.Get("/leave", s.leave)
	r.Get("/get_chats", s.getChats)
	r.Get("/get_user", s.getUser)
	r.Get("/get_messages", s.getMessages)
	r.Get("/get_new_messages", s.getNewMessages)
	r.Post("/send_message", s.sendMessage)
	r.Delete("/delete_chat/{room}", s.deleteChat)

	s.srv = httptest.NewServer(r)
	return s
}

// URL is the base address of the backend.
func (s *Server) URL() string { return s.srv.URL }

// Close shuts the backend down.
func (s *Server) Close() { s.srv.Close() }

// Hits reports how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// Queries returns the query strings received on path, oldest first.
func (s *Server) Queries(path string) []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.queries[path]...)
}

// Fail makes the next request to path answer with status.
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[path] = status
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if strings.HasPrefix(key, "/delete_chat/") {
			key = "/delete_chat"
		}
		s.mu.Lock()
		s.hits[key]++
		s.queries[key] = append(s.queries[key], r.URL.Query())
		status, fault := s.faults[key]
		delete(s.faults, key)
		s.mu.Unlock()

		if fault {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<html><body>%s</body></html>", name)
	}
}

func (s *Server) sessionFor(r *http.Request) *session {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil
	}
	return s.lookup(c.Value)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// createRoom mirrors the new-room form: success joins the new room through
// its join page, any failure sends the browser back to the form.
func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(r)
	if sess == nil || r.ParseForm() != nil {
		http.Redirect(w, r, "/create_room", http.StatusFound)
		return
	}
	names, ok := r.PostForm["room-name"]
	if !ok {
		http.Redirect(w, r, "/create_room", http.StatusFound)
		return
	}
	room, ok := s.create(sess, names[0])
	if !ok {
		http.Redirect(w, r, "/create_room", http.StatusFound)
		return
	}
	target := fmt.Sprintf("/join/id=%sname=%s", room.ID, url.PathEscape(room.Name))
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) join(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(r)
	if sess == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	target := chi.URLParam(r, "target")
	if unescaped, err := url.PathUnescape(target); err == nil {
		target = unescaped
	}
	idPart, name, ok := strings.Cut(strings.TrimPrefix(target, "id="), "name=")
	rid, err := strconv.Atoi(idPart)
	if !ok || err != nil {
		http.NotFound(w, r)
		return
	}

	s.Store.mu.Lock()
	busy := sess.roomName != "" && sess.roomName != name
	if !busy {
		sess.room = rid
		sess.roomName = name
	}
	s.Store.mu.Unlock()

	if busy {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/chat/"+idPart, http.StatusFound)
}

func (s *Server) leave(w http.ResponseWriter, r *http.Request) {
	if sess := s.sessionFor(r); sess != nil {
		s.Store.mu.Lock()
		sess.room = 0
		sess.roomName = ""
		s.Store.mu.Unlock()
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) getChats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, model.RoomsResponse{Rooms: s.roomList()})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(r)
	if sess == nil {
		http.Error(w, "no session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"uid": sess.uid, "username": sess.username})
}

func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(r)
	if sess == nil {
		http.Error(w, "no session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, model.MessagesResponse{Messages: s.history(sess, s.EmitIDs)})
}

func (s *Server) getNewMessages(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(r)
	if sess == nil {
		writeJSON(w, model.MessagesResponse{Messages: []model.Message{}})
		return
	}
	writeJSON(w, model.MessagesResponse{Messages: s.delta(sess, s.EmitIDs)})
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(r)
	if sess == nil {
		http.Error(w, "no session", http.StatusInternalServerError)
		return
	}
	var req model.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.send(sess, req.Message) {
		http.Redirect(w, r, "/chatrooms", http.StatusFound)
		return
	}
	w.Write([]byte(req.Message))
}

func (s *Server) deleteChat(w http.ResponseWriter, r *http.Request) {
	rid, err := strconv.Atoi(chi.URLParam(r, "room"))
	if err == nil {
		s.Store.mu.Lock()
		s.deleteRoomLocked(rid)
		s.Store.mu.Unlock()
	}
	w.WriteHeader(http.StatusNoContent)
}
