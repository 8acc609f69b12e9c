package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pkt.systems/osiris/internal/theme"
	"pkt.systems/osiris/schema"
	"pkt.systems/osiris/shell"
	"pkt.systems/pslog"
)

const defaultClientCookie = "osiris_client"

// clientCookieMaxAge keeps the client id around like browser local storage.
const clientCookieMaxAge = 365 * 24 * time.Hour

// sessionIdleTimeout drops the sign-in of clients not seen for a week.
const sessionIdleTimeout = 7 * 24 * time.Hour

// Deps are the collaborators of the browser host.
type Deps struct {
	// Backend opens the auth backend for one client cookie.
	Backend func(log pslog.Logger) shell.Backend
	// Preferences returns the preference binding for a client id.
	Preferences func(client schema.ClientID) shell.Preferences
	// Notes backs the notes app; nil disables /api/notes.
	Notes NoteStore
}

// Server serves the browser terminal and the notes app.
type Server struct {
	cfg         Config
	options     shell.Options
	sessions    *clientSessions
	preferences func(client schema.ClientID) shell.Preferences
	notes       NoteStore
	upgrader    websocket.Upgrader
	basePath    string
	index       indexPage
	indexErr    error
}

// NewServer constructs an HTTP server. The sign-in state lives with the
// client cookie, so every terminal of a client restores it on start.
func NewServer(cfg Config, opts shell.Options, deps Deps) *Server {
	if strings.TrimSpace(cfg.ClientCookie) == "" {
		cfg.ClientCookie = defaultClientCookie
	}
	opts.RestoreSession = true
	mount := mountPath(cfg.BasePath)
	index, indexErr := renderIndex(staticFS, baseHref(cfg.BaseURL, mount))
	return &Server{
		cfg:         cfg,
		options:     opts,
		sessions:    newClientSessions(sessionIdleTimeout, deps.Backend),
		preferences: deps.Preferences,
		notes:       deps.Notes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		basePath: mount,
		index:    index,
		indexErr: indexErr,
	}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.FS(staticFS))))
	mux.HandleFunc("/api/theme", s.handleTheme)
	mux.HandleFunc("/ws", s.handleTerminal)
	mux.HandleFunc("GET /api/notes", s.handleListNotes)
	mux.HandleFunc("POST /api/notes", s.handleAddNote)
	mux.HandleFunc("PUT /api/notes/{id}", s.handleUpdateNote)
	mux.HandleFunc("DELETE /api/notes/{id}", s.handleDeleteNote)

	handler := s.logRequests(mux)
	if s.basePath == "" {
		return handler
	}
	prefix := s.basePath
	root := http.NewServeMux()
	root.Handle(prefix+"/", http.StripPrefix(prefix, handler))
	root.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != prefix {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, prefix+"/", http.StatusTemporaryRedirect)
	})
	return root
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.indexErr != nil {
		pslog.Ctx(r.Context()).Error("http index unavailable", "err", s.indexErr)
		http.Error(w, "index not found", http.StatusInternalServerError)
		return
	}
	if _, fresh := s.clientID(r); fresh != nil {
		http.SetCookie(w, fresh)
	}
	http.ServeContent(w, r, "index.html", s.index.modTime, bytes.NewReader(s.index.body))
}

// handleTheme returns the palette the terminal should paint with.
func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	client, fresh := s.clientID(r)
	if fresh != nil {
		http.SetCookie(w, fresh)
	}
	name := schema.DefaultTheme
	if s.preferences != nil {
		name = s.preferences(client).Theme()
	}
	writeJSON(w, http.StatusOK, theme.ForName(name))
}

// clientID returns the client id carried by the cookie. When the request
// has none (or an unusable one) a new id is minted and its cookie returned.
func (s *Server) clientID(r *http.Request) (schema.ClientID, *http.Cookie) {
	if cookie, err := r.Cookie(s.cfg.ClientCookie); err == nil {
		if id, err := schema.NormalizeClientID(cookie.Value); err == nil {
			return id, nil
		}
	}
	id := schema.ClientID(uuid.NewString())
	path := s.basePath + "/"
	return id, &http.Cookie{
		Name:     s.cfg.ClientCookie,
		Value:    string(id),
		Path:     path,
		MaxAge:   int(clientCookieMaxAge / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Server) lookupClient(r *http.Request) schema.ClientID {
	if s == nil || r == nil {
		return ""
	}
	cookie, err := r.Cookie(s.cfg.ClientCookie)
	if err != nil {
		return ""
	}
	id, err := schema.NormalizeClientID(cookie.Value)
	if err != nil {
		return ""
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
