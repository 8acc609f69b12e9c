package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"pkt.systems/osiris/internal/logx"
	"pkt.systems/osiris/schema"
	"pkt.systems/osiris/shell"
)

const maxNoteBody = 1 << 20

// NoteStore is the per-user notes collection behind the notes app.
type NoteStore interface {
	List(user schema.UserID) ([]schema.Note, error)
	Add(user schema.UserID, title, content string) (schema.Note, error)
	Update(user schema.UserID, id schema.NoteID, title, content string) (schema.Note, error)
	Delete(user schema.UserID, identifier string) (schema.Note, error)
}

type noteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type noteResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Note    *schema.Note  `json:"note,omitempty"`
	Notes   []schema.Note `json:"notes,omitempty"`
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	user, ok := s.noteUser(w, r)
	if !ok {
		return
	}
	notes, err := s.notes.List(user)
	if err != nil {
		s.noteFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, noteResponse{Success: true, Notes: notes})
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	user, ok := s.noteUser(w, r)
	if !ok {
		return
	}
	req, err := decodeNote(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, noteResponse{Message: err.Error()})
		return
	}
	note, err := s.notes.Add(user, req.Title, req.Content)
	if err != nil {
		s.noteFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, noteResponse{
		Success: true,
		Message: fmt.Sprintf("Note %q created successfully!", note.Title),
		Note:    &note,
	})
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	user, ok := s.noteUser(w, r)
	if !ok {
		return
	}
	req, err := decodeNote(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, noteResponse{Message: err.Error()})
		return
	}
	note, err := s.notes.Update(user, schema.NoteID(r.PathValue("id")), req.Title, req.Content)
	if err != nil {
		s.noteFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, noteResponse{Success: true, Message: "Note updated successfully", Note: &note})
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	user, ok := s.noteUser(w, r)
	if !ok {
		return
	}
	note, err := s.notes.Delete(user, r.PathValue("id"))
	if err != nil {
		s.noteFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, noteResponse{
		Success: true,
		Message: fmt.Sprintf("Note %q deleted successfully!", note.Title),
	})
}

// noteUser resolves the account signed in on the request's client session.
func (s *Server) noteUser(w http.ResponseWriter, r *http.Request) (schema.UserID, bool) {
	if s.notes == nil {
		writeJSON(w, http.StatusNotFound, noteResponse{Message: "Notes are not available."})
		return "", false
	}
	client := s.lookupClient(r)
	var backend shell.Backend
	if client != "" {
		backend = s.sessions.backend(client, logx.WithClient(r.Context(), client))
	}
	if backend != nil {
		res, err := backend.Whoami(r.Context())
		if err == nil && res.Success && res.User != nil && res.User.ID != "" {
			return res.User.ID, true
		}
	}
	writeJSON(w, http.StatusUnauthorized, noteResponse{Message: "Authentication required. Please login first."})
	return "", false
}

func (s *Server) noteFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, schema.ErrInvalidNote):
		writeJSON(w, http.StatusBadRequest, noteResponse{Message: "Title is required."})
	case errors.Is(err, schema.ErrNoteNotFound):
		writeJSON(w, http.StatusNotFound, noteResponse{Message: "Note not found."})
	case errors.Is(err, schema.ErrNoteAmbiguous):
		writeJSON(w, http.StatusConflict, noteResponse{Message: "Multiple notes match. Please use the note id."})
	default:
		logx.Ctx(r.Context()).Warn("http notes failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, noteResponse{Message: "Notes are unavailable."})
	}
}

func decodeNote(r *http.Request) (noteRequest, error) {
	var req noteRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxNoteBody))
	if err := dec.Decode(&req); err != nil {
		return noteRequest{}, fmt.Errorf("invalid note body: %w", err)
	}
	return req, nil
}
