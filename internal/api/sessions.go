package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/people-agent/server/internal/agent/people"
)

type createSessionRequest struct {
	Identity string `json:"identity"`
}

type sessionResponse struct {
	Identity string `json:"identity"`
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Answer string   `json:"answer"`
	Cached bool     `json:"cached"`
	Kinds  []string `json:"kinds"`
}

type messageResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ListUsers searches by display-name prefix, or lists everyone when the
// name is empty.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		v, err := people.ListAllUsers(r.Context(), h.tokens, h.dir)
		if err != nil {
			writeError(w, err)
			return
		}
		if v.IsError() {
			Error(w, http.StatusBadGateway, v.Err)
			return
		}
		JSON(w, http.StatusOK, map[string]any{"users": v.Data})
		return
	}

	candidates, err := people.Search(r.Context(), h.tokens, h.dir, name)
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"candidates": candidates})
}

// CreateSession resolves the identity and starts (or reuses) its session.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decode(w, r, &req) {
		return
	}

	resolved, err := people.ResolveIdentity(r.Context(), h.tokens, h.dir, req.Identity)
	if err != nil {
		writeError(w, err)
		return
	}
	agent, err := h.sessions.GetOrCreate(r.Context(), resolved)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/sessions/%s", agent.Identity()))
	JSON(w, http.StatusCreated, sessionResponse{Identity: agent.Identity()})
}

// EndSession is the "exit" command.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(r.Context(), identityParam(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Query runs one turn and returns the whole answer.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	agent, err := h.sessions.Lookup(identityParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	var req queryRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := agent.Ask(r.Context(), req.Query)
	if err != nil {
		writeError(w, err)
		return
	}
	kinds := make([]string, len(res.Kinds))
	for i, k := range res.Kinds {
		kinds[i] = string(k)
	}
	JSON(w, http.StatusOK, queryResponse{Answer: res.Answer, Cached: res.Cached, Kinds: kinds})
}

// History returns the stored turns of a session.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	agent, err := h.sessions.Lookup(identityParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	msgs, err := agent.History(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{Role: string(m.Role), Content: m.Content})
	}
	JSON(w, http.StatusOK, map[string]any{"messages": out})
}

// SessionUsers lists the directory through the session's resource cache.
func (h *Handler) SessionUsers(w http.ResponseWriter, r *http.Request) {
	agent, err := h.sessions.Lookup(identityParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := agent.AllUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if v.IsError() {
		Error(w, http.StatusBadGateway, v.Err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"users": v.Data})
}
