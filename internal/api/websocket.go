package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/people-agent/server/internal/agent/model"
	"github.com/people-agent/server/internal/agent/people"
	errx "github.com/people-agent/server/internal/core/error"
	logx "github.com/people-agent/server/pkg/logger"
)

const wsExit = "exit"

// wsRequest is one client frame. Identity may change between frames; the
// previous session is ended on a switch.
type wsRequest struct {
	Type     string `json:"type,omitempty"`
	Identity string `json:"identity,omitempty"`
	Query    string `json:"query,omitempty"`
}

type wsResponse struct {
	Type       string                `json:"type"`
	Identity   string                `json:"identity,omitempty"`
	Content    string                `json:"content,omitempty"`
	Cached     bool                  `json:"cached,omitempty"`
	Error      string                `json:"error,omitempty"`
	Candidates []model.UserCandidate `json:"candidates,omitempty"`
}

// ServeWS runs a chat over one websocket connection.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logx.Error().Err(err).Msg("failed to accept websocket")
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			logx.Debug().Err(closeErr).Msg("failed to close websocket")
		}
	}()

	ctx := r.Context()
	current := ""
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				logx.Debug().Str("identity", current).Msg("websocket closed by client")
			} else {
				logx.Warn().Err(err).Msg("websocket read error")
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(message, &req); err != nil {
			h.writeWS(ctx, ws, wsResponse{Type: "error", Error: "invalid JSON frame"})
			continue
		}

		if strings.EqualFold(req.Type, wsExit) || strings.EqualFold(strings.TrimSpace(req.Query), wsExit) {
			if current != "" {
				if err := h.sessions.End(ctx, current); err != nil && !errors.Is(err, errx.ErrSessionNotFound) {
					logx.Warn().Err(err).Str("identity", current).Msg("failed to end session")
				}
			}
			h.writeWS(ctx, ws, wsResponse{Type: wsExit, Identity: current})
			return
		}

		current = h.serveTurn(ctx, ws, current, req)
	}
}

// serveTurn answers one frame and returns the identity now in use.
func (h *Handler) serveTurn(ctx context.Context, ws *websocket.Conn, current string, req wsRequest) string {
	if id := strings.TrimSpace(req.Identity); id != "" && !strings.EqualFold(id, current) {
		resolved, err := people.ResolveIdentity(ctx, h.tokens, h.dir, id)
		if err != nil {
			h.writeWSError(ctx, ws, err)
			return current
		}
		if _, err := h.sessions.Switch(ctx, current, resolved); err != nil {
			h.writeWSError(ctx, ws, err)
			return current
		}
		current = resolved
	}
	if current == "" {
		h.writeWS(ctx, ws, wsResponse{Type: "error", Error: "identity is required"})
		return current
	}

	agent, err := h.sessions.GetOrCreate(ctx, current)
	if err != nil {
		h.writeWSError(ctx, ws, err)
		return current
	}
	res, err := agent.AskStream(ctx, req.Query, func(chunk string) error {
		return h.writeWS(ctx, ws, wsResponse{Type: "chunk", Content: chunk})
	})
	if err != nil {
		h.writeWSError(ctx, ws, err)
		return current
	}
	h.writeWS(ctx, ws, wsResponse{Type: "done", Identity: current, Cached: res.Cached})
	return current
}

func (h *Handler) writeWSError(ctx context.Context, ws *websocket.Conn, err error) {
	resp := wsResponse{Type: "error", Error: errx.PublicMessage(err)}
	var amb *people.AmbiguousIdentityError
	if errors.As(err, &amb) {
		resp.Candidates = amb.Candidates
	}
	h.writeWS(ctx, ws, resp)
}

func (h *Handler) writeWS(ctx context.Context, ws *websocket.Conn, v wsResponse) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
		logx.Debug().Err(err).Msg("websocket write failed")
		return err
	}
	return nil
}
