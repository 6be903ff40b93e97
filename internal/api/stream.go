package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	errx "github.com/people-agent/server/internal/core/error"
	logx "github.com/people-agent/server/pkg/logger"
)

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// ssePayload JSON-encodes v so multi-line text stays on one data line.
func ssePayload(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// Stream runs one turn and relays the answer as server-sent events:
// "chunk" events carrying text, then "done" or "error".
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	identity := identityParam(r)
	agent, err := h.sessions.Lookup(identity)
	if err != nil {
		writeError(w, err)
		return
	}
	var req queryRequest
	if !decode(w, r, &req) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	res, err := agent.AskStream(r.Context(), req.Query, func(chunk string) error {
		if err := writeSSE(w, "chunk", ssePayload(map[string]string{"content": chunk})); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		logx.Warn().Err(err).Str("identity", identity).Msg("stream turn failed")
		if writeErr := writeSSE(w, "error", ssePayload(map[string]string{"error": errx.PublicMessage(err)})); writeErr != nil {
			return
		}
		flusher.Flush()
		return
	}

	if err := writeSSE(w, "done", ssePayload(map[string]bool{"cached": res.Cached})); err != nil {
		return
	}
	flusher.Flush()
}
