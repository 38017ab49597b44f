package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"optigov.org/internal/domain"
)

const keepAliveInterval = 25 * time.Second

// Stream sends partition change events as Server-Sent Events. The optional
// partition query parameter (repeated or comma separated) narrows the feed.
func (a *API) Stream(w http.ResponseWriter, r *http.Request) {
	var filter []domain.Partition
	for _, raw := range r.URL.Query()["partition"] {
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			p, ok := domain.ParsePartition(name)
			if !ok {
				writeError(w, r, http.StatusBadRequest, "unknown partition "+name)
				return
			}
			filter = append(filter, p)
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	// The server's write timeout would otherwise cut the stream.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := a.store.Bus().Subscribe(ctx, filter...)

	// Send an initial comment to establish the stream
	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case change, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(change)
			if err != nil {
				continue
			}
			_, _ = w.Write([]byte("event: change\ndata: "))
			_, _ = w.Write(payload)
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
