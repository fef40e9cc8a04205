package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// streamProgress replays and follows one run's progress sequence over
// SSE. The stream ends after the terminal event or when the client
// disconnects.
func (rt *Router) streamProgress(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming is not supported"})
		return
	}

	interactionID := r.PathValue("id")
	events, unsubscribe := rt.hub.Subscribe(interactionID)
	defer unsubscribe()

	if rt.serverMetrics != nil {
		rt.serverMetrics.SubscriberConnected()
		defer rt.serverMetrics.SubscriberDisconnected()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case ev, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(ev.Data)
			if err != nil {
				rt.logger.Error("progress_event_marshal_failed", "run_id", interactionID, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, payload); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
