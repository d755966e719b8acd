package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/goalkeeper/internal/server/feed"
	"github.com/gin-gonic/gin"
)

const keepAliveInterval = 30 * time.Second

// changes streams the change feed for one collection as server-sent
// events: a snapshot of the current documents as "added" events, then
// live notifications. The live subscription is opened before the snapshot
// is read, so a write racing the snapshot is delivered twice rather than
// never; cache upserts on the client are idempotent.
func (h *Handler) changes(c *gin.Context) {
	collection, ok := h.collectionParam(c)
	if !ok {
		return
	}
	uid := userID(c)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	events, cancel := h.hub.Subscribe(uid, collection)
	defer cancel()

	docs, err := h.store.List(c.Request.Context(), uid, collection)
	if err != nil {
		h.storeError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	for _, d := range docs {
		if err := writeEvent(c.Writer, feed.Event{Type: feed.TypeAdded, ID: d.ID, Doc: d.Body}); err != nil {
			return
		}
	}
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				// dropped by the hub; the client reconnects and resyncs
				return
			}
			if err := writeEvent(c.Writer, ev); err != nil {
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprint(c.Writer, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent encodes one event in SSE framing: the change type as the
// event name, the id/doc payload as a single data line.
func writeEvent(w http.ResponseWriter, ev feed.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
	return err
}
