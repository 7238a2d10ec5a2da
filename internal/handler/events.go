package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tokenmeter/tokenmeter-api/internal/events"
)

type EventSubscriber interface {
	Subscribe(teamID string) *events.Client
	Unsubscribe(client *events.Client)
}

// EventsHandler streams a team's live updates as server-sent events. It must
// run behind TeamAccess.
type EventsHandler struct {
	broker    EventSubscriber
	heartbeat time.Duration
}

func NewEventsHandler(broker EventSubscriber) *EventsHandler {
	return &EventsHandler{
		broker:    broker,
		heartbeat: events.HeartbeatInterval,
	}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller := identity(r)
	team := teamID(r)
	if caller == nil || team == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid or missing authentication token"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := h.broker.Subscribe(team)
	defer h.broker.Unsubscribe(client)

	log.Info().
		Str("teamId", team).
		Str("userId", caller.ID).
		Msg("sse connection established")

	if err := h.sendEvent(w, flusher, events.TypeConnected, map[string]any{
		"teamId": team,
		"userId": caller.ID,
	}); err != nil {
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Info().
				Str("teamId", team).
				Msg("sse connection closed by client")
			return

		case <-client.Done:
			log.Info().
				Str("teamId", team).
				Msg("sse connection closed by broker")
			return

		case event := <-client.Events:
			if err := h.sendRawEvent(w, flusher, event); err != nil {
				log.Error().Err(err).Msg("failed to send event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				log.Debug().
					Str("teamId", team).
					Msg("heartbeat failed, closing connection")
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return h.sendRawEvent(w, flusher, events.Event{Type: eventType, Data: jsonData})
}

func (h *EventsHandler) sendRawEvent(w http.ResponseWriter, flusher http.Flusher, event events.Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", event.Data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
