package webui

import (
	"encoding/json"
	"time"

	"diagramgen/pipeline"
)

// Message types sent over the progress feed.
const (
	// MessageTypeRunEvent carries one pipeline state transition.
	MessageTypeRunEvent = "run_event"

	// MessageTypeInitial carries the recent event backlog on connect.
	MessageTypeInitial = "initial"
)

// WSMessage is the envelope for every websocket frame.
type WSMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// NewWSMessage creates a message stamped with the current time.
func NewWSMessage(msgType string, data interface{}) WSMessage {
	return WSMessage{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// MarshalJSON renders the timestamp in RFC 3339 with milliseconds.
func (m WSMessage) MarshalJSON() ([]byte, error) {
	type alias WSMessage
	return json.Marshal(struct {
		alias
		Timestamp string `json:"timestamp"`
	}{
		alias:     alias(m),
		Timestamp: m.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

// RunEventData is the payload of a run_event message.
type RunEventData struct {
	RunID          string  `json:"run_id"`
	State          string  `json:"state"`
	Round          int     `json:"round,omitempty"`
	Message        string  `json:"message,omitempty"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Terminal       bool    `json:"terminal"`
}

// InitialData is the payload of the initial message.
type InitialData struct {
	Events []RunEventData `json:"events"`
}

// EventData converts a pipeline event to its wire form.
func EventData(e pipeline.Event) RunEventData {
	return RunEventData{
		RunID:          e.RunID,
		State:          string(e.State),
		Round:          e.Round,
		Message:        e.Message,
		ElapsedSeconds: e.Elapsed.Seconds(),
		Terminal:       e.State.Terminal(),
	}
}

// NewRunEventMessage wraps a pipeline event.
func NewRunEventMessage(e pipeline.Event) WSMessage {
	return NewWSMessage(MessageTypeRunEvent, EventData(e))
}

// NewInitialMessage wraps the event backlog.
func NewInitialMessage(events []RunEventData) WSMessage {
	if events == nil {
		events = []RunEventData{}
	}
	return NewWSMessage(MessageTypeInitial, InitialData{Events: events})
}
