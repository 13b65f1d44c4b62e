package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"diagramgen/pipeline"
)

func startHub(t *testing.T, config HubConfig) (*ProgressHub, *httptest.Server) {
	t.Helper()
	hub := NewProgressHub(config, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Start(ctx)
		close(done)
	}()

	srv := httptest.NewServer(NewLoggingMiddleware(zaptest.NewLogger(t)).Handler(
		http.HandlerFunc(hub.HandleConnection)))
	t.Cleanup(func() {
		cancel()
		<-done
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("invalid frame %s: %v", data, err)
	}
	return msg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestProgressHub_StreamsEvents(t *testing.T) {
	hub, srv := startHub(t, DefaultHubConfig())
	conn := dial(t, srv)

	initial := readMessage(t, conn)
	if initial.Type != MessageTypeInitial {
		t.Fatalf("first message type = %q, want %q", initial.Type, MessageTypeInitial)
	}
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.OnEvent(pipeline.Event{RunID: "run1", State: pipeline.StateStyling, Round: 2, Elapsed: 1500 * time.Millisecond})
	hub.OnEvent(pipeline.Event{RunID: "run1", State: pipeline.StateCompleted, Message: "final.png"})

	var got []RunEventData
	for i := 0; i < 2; i++ {
		msg := readMessage(t, conn)
		if msg.Type != MessageTypeRunEvent {
			t.Fatalf("message type = %q, want %q", msg.Type, MessageTypeRunEvent)
		}
		var data RunEventData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			t.Fatal(err)
		}
		got = append(got, data)
	}

	if got[0].State != "STYLING" || got[0].Round != 2 || got[0].ElapsedSeconds != 1.5 || got[0].Terminal {
		t.Errorf("first event = %+v", got[0])
	}
	if got[1].State != "COMPLETED" || !got[1].Terminal || got[1].Message != "final.png" {
		t.Errorf("second event = %+v", got[1])
	}
}

func TestProgressHub_InitialBacklog(t *testing.T) {
	hub, srv := startHub(t, HubConfig{BacklogSize: 2})

	hub.OnEvent(pipeline.Event{RunID: "a", State: pipeline.StatePlanning})
	hub.OnEvent(pipeline.Event{RunID: "a", State: pipeline.StateStyling, Round: 1})
	hub.OnEvent(pipeline.Event{RunID: "a", State: pipeline.StateVisualizing, Round: 1})
	waitFor(t, func() bool {
		b := hub.Backlog()
		return len(b) == 2 && b[1].State == "VISUALIZING"
	})

	conn := dial(t, srv)
	msg := readMessage(t, conn)
	if msg.Type != MessageTypeInitial {
		t.Fatalf("type = %q", msg.Type)
	}
	var initial InitialData
	if err := json.Unmarshal(msg.Data, &initial); err != nil {
		t.Fatal(err)
	}
	if len(initial.Events) != 2 {
		t.Fatalf("backlog has %d events, want 2", len(initial.Events))
	}
	if initial.Events[0].State != "STYLING" || initial.Events[1].State != "VISUALIZING" {
		t.Errorf("backlog = %+v", initial.Events)
	}
}

func TestProgressHub_ClientDisconnect(t *testing.T) {
	hub, srv := startHub(t, DefaultHubConfig())
	conn := dial(t, srv)
	readMessage(t, conn)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}

func TestProgressHub_OnEventNeverBlocks(t *testing.T) {
	// not started: nothing drains the broadcast queue
	hub := NewProgressHub(HubConfig{BroadcastBufferSize: 1}, zaptest.NewLogger(t))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.OnEvent(pipeline.Event{RunID: "r", State: pipeline.StateCritiquing, Round: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnEvent blocked with a full queue")
	}
}

func TestProgressHub_ConnectDuringRunSeesEachEventOnce(t *testing.T) {
	const events = 40
	hub, srv := startHub(t, HubConfig{BacklogSize: 100, ClientSendBufferSize: 128})

	emitted := make(chan struct{})
	go func() {
		defer close(emitted)
		for i := 1; i <= events; i++ {
			hub.OnEvent(pipeline.Event{RunID: "r", State: pipeline.StateCritiquing, Round: i})
			time.Sleep(time.Millisecond)
		}
	}()
	conn := dial(t, srv)
	<-emitted

	seen := make(map[int]int)
	record := func(data RunEventData) { seen[data.Round]++ }

	initial := readMessage(t, conn)
	if initial.Type != MessageTypeInitial {
		t.Fatalf("first message type = %q", initial.Type)
	}
	var backlog InitialData
	if err := json.Unmarshal(initial.Data, &backlog); err != nil {
		t.Fatal(err)
	}
	for _, e := range backlog.Events {
		record(e)
	}

	for len(seen) < events {
		msg := readMessage(t, conn)
		var data RunEventData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			t.Fatal(err)
		}
		record(data)
	}

	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, extra, err := conn.ReadMessage(); err == nil {
		t.Errorf("unexpected extra frame %s", extra)
	}
	for round, n := range seen {
		if n != 1 {
			t.Errorf("round %d delivered %d times", round, n)
		}
	}
}

func TestProgressHub_StartReturnsOnCancel(t *testing.T) {
	hub := NewProgressHub(DefaultHubConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- hub.Start(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestWSMessage_MarshalJSON(t *testing.T) {
	msg := NewRunEventMessage(pipeline.Event{RunID: "r1", State: pipeline.StateAccepted, Round: 3})
	msg.Timestamp = time.Date(2026, 3, 1, 12, 0, 0, 5e6, time.UTC)

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["timestamp"] != "2026-03-01T12:00:00.005Z" {
		t.Errorf("timestamp = %v", decoded["timestamp"])
	}
	if decoded["type"] != MessageTypeRunEvent {
		t.Errorf("type = %v", decoded["type"])
	}
}
