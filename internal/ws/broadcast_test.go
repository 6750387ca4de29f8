package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// dialPair upgrades a server-side connection into the broadcaster and
// returns the corresponding client-side connection.
func dialPair(t *testing.T, b *Broadcaster) *websocket.Conn {
	t.Helper()

	serverConns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { clientConn.Close() })

	b.AddClient(<-serverConns)
	return clientConn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reading ws message: %v", err)
	}
	return msg
}

func TestScoreUpdateDelivered(t *testing.T) {
	b := NewBroadcaster()
	conn := dialPair(t, b)

	b.ScoreUpdate(42)

	msg := readMessage(t, conn)
	if msg.Type != MsgScoreUpdate {
		t.Fatalf("type = %q, want %q", msg.Type, MsgScoreUpdate)
	}
	payload, ok := msg.Payload.(map[string]interface{})
	if !ok {
		t.Fatalf("payload has unexpected shape: %#v", msg.Payload)
	}
	if payload["score"] != float64(42) {
		t.Errorf("score = %v, want 42", payload["score"])
	}
}

func TestLifecycleEventsDelivered(t *testing.T) {
	b := NewBroadcaster()
	conn := dialPair(t, b)

	b.RecordingStarted(60)
	b.RecordingEnded(55)
	b.RecordingCancelled()
	b.DisconnectedUnexpectedly("gone")

	wantTypes := []MessageType{MsgRecordingStarted, MsgRecordingEnded, MsgRecordingCancelled, MsgDisconnected}
	for _, want := range wantTypes {
		msg := readMessage(t, conn)
		if msg.Type != want {
			t.Errorf("type = %q, want %q", msg.Type, want)
		}
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	b := NewBroadcaster()
	conns := []*websocket.Conn{dialPair(t, b), dialPair(t, b), dialPair(t, b)}

	if got := b.ClientCount(); got != 3 {
		t.Fatalf("ClientCount = %d, want 3", got)
	}

	b.ScoreUpdate(7)
	for i, conn := range conns {
		msg := readMessage(t, conn)
		if msg.Type != MsgScoreUpdate {
			t.Errorf("client %d: type = %q, want %q", i, msg.Type, MsgScoreUpdate)
		}
	}
}

func TestRemoveClient(t *testing.T) {
	b := NewBroadcaster()

	serverConns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer clientConn.Close()

	c := b.AddClient(<-serverConns)
	if got := b.ClientCount(); got != 1 {
		t.Fatalf("ClientCount = %d, want 1", got)
	}

	b.RemoveClient(c)
	if got := b.ClientCount(); got != 0 {
		t.Errorf("ClientCount after remove = %d, want 0", got)
	}

	// Removing twice must not panic (double close of the send channel).
	b.RemoveClient(c)
}
