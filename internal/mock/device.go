package mock

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// StreamInterval is the cadence of the simulated band-power stream (8 Hz,
// matching the real device).
const StreamInterval = 125 * time.Millisecond

var headsets = []map[string]string{
	{"id": "EPOCX-MOCK-1234", "status": "connected", "customName": "Mock EPOC X 1"},
	{"id": "EPOCX-MOCK-5678", "status": "connected", "customName": "Mock EPOC X 2"},
	{"id": "EPOCX-MOCK-9101", "status": "available", "customName": "Mock EPOC X 3"},
	{"id": "INSIGHT-MOCK-1234", "status": "connected", "customName": "Mock Insight 1"},
	{"id": "INSIGHT-MOCK-5678", "status": "connected", "customName": "Mock Insight 2"},
}

// Device simulates the headset's JSON-RPC control endpoint and band-power
// stream over a plaintext websocket. It answers the six handshake methods
// with canned results and, once subscribed, streams synthetic 'pow' frames
// until the client disconnects.
type Device struct {
	upgrader  websocket.Upgrader
	sessionID string
	token     string
	interval  time.Duration
}

func NewDevice() *Device {
	return &Device{
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		sessionID: uuid.NewString(),
		token:     uuid.NewString(),
		interval:  StreamInterval,
	}
}

// SessionID returns the session identifier the device mints for
// createSession. Exposed so tests can match streamed frames to it.
func (d *Device) SessionID() string {
	return d.sessionID
}

func (d *Device) Handler() http.Handler {
	return http.HandlerFunc(d.handleConn)
}

// ListenAndServe runs the device at addr until ctx is cancelled.
func (d *Device) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: d.Handler()}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	log.Printf("mock device listening on ws://%s", addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

type rpcRequest struct {
	ID     int             `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func (d *Device) handleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("mock device: upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// The streamer and the responder both write to the connection.
	var writeMu sync.Mutex
	stop := make(chan struct{})
	defer close(stop)
	streaming := false

	log.Printf("mock device: client connected from %s", r.RemoteAddr)

	for {
		var req rpcRequest
		if err := conn.ReadJSON(&req); err != nil {
			log.Printf("mock device: client disconnected: %v", err)
			return
		}

		var reply map[string]any
		switch req.Method {
		case "requestAccess":
			reply = result(req.ID, map[string]any{"accessGranted": true})
		case "queryHeadsets":
			reply = result(req.ID, headsets)
		case "controlDevice":
			reply = result(req.ID, map[string]any{"command": "connect", "message": "Connection successful."})
		case "authorize":
			reply = result(req.ID, map[string]any{"cortexToken": d.token})
		case "createSession":
			reply = result(req.ID, map[string]any{"id": d.sessionID, "status": "active"})
		case "subscribe":
			reply = result(req.ID, map[string]any{
				"success": []map[string]string{{"streamName": "pow", "message": "Subscribed successfully"}},
			})
			if !streaming {
				streaming = true
				go d.stream(conn, &writeMu, stop)
			}
		default:
			log.Printf("mock device: unknown method %q", req.Method)
			reply = map[string]any{
				"id":    req.ID,
				"error": map[string]any{"code": -32601, "message": "Method not found"},
			}
		}

		writeMu.Lock()
		err = conn.WriteJSON(reply)
		writeMu.Unlock()
		if err != nil {
			log.Printf("mock device: write error: %v", err)
			return
		}
	}
}

func result(id int, payload any) map[string]any {
	return map[string]any{"id": id, "jsonrpc": "2.0", "result": payload}
}

func (d *Device) stream(conn *websocket.Conn, writeMu *sync.Mutex, stop <-chan struct{}) {
	gen := newPowerGenerator()
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			frame := map[string]any{
				"pow":  gen.next(),
				"sid":  d.sessionID,
				"time": float64(time.Now().UnixMilli()) / 1000,
			}
			writeMu.Lock()
			err := conn.WriteJSON(frame)
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
