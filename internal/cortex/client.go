package cortex

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// pollInterval bounds how long a waiter sleeps between checks of the reply
// table. Polling keeps the table lock-light across the read-loop writer and
// arbitrary caller goroutines.
const pollInterval = 100 * time.Millisecond

const dialTimeout = 10 * time.Second

// Client owns one persistent websocket connection to the device-control
// endpoint. It sends framed JSON-RPC requests, correlates replies to
// outstanding request ids, and routes streamed telemetry and warnings from
// a dedicated read loop. A Client is single-use: after a disconnect the
// caller creates a fresh one rather than reconnecting in place.
type Client struct {
	url            string
	clientID       string
	clientSecret   string
	requestTimeout time.Duration
	readDeadline   time.Duration

	writeMu sync.Mutex // gorilla permits one concurrent writer

	mu          sync.Mutex // guards conn, connected, nextID, pending, outstanding
	conn        *websocket.Conn
	connected   bool
	nextID      int
	pending     map[int]*envelope
	outstanding map[int]struct{}

	// deadlineOn flips after subscribe; the read loop then refreshes a
	// read deadline before every receive as connection-loss detection.
	deadlineOn atomic.Bool
	closing    atomic.Bool
	notifyOnce sync.Once

	handlerMu     sync.Mutex
	streamHandler func(StreamFrame)
	onDisconnect  func()

	authToken string
	headsetID string
	sessionID string
}

// NewClient prepares a client for the given endpoint and credential pair.
// No connection is made until Dial.
func NewClient(url, clientID, clientSecret string, requestTimeout, readDeadline time.Duration) *Client {
	return &Client{
		url:            url,
		clientID:       clientID,
		clientSecret:   clientSecret,
		requestTimeout: requestTimeout,
		readDeadline:   readDeadline,
		nextID:         1,
		pending:        make(map[int]*envelope),
		outstanding:    make(map[int]struct{}),
	}
}

// SetStreamHandler installs the callback invoked with each telemetry frame.
// Must be set before subscribing.
func (c *Client) SetStreamHandler(fn func(StreamFrame)) {
	c.handlerMu.Lock()
	c.streamHandler = fn
	c.handlerMu.Unlock()
}

// SetDisconnectHandler installs the callback fired exactly once when the
// read loop terminates on an error or remote close. A deliberate Close does
// not fire it.
func (c *Client) SetDisconnectHandler(fn func()) {
	c.handlerMu.Lock()
	c.onDisconnect = fn
	c.handlerMu.Unlock()
}

// Dial opens the websocket connection and starts the read loop. A wss
// endpoint uses TLS without certificate verification because the real
// device serves a self-signed local certificate; a ws endpoint (the mock)
// skips TLS entirely.
func (c *Client) Dial() error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	if strings.HasPrefix(c.url, "wss://") {
		log.Printf("cortex: connecting with TLS to %s", c.url)
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	} else {
		log.Printf("cortex: connecting without TLS to %s", c.url)
	}

	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("connecting to cortex endpoint %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// Close tears the connection down deliberately. The read loop exits on the
// closed socket without firing the disconnect handler.
func (c *Client) Close() {
	c.closing.Store(true)

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
		log.Printf("cortex: disconnected")
	}
}

// send writes one JSON-RPC request and returns its id. Ids increase
// monotonically from 1 and are never reused for the connection's lifetime.
func (c *Client) send(method string, params any) (int, error) {
	c.mu.Lock()
	if !c.connected || c.conn == nil {
		c.mu.Unlock()
		return 0, ErrNotConnected
	}
	conn := c.conn
	id := c.nextID
	c.nextID++
	c.outstanding[id] = struct{}{}
	c.mu.Unlock()

	req := rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: id}

	c.writeMu.Lock()
	err := conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("sending %s request: %w", method, err)
	}
	log.Printf("cortex: --> %s (id %d)", method, id)
	return id, nil
}

// await blocks until the reply for id arrives or the timeout elapses. Each
// id is consumed exactly once, first waiter wins; the protocol is strictly
// one request, one reply. A timed-out id is forgotten, so a reply arriving
// after the waiter gave up is dropped rather than parked forever.
func (c *Client) await(id int, timeout time.Duration) (json.RawMessage, error) {
	deadline := time.Now().Add(timeout)
	for {
		c.mu.Lock()
		resp, ok := c.pending[id]
		if ok {
			delete(c.pending, id)
			delete(c.outstanding, id)
		}
		c.mu.Unlock()

		if ok {
			if resp.Error != nil {
				return nil, &RemoteError{Code: resp.Error.Code, Message: resp.Error.Message}
			}
			return resp.Result, nil
		}
		if time.Now().After(deadline) {
			c.mu.Lock()
			delete(c.outstanding, id)
			delete(c.pending, id)
			c.mu.Unlock()
			return nil, &TimeoutError{RequestID: id}
		}
		time.Sleep(pollInterval)
	}
}

// call is the request/response round trip used by every handshake step.
func (c *Client) call(method string, params any) (json.RawMessage, error) {
	id, err := c.send(method, params)
	if err != nil {
		return nil, err
	}
	return c.await(id, c.requestTimeout)
}

// readLoop receives frames until the connection fails or closes, handing
// each to dispatch. It never reconnects; recovery is the caller's decision
// through a full reset.
func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.notifyDisconnect()

	for {
		if c.deadlineOn.Load() && c.readDeadline > 0 {
			conn.SetReadDeadline(time.Now().Add(c.readDeadline))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !c.closing.Load() {
				log.Printf("cortex: read loop terminated: %v", err)
			}
			return
		}
		c.dispatch(data)
	}
}

// dispatch classifies one inbound frame, in this order: RPC reply, telemetry
// sample, warning, unrecognized.
func (c *Client) dispatch(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("cortex: dropping undecodable frame: %v", err)
		return
	}

	switch {
	case env.ID != nil:
		c.mu.Lock()
		if _, ok := c.outstanding[*env.ID]; ok {
			c.pending[*env.ID] = &env
		} else {
			log.Printf("cortex: dropping reply with no outstanding request (id %d)", *env.ID)
		}
		c.mu.Unlock()

	case env.SID != "" && env.hasStreamField():
		c.handlerMu.Lock()
		handler := c.streamHandler
		c.handlerMu.Unlock()
		if handler != nil {
			handler(StreamFrame{SID: env.SID, Time: env.Time, Pow: env.Pow})
		}

	case env.Warning != nil:
		log.Printf("cortex: warning %d: %s", env.Warning.Code, env.Warning.Message)

	default:
		log.Printf("cortex: dropping unrecognized frame")
	}
}

func (c *Client) notifyDisconnect() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	if c.closing.Load() {
		return
	}
	c.notifyOnce.Do(func() {
		c.handlerMu.Lock()
		fn := c.onDisconnect
		c.handlerMu.Unlock()
		if fn != nil {
			fn()
		}
	})
}
