package cortex

import (
	"encoding/json"
	"fmt"
	"log"
)

// The handshake runs strictly in order, once per connection: requestAccess,
// queryHeadsets, controlDevice(connect), authorize, createSession,
// subscribe. Any failing step aborts the whole sequence; the caller
// discards partial state with a full reset.

// ConnectAndAuthorize dials the endpoint, requests access and returns the
// available headsets. requestAccess blocks until a human approves the
// prompt in the launcher, which may legitimately take the whole request
// timeout.
func (c *Client) ConnectAndAuthorize() ([]Headset, error) {
	if err := c.Dial(); err != nil {
		return nil, err
	}

	log.Printf("cortex: requesting access...")
	if _, err := c.call("requestAccess", accessParams{ClientID: c.clientID, ClientSecret: c.clientSecret}); err != nil {
		return nil, fmt.Errorf("requestAccess: %w", err)
	}
	log.Printf("cortex: access granted")

	return c.QueryHeadsets()
}

// QueryHeadsets lists the available headsets. It is idempotent and mutates
// no session state, so the control layer may re-query at any time.
func (c *Client) QueryHeadsets() ([]Headset, error) {
	result, err := c.call("queryHeadsets", nil)
	if err != nil {
		return nil, fmt.Errorf("queryHeadsets: %w", err)
	}

	var headsets []Headset
	if err := json.Unmarshal(result, &headsets); err != nil {
		return nil, fmt.Errorf("decoding headset list: %w", err)
	}
	if len(headsets) == 0 {
		return nil, ErrNoHeadsets
	}
	log.Printf("cortex: found %d headset(s)", len(headsets))
	return headsets, nil
}

// ConnectHeadset asks the launcher to connect the given headset.
func (c *Client) ConnectHeadset(headsetID string) error {
	if _, err := c.call("controlDevice", controlDeviceParams{Command: "connect", Headset: headsetID}); err != nil {
		return fmt.Errorf("controlDevice: %w", err)
	}
	c.headsetID = headsetID
	log.Printf("cortex: headset %s connected", headsetID)
	return nil
}

// Authorize exchanges the credential pair for an opaque auth token.
func (c *Client) Authorize() error {
	result, err := c.call("authorize", accessParams{ClientID: c.clientID, ClientSecret: c.clientSecret})
	if err != nil {
		return fmt.Errorf("authorize: %w", err)
	}

	var auth authorizeResult
	if err := json.Unmarshal(result, &auth); err != nil {
		return fmt.Errorf("decoding authorize result: %w", err)
	}
	c.authToken = auth.CortexToken
	log.Printf("cortex: authorization successful")
	return nil
}

// CreateSession opens an active session against the connected headset.
func (c *Client) CreateSession() error {
	result, err := c.call("createSession", createSessionParams{
		CortexToken: c.authToken,
		Headset:     c.headsetID,
		Status:      "active",
	})
	if err != nil {
		return fmt.Errorf("createSession: %w", err)
	}

	var session createSessionResult
	if err := json.Unmarshal(result, &session); err != nil {
		return fmt.Errorf("decoding createSession result: %w", err)
	}
	c.sessionID = session.ID
	log.Printf("cortex: session created: %s", c.sessionID)
	return nil
}

// Subscribe attaches to the band-power stream. After this the read loop
// enforces a rolling read deadline purely as connection-loss detection:
// idle periods shorter than the deadline are normal.
func (c *Client) Subscribe() error {
	if _, err := c.call("subscribe", subscribeParams{
		CortexToken: c.authToken,
		Session:     c.sessionID,
		Streams:     []string{"pow"},
	}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	c.deadlineOn.Store(true)
	log.Printf("cortex: subscribed to band power stream")
	return nil
}

// SessionID returns the active session identifier, empty before
// CreateSession succeeds.
func (c *Client) SessionID() string {
	return c.sessionID
}

// IsSessionActive reports whether createSession has completed on this
// connection.
func (c *Client) IsSessionActive() bool {
	return c.sessionID != ""
}
