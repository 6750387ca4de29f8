package session

import (
	"log"
	"sync"
	"time"

	"github.com/mindgauge/backend/internal/config"
	"github.com/mindgauge/backend/internal/cortex"
)

// Notifier receives lifecycle and score events for delivery to downstream
// observers. The websocket hub implements it.
type Notifier interface {
	ScoreUpdate(score int)
	RecordingStarted(durationSeconds int)
	RecordingEnded(averageScore int)
	RecordingCancelled()
	DisconnectedUnexpectedly(message string)
}

// Manager is the single owner of the device session: the cortex client, the
// session state machine, the sample buffer, the score history and the
// background workers. All mutation funnels through two reset procedures
// that stop and join background work before touching shared fields.
type Manager struct {
	cfg      *config.Config
	notifier Notifier

	mu        sync.Mutex // guards client, state, recording, stop/done, timer, scores
	client    *cortex.Client
	state     State
	recording bool
	stop      chan struct{}
	done      chan struct{}
	timer     *time.Timer
	scores    []int

	// bufMu guards only the sample buffer; it is held for append and
	// swap, never across reduction or network I/O.
	bufMu  sync.Mutex
	buffer [][]float64
}

func NewManager(cfg *config.Config, notifier Notifier) *Manager {
	return &Manager{
		cfg:      cfg,
		notifier: notifier,
		state:    Idle,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Recording reports whether a recording is in progress.
func (m *Manager) Recording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recording
}

// ConnectAndAuthorize tears down any previous connection, dials the device
// endpoint, requests access and returns the available headsets.
func (m *Manager) ConnectAndAuthorize() ([]cortex.Headset, error) {
	m.ResetConnection()

	client := cortex.NewClient(
		m.cfg.Cortex.URL,
		m.cfg.Cortex.ClientID,
		m.cfg.Cortex.ClientSecret,
		m.cfg.Cortex.RequestTimeout,
		m.cfg.Cortex.ReadDeadline,
	)
	client.SetStreamHandler(m.onFrame)
	client.SetDisconnectHandler(m.handleUnexpectedDisconnect)

	headsets, err := client.ConnectAndAuthorize()
	if err != nil {
		client.Close()
		return nil, err
	}

	m.mu.Lock()
	m.client = client
	m.state = Connecting
	m.mu.Unlock()
	return headsets, nil
}

// QueryHeadsets re-queries the available headsets without touching session
// state.
func (m *Manager) QueryHeadsets() ([]cortex.Headset, error) {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()
	if client == nil {
		return nil, cortex.ErrNotConnected
	}
	return client.QueryHeadsets()
}

// SelectHeadset drives the remaining handshake against the chosen headset:
// controlDevice, authorize, createSession, subscribe. Any failing step
// discards all partial state through a full reset.
func (m *Manager) SelectHeadset(headsetID string) error {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()
	if client == nil {
		return cortex.ErrNotConnected
	}

	if err := client.ConnectHeadset(headsetID); err != nil {
		m.ResetConnection()
		return err
	}
	m.setState(HeadsetSelected)

	if err := client.Authorize(); err != nil {
		m.ResetConnection()
		return err
	}
	m.setState(Authorized)

	if err := client.CreateSession(); err != nil {
		m.ResetConnection()
		return err
	}
	if err := client.Subscribe(); err != nil {
		m.ResetConnection()
		return err
	}
	m.setState(SessionActive)
	return nil
}

// StartRecording begins a timed recording against the active session. The
// cadence worker and the end-of-recording timer start together; both are
// stopped by either reset scope.
func (m *Manager) StartRecording(durationSeconds int) error {
	m.mu.Lock()
	state, recording := m.state, m.recording
	m.mu.Unlock()

	if recording {
		return ErrAlreadyRecording
	}
	if state != SessionActive {
		return ErrDeviceNotConnected
	}

	// A previous recording's buffer or scores must never leak into this
	// one.
	m.ResetRecording()

	return m.commitRecording(durationSeconds)
}

// commitRecording re-validates the preconditions under the lock and starts
// the workers. The caller's earlier check may have been invalidated in the
// meantime: a full reset (unexpected disconnect, concurrent Disconnect) can
// land between the check and the commit, so both checks repeat here before
// any shared field is touched.
func (m *Manager) commitRecording(durationSeconds int) error {
	m.mu.Lock()
	if m.recording {
		m.mu.Unlock()
		return ErrAlreadyRecording
	}
	if m.state != SessionActive {
		m.mu.Unlock()
		return ErrDeviceNotConnected
	}
	m.recording = true
	m.state = Recording
	stop := make(chan struct{})
	done := make(chan struct{})
	m.stop, m.done = stop, done
	m.timer = time.AfterFunc(time.Duration(durationSeconds)*time.Second, m.endRecording)
	m.mu.Unlock()

	go m.aggregate(stop, done)

	log.Printf("session: recording started for %ds", durationSeconds)
	m.notifier.RecordingStarted(durationSeconds)
	return nil
}

// CancelRecording aborts an in-progress recording; a no-op otherwise. The
// cancellation notice goes out only when the reset actually stopped a live
// recording, so a timer firing at the same moment cannot produce both an
// ended and a cancelled notice.
func (m *Manager) CancelRecording() {
	if !m.resetRecording() {
		log.Printf("session: cancel requested with no active recording")
		return
	}
	log.Printf("session: recording cancelled")
	m.notifier.RecordingCancelled()
}

// Disconnect tears the whole connection down and returns to Idle.
func (m *Manager) Disconnect() {
	m.ResetConnection()
}

// endRecording fires when the recording timer elapses: it reports the mean
// of the per-window scores (0 when no window produced one) and resets the
// recording scope, leaving the session active for the next recording. The
// recording flag is cleared under the same lock as the check, claiming the
// recording so a concurrent cancel finds nothing left to cancel.
func (m *Manager) endRecording() {
	m.mu.Lock()
	if !m.recording {
		m.mu.Unlock()
		return
	}
	m.recording = false
	avg := 0
	if len(m.scores) > 0 {
		sum := 0
		for _, s := range m.scores {
			sum += s
		}
		avg = sum / len(m.scores)
	}
	count := len(m.scores)
	m.mu.Unlock()

	log.Printf("session: recording finished, average score %d from %d window(s)", avg, count)
	m.notifier.RecordingEnded(avg)
	m.ResetRecording()
}

// handleUnexpectedDisconnect runs on the read-loop goroutine when the
// transport dies mid-session. The client fires it at most once per
// connection.
func (m *Manager) handleUnexpectedDisconnect() {
	log.Printf("session: device connection lost unexpectedly")
	m.notifier.DisconnectedUnexpectedly("Connection to device lost unexpectedly.")
	m.ResetConnection()
}

// ResetConnection is the full-scope reset: stop and join background
// workers, cancel the timer, close the transport and zero every piece of
// shared state. Safe to call from Idle; always runs before a new
// connection, guaranteeing at most one live connection and one cadence
// worker at any time.
func (m *Manager) ResetConnection() {
	m.stopWorkers()

	m.mu.Lock()
	client := m.client
	m.client = nil
	m.state = Idle
	m.recording = false
	m.scores = nil
	m.mu.Unlock()

	m.bufMu.Lock()
	m.buffer = nil
	m.bufMu.Unlock()

	if client != nil {
		client.Close()
	}
	log.Printf("session: connection state reset")
}

// ResetRecording is the recording-only reset: it stops the cadence worker
// and timer and clears the buffer and score history, but leaves the
// connection and active session untouched so a new recording can start
// without re-running the handshake.
func (m *Manager) ResetRecording() {
	m.resetRecording()
}

// resetRecording reports whether it stopped a live recording, so callers
// can tie their notification to actually having claimed the recording.
func (m *Manager) resetRecording() bool {
	m.stopWorkers()

	m.bufMu.Lock()
	dropped := len(m.buffer)
	m.buffer = nil
	m.bufMu.Unlock()
	if dropped > 0 {
		log.Printf("session: cleared %d buffered sample(s)", dropped)
	}

	m.mu.Lock()
	wasRecording := m.recording
	m.recording = false
	m.scores = nil
	if m.state == Recording {
		m.state = SessionActive
	}
	m.mu.Unlock()
	return wasRecording
}

// stopWorkers signals the cadence worker, joins it, and cancels the
// recording timer. Shared fields are only mutated after the join: a stale
// worker must never write into a buffer that has already been reset.
func (m *Manager) stopWorkers() {
	m.mu.Lock()
	stop, done, timer := m.stop, m.done, m.timer
	m.stop, m.done, m.timer = nil, nil, nil
	m.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if stop != nil {
		close(stop)
	}
	if done != nil {
		<-done
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
