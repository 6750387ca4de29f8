package session

import (
	"log"
	"time"

	"github.com/mindgauge/backend/internal/cortex"
	"github.com/mindgauge/backend/internal/scoring"
)

// onFrame is the telemetry callback installed on the cortex client. It runs
// on the read-loop goroutine, so it only appends under the buffer lock and
// returns. Frames arriving outside a recording are dropped to keep the
// buffer from growing between sessions.
func (m *Manager) onFrame(frame cortex.StreamFrame) {
	m.mu.Lock()
	recording := m.recording
	m.mu.Unlock()
	if !recording {
		log.Printf("session: dropping sample, no recording active")
		return
	}

	m.bufMu.Lock()
	m.buffer = append(m.buffer, frame.Pow)
	m.bufMu.Unlock()
}

// aggregate is the cadence worker: once per window it drains the buffer and
// reduces it to a single score. It exits when stop closes and signals done,
// so resets can join it before mutating shared state.
func (m *Manager) aggregate(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.cfg.Recorder.Window)
	defer ticker.Stop()

	log.Printf("session: aggregation worker started")
	for {
		select {
		case <-stop:
			log.Printf("session: aggregation worker stopped")
			return
		case <-ticker.C:
			m.processWindow()
		}
	}
}

// takeBuffer swaps the sample buffer with a fresh empty one and returns the
// old contents. Producers are never blocked on reduction work.
func (m *Manager) takeBuffer() [][]float64 {
	m.bufMu.Lock()
	batch := m.buffer
	m.buffer = nil
	m.bufMu.Unlock()
	return batch
}

// processWindow reduces one window's samples to a score: sum alpha and beta
// power across all usable samples, score the combined ratio, record and
// publish it. A window with no samples or no usable ratio produces nothing;
// that is a normal outcome, not an error.
func (m *Manager) processWindow() {
	batch := m.takeBuffer()
	if len(batch) == 0 {
		return
	}

	var totalAlpha, totalBeta float64
	usable := 0
	for _, pow := range batch {
		alpha, beta, err := scoring.BandSums(pow)
		if err != nil {
			log.Printf("session: dropping sample: %v", err)
			continue
		}
		if beta == 0 {
			// Contributes nothing; a zero-beta sample cannot form a ratio.
			continue
		}
		totalAlpha += alpha
		totalBeta += beta
		usable++
	}

	if usable == 0 {
		log.Printf("session: no usable ratio in window of %d sample(s)", len(batch))
		return
	}

	ratio := totalAlpha / totalBeta
	score := scoring.Score(ratio, m.cfg.Scoring.Baseline)

	m.mu.Lock()
	m.scores = append(m.scores, score)
	m.mu.Unlock()

	log.Printf("session: window of %d sample(s), %d usable, ratio %.2f, score %d", len(batch), usable, ratio, score)
	m.notifier.ScoreUpdate(score)
}
