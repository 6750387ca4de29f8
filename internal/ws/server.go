package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/websocket"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/mindgauge/backend/internal/cortex"
	"github.com/mindgauge/backend/internal/session"
)

// Controller is the slice of the session lifecycle manager the HTTP surface
// drives.
type Controller interface {
	ConnectAndAuthorize() ([]cortex.Headset, error)
	QueryHeadsets() ([]cortex.Headset, error)
	SelectHeadset(headsetID string) error
	StartRecording(durationSeconds int) error
	CancelRecording()
	Disconnect()
	State() session.State
	Recording() bool
}

type Server struct {
	controller      Controller
	broadcaster     *Broadcaster
	frontendDir     string
	dev             bool
	embeddedHandler http.Handler
}

func NewServer(controller Controller, broadcaster *Broadcaster, frontendDir string, dev bool, embeddedHandler http.Handler) *Server {
	return &Server{
		controller:      controller,
		broadcaster:     broadcaster,
		frontendDir:     frontendDir,
		dev:             dev,
		embeddedHandler: embeddedHandler,
	}
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/connect", s.handleConnect)
	mux.HandleFunc("/api/headsets", s.handleHeadsets)
	mux.HandleFunc("/api/select_headset", s.handleSelectHeadset)
	mux.HandleFunc("/api/start_recording", s.handleStartRecording)
	mux.HandleFunc("/api/restart_recording", s.handleRestartRecording)
	mux.HandleFunc("/api/disconnect", s.handleDisconnect)
	mux.HandleFunc("/api/health", s.handleHealth)

	if s.dev {
		log.Printf("Serving frontend from filesystem: %s", s.frontendDir)
		mux.Handle("/", http.FileServer(http.Dir(s.frontendDir)))
	} else if s.embeddedHandler != nil {
		log.Println("Serving embedded frontend")
		mux.Handle("/", s.embeddedHandler)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	log.Printf("WebSocket client connected: %s", r.RemoteAddr)
	c := s.broadcaster.AddClient(conn)

	go func() {
		defer func() {
			s.broadcaster.RemoveClient(c)
			log.Printf("WebSocket client disconnected: %s", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	headsets, err := s.controller.ConnectAndAuthorize()
	if err != nil {
		log.Printf("connect error: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"status": "success", "headsets": headsets})
}

func (s *Server) handleHeadsets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	headsets, err := s.controller.QueryHeadsets()
	if err != nil {
		if errors.Is(err, cortex.ErrNotConnected) {
			writeError(w, http.StatusBadRequest, "connection not initiated")
			return
		}
		log.Printf("headset query error: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"status": "success", "headsets": headsets})
}

func (s *Server) handleSelectHeadset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		HeadsetID string `json:"headsetId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.HeadsetID == "" {
		writeError(w, http.StatusBadRequest, "missing headsetId")
		return
	}

	if err := s.controller.SelectHeadset(body.HeadsetID); err != nil {
		if errors.Is(err, cortex.ErrNotConnected) {
			writeError(w, http.StatusBadRequest, "initial connection not made")
			return
		}
		log.Printf("select headset %s error: %v", body.HeadsetID, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"status": "success", "message": "Device connected and ready."})
}

func (s *Server) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Duration int `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Duration <= 0 {
		writeError(w, http.StatusBadRequest, "missing or invalid duration")
		return
	}

	if err := s.controller.StartRecording(body.Duration); err != nil {
		switch {
		case errors.Is(err, session.ErrDeviceNotConnected), errors.Is(err, session.ErrAlreadyRecording):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("start recording error: %v", err)
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, map[string]any{"status": "success"})
}

func (s *Server) handleRestartRecording(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.controller.CancelRecording()
	writeJSON(w, map[string]any{"status": "success", "message": "Recording session cancelled."})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.controller.Disconnect()
	writeJSON(w, map[string]any{"status": "success"})
}

type healthResponse struct {
	Status     string        `json:"status"`
	State      session.State `json:"state"`
	Recording  bool          `json:"recording"`
	Clients    int           `json:"clients"`
	CPUPercent float64       `json:"cpuPercent"`
	MemoryMB   float64       `json:"memoryMb"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		State:     s.controller.State(),
		Recording: s.controller.Recording(),
		Clients:   s.broadcaster.ClientCount(),
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if cpu, err := proc.CPUPercent(); err == nil {
			resp.CPUPercent = cpu
		}
		if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
			resp.MemoryMB = float64(mem.RSS) / (1024 * 1024)
		}
	}

	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": message})
}

func ListenAndServe(host string, port int, mux *http.ServeMux) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Printf("Server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
