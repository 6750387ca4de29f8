package ws

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mindgauge/backend/internal/cortex"
	"github.com/mindgauge/backend/internal/session"
)

// fakeController scripts the lifecycle manager for handler tests.
type fakeController struct {
	headsets   []cortex.Headset
	connectErr error
	queryErr   error
	selectErr  error
	startErr   error

	state     session.State
	recording bool

	selected   string
	cancelled  int
	disconnect int
	startedFor int
}

func (f *fakeController) ConnectAndAuthorize() ([]cortex.Headset, error) {
	return f.headsets, f.connectErr
}

func (f *fakeController) QueryHeadsets() ([]cortex.Headset, error) {
	return f.headsets, f.queryErr
}

func (f *fakeController) SelectHeadset(id string) error {
	f.selected = id
	return f.selectErr
}

func (f *fakeController) StartRecording(seconds int) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.startedFor = seconds
	return nil
}

func (f *fakeController) CancelRecording() { f.cancelled++ }
func (f *fakeController) Disconnect()      { f.disconnect++ }

func (f *fakeController) State() session.State { return f.state }
func (f *fakeController) Recording() bool      { return f.recording }

func newTestServer(t *testing.T, controller *fakeController) *httptest.Server {
	t.Helper()
	s := NewServer(controller, NewBroadcaster(), "", false, nil)
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return body
}

func TestHandleConnect(t *testing.T) {
	fc := &fakeController{headsets: []cortex.Headset{{ID: "EPOCX-1", Status: "connected"}}}
	srv := newTestServer(t, fc)

	resp := postJSON(t, srv.URL+"/api/connect", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["status"] != "success" {
		t.Errorf("status field = %v", body["status"])
	}
	headsets, ok := body["headsets"].([]any)
	if !ok || len(headsets) != 1 {
		t.Errorf("headsets = %v, want one entry", body["headsets"])
	}
}

func TestHandleConnectFailure(t *testing.T) {
	fc := &fakeController{connectErr: cortex.ErrNoHeadsets}
	srv := newTestServer(t, fc)

	resp := postJSON(t, srv.URL+"/api/connect", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["status"] != "error" {
		t.Errorf("status field = %v, want error", body["status"])
	}
}

func TestHandleConnectMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &fakeController{})

	resp, err := http.Get(srv.URL + "/api/connect")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestHandleHeadsetsBeforeConnect(t *testing.T) {
	fc := &fakeController{queryErr: cortex.ErrNotConnected}
	srv := newTestServer(t, fc)

	resp, err := http.Get(srv.URL + "/api/headsets")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleSelectHeadset(t *testing.T) {
	fc := &fakeController{}
	srv := newTestServer(t, fc)

	resp := postJSON(t, srv.URL+"/api/select_headset", map[string]string{"headsetId": "EPOCX-1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if fc.selected != "EPOCX-1" {
		t.Errorf("selected headset = %q, want EPOCX-1", fc.selected)
	}
}

func TestHandleSelectHeadsetMissingID(t *testing.T) {
	srv := newTestServer(t, &fakeController{})

	resp := postJSON(t, srv.URL+"/api/select_headset", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleStartRecording(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		startErr   error
		wantStatus int
	}{
		{"success", map[string]int{"duration": 60}, nil, http.StatusOK},
		{"missing duration", map[string]string{}, nil, http.StatusBadRequest},
		{"negative duration", map[string]int{"duration": -5}, nil, http.StatusBadRequest},
		{"not connected", map[string]int{"duration": 60}, session.ErrDeviceNotConnected, http.StatusBadRequest},
		{"already recording", map[string]int{"duration": 60}, session.ErrAlreadyRecording, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeController{startErr: tt.startErr}
			srv := newTestServer(t, fc)

			resp := postJSON(t, srv.URL+"/api/start_recording", tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestHandleRestartRecording(t *testing.T) {
	fc := &fakeController{}
	srv := newTestServer(t, fc)

	resp := postJSON(t, srv.URL+"/api/restart_recording", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if fc.cancelled != 1 {
		t.Errorf("CancelRecording called %d times, want 1", fc.cancelled)
	}
}

func TestHandleDisconnect(t *testing.T) {
	fc := &fakeController{}
	srv := newTestServer(t, fc)

	resp := postJSON(t, srv.URL+"/api/disconnect", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if fc.disconnect != 1 {
		t.Errorf("Disconnect called %d times, want 1", fc.disconnect)
	}
}

func TestHandleHealth(t *testing.T) {
	fc := &fakeController{state: session.SessionActive, recording: true}
	srv := newTestServer(t, fc)

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["state"] != "session_active" {
		t.Errorf("state = %v, want session_active", body["state"])
	}
	if body["recording"] != true {
		t.Errorf("recording = %v, want true", body["recording"])
	}
}
