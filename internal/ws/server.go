package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcaluminis-ftdi/ftdi"
	"github.com/coreman2200/arcaluminis-ftdi/model"
)

var ErrServerClosed = errors.New("ws: server shut down")

// Writer is the strip the server feeds.
type Writer interface {
	Write(pixels []model.Pixel) (int, error)
}

// Discoverer lists openable bridges.
type Discoverer interface {
	Discover() ([]ftdi.Device, error)
}

// Server accepts binary RGB frames (3 bytes per LED) on /ws and writes each
// one to the strip. Writes are serialized; the strip is not shared.
type Server struct {
	mu        sync.Mutex
	strip     Writer
	devices   Discoverer
	frameID   uint64
	lastErr   error
	closed    bool
	startTime time.Time
}

func NewServer(strip Writer, devices Discoverer) *Server {
	return &Server{strip: strip, devices: devices, startTime: time.Now()}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleFramesWS)
	mux.HandleFunc("/devices", s.HandleDevices)
	mux.HandleFunc("/health", s.HandleHealth)
	return mux
}

// WriteFrame writes one packed RGB frame.
func (s *Server) WriteFrame(rgb []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrServerClosed
	}
	n, err := s.strip.Write(model.PixelsFromRGB(rgb))
	if err != nil {
		s.lastErr = err
		return n, err
	}
	s.frameID++
	return n, nil
}

// Shutdown refuses further frames and then runs halt under the write lock,
// so a frame still in flight on a websocket cannot land after it.
func (s *Server) Shutdown(halt func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if halt == nil {
		return nil
	}
	return halt()
}

func (s *Server) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		if _, err := s.WriteFrame(data); err != nil {
			log.Error().Err(err).Msg("frame write failed")
			msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error())
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return
		}
	}
}

func (s *Server) HandleDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.Discover()
	resp := map[string]any{
		"ledDeviceType": "apa102_ftdi",
		"devices":       devices,
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp := map[string]any{
		"frame_id": s.frameID,
		"uptime_s": time.Since(s.startTime).Seconds(),
	}
	w.Header().Set("Content-Type", "application/json")
	if s.lastErr != nil {
		resp["error"] = s.lastErr.Error()
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
