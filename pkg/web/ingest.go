package web

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-breathe/internal/log"
	"github.com/teslashibe/go-breathe/pkg/protocol"
	"github.com/teslashibe/go-breathe/pkg/session"
)

// LandmarkConn is one browser streaming pose landmarks
type LandmarkConn struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send writes a message to the browser
func (l *LandmarkConn) Send(msg *protocol.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	return l.Conn.WriteMessage(websocket.TextMessage, data)
}

// Ingest feeds landmark frames from websocket clients into the session
type Ingest struct {
	mu            sync.RWMutex
	conns         map[string]*LandmarkConn
	session       *session.Session
	minVisibility float64
	now           func() time.Time
	logger        *slog.Logger

	// Stats
	messagesReceived atomic.Uint64
	framesAccepted   atomic.Uint64
	framesRefused    atomic.Uint64
}

// NewIngest creates the landmark ingest endpoint
func NewIngest(sess *session.Session, minVisibility float64) *Ingest {
	return &Ingest{
		conns:         make(map[string]*LandmarkConn),
		session:       sess,
		minVisibility: minVisibility,
		now:           time.Now,
		logger:        log.Component("ingest"),
	}
}

// RegisterRoutes registers the landmark socket on a Fiber app
func (in *Ingest) RegisterRoutes(app *fiber.App) {
	app.Use("/ws/landmarks", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/landmarks", websocket.New(in.handleConn))
}

// handleConn runs one landmark connection until it closes
func (in *Ingest) handleConn(c *websocket.Conn) {
	lc := &LandmarkConn{
		ID:        uuid.New().String(),
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	in.mu.Lock()
	in.conns[lc.ID] = lc
	count := len(in.conns)
	in.mu.Unlock()

	logger := in.logger.With("conn", lc.ID)
	logger.Info("landmark client connected", "clients", count)

	defer func() {
		in.mu.Lock()
		delete(in.conns, lc.ID)
		count := len(in.conns)
		in.mu.Unlock()
		logger.Info("landmark client disconnected", "clients", count)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			logger.Debug("read ended", "error", err)
			return
		}

		lc.mu.Lock()
		lc.LastSeen = time.Now()
		lc.mu.Unlock()

		in.messagesReceived.Add(1)
		if reply := in.handleMessage(data); reply != nil {
			if err := lc.Send(reply); err != nil {
				logger.Debug("write failed", "error", err)
				return
			}
		}
	}
}

// handleMessage processes one inbound envelope and returns an optional reply
func (in *Ingest) handleMessage(data []byte) *protocol.Message {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return errorMessage(err.Error())
	}

	switch msg.Type {
	case protocol.TypeLandmarks:
		frame, err := msg.GetLandmarksData()
		if err != nil {
			return errorMessage("invalid landmarks: " + err.Error())
		}
		// Untimed frames get the receive time so the cooldown keeps advancing
		ts, ok := frame.Timestamp(msg.Timestamp)
		if !ok {
			ts = in.now().UnixMilli()
		}
		if err := in.session.Observe(frame.Sample(ts, in.minVisibility)); err != nil {
			in.framesRefused.Add(1)
			return errorMessage(err.Error())
		}
		in.framesAccepted.Add(1)
		return nil

	case protocol.TypeReset:
		in.session.Reset()
		return nil

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return errorMessage("invalid ping: " + err.Error())
		}
		pong, err := protocol.NewPongMessage(ping.ID, msg.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return nil
		}
		return pong

	default:
		return errorMessage("unsupported message type: " + string(msg.Type))
	}
}

func errorMessage(text string) *protocol.Message {
	msg, err := protocol.NewErrorMessage(text)
	if err != nil {
		return nil
	}
	return msg
}

// Count returns the number of connected landmark clients
func (in *Ingest) Count() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.conns)
}

// IngestStats contains landmark ingest statistics
type IngestStats struct {
	Clients          int    `json:"clients"`
	MessagesReceived uint64 `json:"messages_received"`
	FramesAccepted   uint64 `json:"frames_accepted"`
	FramesRefused    uint64 `json:"frames_refused"`
}

// Stats returns landmark ingest statistics
func (in *Ingest) Stats() IngestStats {
	return IngestStats{
		Clients:          in.Count(),
		MessagesReceived: in.messagesReceived.Load(),
		FramesAccepted:   in.framesAccepted.Load(),
		FramesRefused:    in.framesRefused.Load(),
	}
}
