// Package web serves the cursor page and the status API.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-facecursor/internal/log"
	"github.com/teslashibe/go-facecursor/pkg/camera"
	"github.com/teslashibe/go-facecursor/pkg/cursor"
	"github.com/teslashibe/go-facecursor/pkg/fault"
	"github.com/teslashibe/go-facecursor/pkg/hub"
	"github.com/teslashibe/go-facecursor/pkg/plugin"
	"github.com/teslashibe/go-facecursor/pkg/tracking"
)

//go:embed static
var staticFS embed.FS

// maxLogs is how many log entries are kept for /api/logs.
const maxLogs = 500

// Tuner exposes the tracking loop's runtime parameters.
type Tuner interface {
	GetTuningParams() tracking.TuningParams
	SetTuningParams(p tracking.TuningParams)
}

// Server is the web server for the cursor page
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger
	cursor *cursor.Cursor

	// Optional collaborators, set before Start
	Plugins *plugin.Registry
	Camera  *camera.Manager
	Tuner   Tuner

	// OnStatus returns the status snapshot for /api/status
	OnStatus func() any

	// Log buffer (last 500 entries)
	logs   []LogEntry
	logsMu sync.RWMutex

	alert   *AlertMessage
	alertMu sync.RWMutex

	// Hubs for websocket broadcast
	cursorHub *hub.Hub
	statusHub *hub.Hub
	cameraHub *hub.Hub
	logHub    *hub.Hub

	hubsOnce  sync.Once
	cancel    context.CancelFunc
	assetsDir string
}

// Option configures a Server.
type Option func(*Server)

// WithAssetsDir serves dir under /assets/, so engine artifacts can be
// fetched from this server.
func WithAssetsDir(dir string) Option {
	return func(s *Server) { s.assetsDir = dir }
}

// NewServer creates a server for addr (host:port) driving c.
func NewServer(addr string, c *cursor.Cursor, opts ...Option) *Server {
	s := &Server{
		addr:      addr,
		logger:    log.Component("web"),
		cursor:    c,
		logs:      make([]LogEntry, 0, maxLogs),
		cursorHub: hub.New("cursor"),
		statusHub: hub.New("status"),
		cameraHub: hub.New("camera"),
		logHub:    hub.New("logs"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cursorHub.OnConnect = s.greetCursor
	s.cursorHub.OnMessage = s.handleCursorMessage
	s.statusHub.OnConnect = s.greetStatus
	s.logHub.OnConnect = s.greetLogs

	app := fiber.New(fiber.Config{
		AppName:               "facecursor",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/cursor", s.handleCursor)
	api.Get("/plugins", s.handleListPlugins)
	api.Post("/plugins/:name/enable", s.handleEnablePlugin)
	api.Post("/plugins/:name/disable", s.handleDisablePlugin)
	api.Get("/camera", s.handleGetCamera)
	api.Post("/camera", s.handleUpdateCamera)
	api.Get("/tuning", s.handleGetTuning)
	api.Post("/tuning", s.handleSetTuning)
	api.Get("/logs", s.handleGetLogs)
	api.Get("/hubs", s.handleHubs)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/cursor", websocket.New(s.serveHub(s.cursorHub)))
	app.Get("/ws/status", websocket.New(s.serveHub(s.statusHub)))
	app.Get("/ws/camera", websocket.New(s.serveHub(s.cameraHub)))
	app.Get("/ws/logs", websocket.New(s.serveHub(s.logHub)))

	if s.assetsDir != "" {
		app.Static("/assets", s.assetsDir)
	}

	// Embedded page
	static, _ := fs.Sub(staticFS, "static")
	app.Use("/", filesystem.New(filesystem.Config{
		Root:  http.FS(static),
		Index: "index.html",
	}))

	s.app = app
	return s
}

// App returns the fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) serveHub(h *hub.Hub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		hub.NewClient(h, c).Run()
	}
}

// startHubs runs every hub until Shutdown.
func (s *Server) startHubs() {
	s.hubsOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		for _, h := range s.hubs() {
			go h.Run(ctx)
		}
	})
}

// Start starts the web server and blocks until it stops
func (s *Server) Start() error {
	s.startHubs()
	s.logger.Info("cursor page available", "url", "http://"+displayAddr(s.addr))
	return s.app.Listen(s.addr)
}

// Serve serves on an existing listener and blocks until it stops.
func (s *Server) Serve(ln net.Listener) error {
	s.startHubs()
	return s.app.Listener(ln)
}

func (s *Server) hubs() []*hub.Hub {
	return []*hub.Hub{s.cursorHub, s.statusHub, s.cameraHub, s.logHub}
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Warn("web server stopped", "error", err)
		}
	}()
}

// Shutdown gracefully stops the web server and its hubs
func (s *Server) Shutdown() error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.app.Shutdown()
}

// PublishCursor sends a cursor position to every page.
func (s *Server) PublishCursor(st cursor.State) {
	s.cursorHub.BroadcastJSON(CursorMessage{Type: TypeCursor, X: st.X, Y: st.Y})
}

// PublishFrame sends a preview JPEG to every camera viewer.
func (s *Server) PublishFrame(jpeg []byte) {
	s.cameraHub.BroadcastBinary(jpeg)
}

// Watching reports whether anyone is connected to the camera feed.
func (s *Server) Watching() bool {
	return s.cameraHub.ClientCount() > 0
}

// Notify shows a fatal error on every page and keeps it for pages that
// connect later.
func (s *Server) Notify(err error) {
	msg := AlertMessage{
		Type:    TypeAlert,
		Kind:    fault.KindOf(err).String(),
		Message: fault.Message(err),
		Time:    time.Now().Format(time.RFC3339),
	}

	s.alertMu.Lock()
	s.alert = &msg
	s.alertMu.Unlock()

	s.statusHub.BroadcastJSON(msg)
	s.AddLog("error", msg.Message)
}

// UpdateStatus broadcasts a status snapshot.
func (s *Server) UpdateStatus(status any) {
	s.statusHub.BroadcastJSON(StatusMessage{Type: TypeStatus, Status: status})
}

// AddLog adds a log entry and broadcasts to clients
func (s *Server) AddLog(level, message string) {
	entry := LogEntry{
		Type:    TypeLog,
		Time:    time.Now().Format("15:04:05"),
		Level:   level,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	s.logHub.BroadcastJSON(entry)
}

func (s *Server) greetCursor(c *hub.Client) {
	st := s.cursor.State()
	c.SendJSON(StyleMessage{Type: TypeStyle, Style: s.cursor.Style(), X: st.X, Y: st.Y})
}

func (s *Server) handleCursorMessage(_ *hub.Client, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Debug("ignoring malformed message", "error", err)
		return
	}
	if env.Type != TypeViewport {
		return
	}

	var vp ViewportMessage
	if err := json.Unmarshal(data, &vp); err != nil {
		return
	}
	if s.cursor.SetViewport(cursor.Size{W: vp.Width, H: vp.Height}) {
		s.logger.Debug("viewport updated", "width", vp.Width, "height", vp.Height)
	}
}

func (s *Server) greetStatus(c *hub.Client) {
	if s.OnStatus != nil {
		c.SendJSON(StatusMessage{Type: TypeStatus, Status: s.OnStatus()})
	}
	s.alertMu.RLock()
	alert := s.alert
	s.alertMu.RUnlock()
	if alert != nil {
		c.SendJSON(alert)
	}
}

func (s *Server) greetLogs(c *hub.Client) {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	for _, entry := range s.logs {
		c.SendJSON(entry)
	}
}

// displayAddr turns ":8080" into "localhost:8080".
func displayAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host != "" {
		return addr
	}
	return net.JoinHostPort("localhost", port)
}
