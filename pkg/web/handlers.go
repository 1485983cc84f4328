package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-facecursor/pkg/plugin"
	"github.com/teslashibe/go-facecursor/pkg/tracking"
)

// handleStatus returns the pipeline status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	if s.OnStatus == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "status not configured",
		})
	}
	return c.JSON(s.OnStatus())
}

// handleCursor returns the cursor position, viewport and style
func (s *Server) handleCursor(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"state":    s.cursor.State(),
		"viewport": s.cursor.Viewport(),
		"style":    s.cursor.Style(),
		"moves":    s.cursor.Moves(),
	})
}

// HubStats describes one websocket hub.
type HubStats struct {
	Clients int   `json:"clients"`
	Dropped int64 `json:"dropped"`
}

// handleHubs returns client counts and dropped broadcasts per hub
func (s *Server) handleHubs(c *fiber.Ctx) error {
	stats := make(map[string]HubStats, 4)
	for _, h := range s.hubs() {
		stats[h.Name()] = HubStats{Clients: h.ClientCount(), Dropped: h.Dropped()}
	}
	return c.JSON(stats)
}

// handleListPlugins returns every registered plugin
func (s *Server) handleListPlugins(c *fiber.Ctx) error {
	if s.Plugins == nil {
		return c.JSON([]plugin.Info{})
	}
	return c.JSON(s.Plugins.List())
}

func (s *Server) handleEnablePlugin(c *fiber.Ctx) error {
	return s.togglePlugin(c, true)
}

func (s *Server) handleDisablePlugin(c *fiber.Ctx) error {
	return s.togglePlugin(c, false)
}

func (s *Server) togglePlugin(c *fiber.Ctx, on bool) error {
	if s.Plugins == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no plugins"})
	}

	name := c.Params("name")
	var err error
	if on {
		err = s.Plugins.Enable(name)
	} else {
		err = s.Plugins.Disable(name)
	}
	if errors.Is(err, plugin.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	state := "disabled"
	if on {
		state = "enabled"
	}
	s.AddLog("info", "plugin "+name+" "+state)
	return c.JSON(fiber.Map{"name": name, "enabled": on})
}

// handleGetCamera returns the camera request used on the next start
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.Camera == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no camera manager"})
	}
	return c.JSON(s.Camera.Constraints())
}

// handleUpdateCamera changes fields of the camera request
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	if s.Camera == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no camera manager"})
	}

	var params map[string]any
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := s.Camera.Update(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(s.Camera.Constraints())
}

// handleGetTuning returns the loop's tuning parameters
func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	if s.Tuner == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no tracking loop"})
	}
	return c.JSON(s.Tuner.GetTuningParams())
}

// handleSetTuning updates the loop's tuning parameters
func (s *Server) handleSetTuning(c *fiber.Ctx) error {
	if s.Tuner == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no tracking loop"})
	}

	var params tracking.TuningParams
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	s.Tuner.SetTuningParams(params)
	return c.JSON(s.Tuner.GetTuningParams())
}

// handleGetLogs returns recent log entries
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return c.JSON(s.logs)
}
