package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/sicko7947/walkflow"
	"github.com/sicko7947/walkflow/loader"
	"github.com/sicko7947/walkflow/screens/walkmap"
)

// MapView is the JSON rendering of a map session
type MapView struct {
	SessionID string               `json:"sessionId"`
	View      walkmap.View         `json:"view"`
	Load      walkflow.LoadAttempt `json:"load"`
	Data      *walkmap.MapData     `json:"data,omitempty"`
	CanUndo   bool                 `json:"canUndo"`
	// Settled is false while a load or an automatic retry is pending
	Settled bool                 `json:"settled"`
}

// MetricRequest selects the map metric
type MetricRequest struct {
	Metric walkmap.Metric `json:"metric"`
}

func newMapView(id string, m *walkmap.Screen) MapView {
	v := MapView{
		SessionID: id,
		View:      m.View(),
		Load:      m.Load(),
		CanUndo:   m.CanUndo(),
	}
	v.Settled = v.Load.Status.IsTerminal()
	if data, ok := m.Data(); ok {
		v.Data = &data
	}
	return v
}

func (s *Server) handleCreateMap(c fiber.Ctx) error {
	sess := newSession(kindMap)

	screen, err := walkmap.New(s.mapSource,
		walkmap.WithHistoryCapacity(s.historyCapacity),
		walkmap.WithLogger(s.logger),
		walkmap.WithLoaderOptions(loader.WithConfig(s.loaderConfig)),
	)
	if err != nil {
		return handleError(c, err)
	}
	sess.screen = screen
	s.sessions.add(sess)
	screen.Start()

	return c.Status(fiber.StatusCreated).JSON(newMapView(sess.id, screen))
}

func (s *Server) handleGetMap(c fiber.Ctx) error {
	return s.withSession(c, kindMap, func(sess *session) error {
		return c.JSON(newMapView(sess.id, sess.screen.(*walkmap.Screen)))
	})
}

func (s *Server) handleSetMetric(c fiber.Ctx) error {
	var req MetricRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	return s.withSession(c, kindMap, func(sess *session) error {
		screen := sess.screen.(*walkmap.Screen)
		if err := screen.SetMetric(req.Metric); err != nil {
			return handleError(c, err)
		}
		return c.JSON(newMapView(sess.id, screen))
	})
}

func (s *Server) handleMapToggle(op func(*walkmap.Screen) error) fiber.Handler {
	return func(c fiber.Ctx) error {
		return s.withSession(c, kindMap, func(sess *session) error {
			screen := sess.screen.(*walkmap.Screen)
			if err := op(screen); err != nil {
				return handleError(c, err)
			}
			return c.JSON(newMapView(sess.id, screen))
		})
	}
}

func (s *Server) handleToggleFilter(c fiber.Ctx) error {
	return s.withSession(c, kindMap, func(sess *session) error {
		screen := sess.screen.(*walkmap.Screen)
		if err := screen.ToggleFilter(c.Params("filter")); err != nil {
			return handleError(c, err)
		}
		return c.JSON(newMapView(sess.id, screen))
	})
}

func (s *Server) handleMapUndo(c fiber.Ctx) error {
	return s.withSession(c, kindMap, func(sess *session) error {
		screen := sess.screen.(*walkmap.Screen)
		screen.Undo()
		return c.JSON(newMapView(sess.id, screen))
	})
}

func (s *Server) handleMapRetry(c fiber.Ctx) error {
	return s.withSession(c, kindMap, func(sess *session) error {
		screen := sess.screen.(*walkmap.Screen)
		if err := screen.Retry(); err != nil {
			return handleError(c, err)
		}
		return c.JSON(newMapView(sess.id, screen))
	})
}

func (s *Server) handleCloseMap(c fiber.Ctx) error {
	sess, ok := s.sessions.get(c.Params("id"), kindMap)
	if !ok {
		return handleError(c, errSessionNotFound)
	}
	s.sessions.remove(sess.id)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.screen.(*walkmap.Screen).Close()

	return c.SendStatus(fiber.StatusNoContent)
}
