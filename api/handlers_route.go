package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/sicko7947/walkflow"
	"github.com/sicko7947/walkflow/screens/routerecording"
	"github.com/sicko7947/walkflow/wizard"
)

type routeScreen = routerecording.Screen

// RouteView adds the recording to the wizard view
type RouteView struct {
	WizardView
	Points     []walkflow.LatLng `json:"points"`
	DistanceKm float64           `json:"distanceKm"`
}

// DescriptionRequest sets the route description
type DescriptionRequest struct {
	Description string `json:"description"`
}

// ExportRequest selects the export format
type ExportRequest struct {
	Format walkflow.ExportFormat `json:"format"`
}

func newRouteView(r *routeScreen) RouteView {
	return RouteView{
		WizardView: newWizardView(r),
		Points:     r.Points(),
		DistanceKm: r.DistanceKm(),
	}
}

func (s *Server) handleCreateRoute(c fiber.Ctx) error {
	sess := newSession(kindRoute)

	screen, err := routerecording.New(s.exporter,
		wizard.WithSessionID(sess.id),
		wizard.WithRouter(s.exitRouter(sess)),
		wizard.WithLogger(s.logger),
	)
	if err != nil {
		return handleError(c, err)
	}
	sess.screen = screen
	s.sessions.add(sess)

	return c.Status(fiber.StatusCreated).JSON(newRouteView(screen))
}

func (s *Server) handleAddPoint(c fiber.Ctx) error {
	var p walkflow.LatLng
	if err := c.Bind().JSON(&p); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	return s.withSession(c, kindRoute, func(sess *session) error {
		screen := sess.screen.(*routeScreen)
		accepted := screen.AddPoint(p)
		return c.JSON(fiber.Map{
			"accepted": accepted,
			"points":   len(screen.Points()),
		})
	})
}

// handleRouteControl applies a recording state transition
func (s *Server) handleRouteControl(op func(*routeScreen) error) fiber.Handler {
	return func(c fiber.Ctx) error {
		return s.withSession(c, kindRoute, func(sess *session) error {
			screen := sess.screen.(*routeScreen)
			if err := op(screen); err != nil {
				return handleError(c, err)
			}
			return c.JSON(newRouteView(screen))
		})
	}
}

func (s *Server) handleRouteDescription(c fiber.Ctx) error {
	var req DescriptionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	return s.withSession(c, kindRoute, func(sess *session) error {
		screen := sess.screen.(*routeScreen)
		if err := screen.SetDescription(req.Description); err != nil {
			return handleError(c, err)
		}
		return c.JSON(newRouteView(screen))
	})
}

func (s *Server) handleExportRoute(c fiber.Ctx) error {
	var req ExportRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	return s.withSession(c, kindRoute, func(sess *session) error {
		screen := sess.screen.(*routeScreen)
		ref, err := screen.Export(c.Context(), req.Format)
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(ref)
	})
}
