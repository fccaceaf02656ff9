// Package api exposes the walkcity screens over HTTP. Each screen instance lives
// in a server-side session addressed by its ID.
package api

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sicko7947/walkflow"
	"github.com/sicko7947/walkflow/screens/walkmap"
)

// DefaultSaveTimeout bounds storing a submission when a wizard exits
const DefaultSaveTimeout = 5 * time.Second

// Server holds the open sessions and their collaborators
type Server struct {
	store           walkflow.SubmissionStore
	exporter        walkflow.RouteExporter
	mapSource       walkmap.Source
	loaderConfig    walkflow.LoaderConfig
	historyCapacity int
	saveTimeout     time.Duration
	logger          zerolog.Logger

	sessions *registry
}

// Option configures a Server
type Option func(*Server)

// WithExporter sets the route export collaborator
func WithExporter(exporter walkflow.RouteExporter) Option {
	return func(s *Server) {
		s.exporter = exporter
	}
}

// WithMapSource sets the map data source
func WithMapSource(source walkmap.Source) Option {
	return func(s *Server) {
		s.mapSource = source
	}
}

// WithLoaderConfig sets the map loader retry policy
func WithLoaderConfig(config walkflow.LoaderConfig) Option {
	return func(s *Server) {
		s.loaderConfig = config
	}
}

// WithHistoryCapacity bounds the map view undo history
func WithHistoryCapacity(capacity int) Option {
	return func(s *Server) {
		s.historyCapacity = capacity
	}
}

// WithSaveTimeout bounds storing a submission
func WithSaveTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.saveTimeout = timeout
	}
}

// WithLogger sets a custom logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server storing submissions in store
func NewServer(store walkflow.SubmissionStore, opts ...Option) *Server {
	s := &Server{
		store:           store,
		mapSource:       walkmap.NewSimulatedSource(walkmap.DefaultFailureRate, walkmap.DefaultLatency),
		loaderConfig:    walkflow.DefaultLoaderConfig,
		historyCapacity: walkflow.DefaultHistoryCapacity,
		saveTimeout:     DefaultSaveTimeout,
		logger: zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger().
			Level(zerolog.InfoLevel),
		sessions: newRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// App builds the fiber application
func (s *Server) App() *fiber.App {
	app := fiber.New()
	app.Use(recoverer.New())

	s.registerRoutes(app)
	return app
}

// Close stops every open map loader and drops all sessions
func (s *Server) Close() {
	for _, sess := range s.sessions.drain() {
		if m, ok := sess.screen.(*walkmap.Screen); ok {
			m.Close()
		}
	}
}

// SessionCount returns the number of open sessions
func (s *Server) SessionCount() int {
	return s.sessions.len()
}

func (s *Server) registerRoutes(app *fiber.App) {
	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "healthy",
			"service":  "walkcity",
			"sessions": s.SessionCount(),
		})
	})

	v1 := app.Group("/api/v1")

	reports := v1.Group("/reports")
	reports.Post("/", s.handleCreateReport)
	reports.Patch("/:id", s.handleUpdateReport)
	reports.Delete("/:id/photo", s.handleDetachPhoto)
	s.registerWizardRoutes(reports, kindReport)

	routes := v1.Group("/routes")
	routes.Post("/", s.handleCreateRoute)
	routes.Post("/:id/points", s.handleAddPoint)
	routes.Post("/:id/pause", s.handleRouteControl((*routeScreen).Pause))
	routes.Post("/:id/resume", s.handleRouteControl((*routeScreen).Resume))
	routes.Post("/:id/stop", s.handleRouteControl((*routeScreen).Stop))
	routes.Post("/:id/toggle-method", s.handleRouteControl((*routeScreen).ToggleMethod))
	routes.Put("/:id/description", s.handleRouteDescription)
	routes.Post("/:id/export", s.handleExportRoute)
	s.registerWizardRoutes(routes, kindRoute)

	maps := v1.Group("/maps")
	maps.Post("/", s.handleCreateMap)
	maps.Get("/:id", s.handleGetMap)
	maps.Put("/:id/metric", s.handleSetMetric)
	maps.Post("/:id/sidebar", s.handleMapToggle((*walkmap.Screen).ToggleSidebar))
	maps.Post("/:id/detail-level", s.handleMapToggle((*walkmap.Screen).ToggleDetailLevel))
	maps.Post("/:id/filters/:filter", s.handleToggleFilter)
	maps.Post("/:id/undo", s.handleMapUndo)
	maps.Post("/:id/retry", s.handleMapRetry)
	maps.Delete("/:id", s.handleCloseMap)

	submissions := v1.Group("/submissions")
	submissions.Get("/", s.handleListSubmissions)
	submissions.Get("/:id", s.handleGetSubmission)
}

// exitRouter stores submitted drafts and drops the session once its workflow ends
func (s *Server) exitRouter(sess *session) walkflow.Router {
	return walkflow.RouterFunc(func(e walkflow.ExitEvent) {
		if e.Reason == walkflow.ExitReasonSubmitted && e.Submission != nil {
			ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
			defer cancel()

			if err := s.store.SaveSubmission(ctx, e.Submission); err != nil {
				s.logger.Error().
					Err(err).
					Str("session_id", e.SessionID).
					Str("submission_id", e.Submission.ID).
					Msg("Failed to store submission")
				sess.exitErr = fmt.Errorf("failed to store submission %s: %w", e.Submission.ID, err)
			}
		}

		s.sessions.remove(e.SessionID)
		s.logger.Info().
			Str("session_id", e.SessionID).
			Str("workflow_id", e.WorkflowID).
			Str("reason", e.Reason.String()).
			Msg("Session closed")
	})
}

// newSession allocates a session ID; the screen is attached by the caller
func newSession(kind string) *session {
	return &session{
		id:        uuid.New().String(),
		kind:      kind,
		createdAt: time.Now(),
	}
}

// withSession runs fn while holding the session lock
func (s *Server) withSession(c fiber.Ctx, kind string, fn func(sess *session) error) error {
	sess, ok := s.sessions.get(c.Params("id"), kind)
	if !ok {
		return handleError(c, errSessionNotFound)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return fn(sess)
}
