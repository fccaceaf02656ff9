package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/sicko7947/walkflow"
	"github.com/sicko7947/walkflow/screens/issuereport"
	"github.com/sicko7947/walkflow/wizard"
)

// UpdateReportRequest commits one or more issue-report edits; all are checked before any is applied
type UpdateReportRequest struct {
	Location    *walkflow.LatLng      `json:"location,omitempty"`
	IssueType   *string               `json:"issueType,omitempty"`
	Description *string               `json:"description,omitempty"`
	Photo       *issuereport.PhotoRef `json:"photo,omitempty"`
}

func (s *Server) handleCreateReport(c fiber.Ctx) error {
	sess := newSession(kindReport)

	screen, err := issuereport.New(
		wizard.WithSessionID(sess.id),
		wizard.WithRouter(s.exitRouter(sess)),
		wizard.WithLogger(s.logger),
	)
	if err != nil {
		return handleError(c, err)
	}
	sess.screen = screen
	s.sessions.add(sess)

	return c.Status(fiber.StatusCreated).JSON(newWizardView(screen))
}

func (s *Server) handleUpdateReport(c fiber.Ctx) error {
	var req UpdateReportRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	return s.withSession(c, kindReport, func(sess *session) error {
		screen := sess.screen.(*issuereport.Screen)

		edit := issuereport.Edit{
			Location:    req.Location,
			IssueType:   req.IssueType,
			Description: req.Description,
			Photo:       req.Photo,
		}
		if err := screen.ApplyEdit(edit); err != nil {
			return handleError(c, err)
		}
		return c.JSON(newWizardView(screen))
	})
}

func (s *Server) handleDetachPhoto(c fiber.Ctx) error {
	return s.withSession(c, kindReport, func(sess *session) error {
		screen := sess.screen.(*issuereport.Screen)
		if err := screen.DetachPhoto(); err != nil {
			return handleError(c, err)
		}
		return c.JSON(newWizardView(screen))
	})
}
