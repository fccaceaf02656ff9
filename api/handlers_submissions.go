package api

import (
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/sicko7947/walkflow"
)

func (s *Server) handleListSubmissions(c fiber.Ctx) error {
	filter := walkflow.SubmissionFilter{WorkflowID: c.Query("workflow_id")}
	if filter.WorkflowID == "" {
		return badRequest(c, "workflow_id is required")
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return badRequest(c, "Invalid limit: "+limitStr)
		}
		filter.Limit = limit
	}

	subs, err := s.store.ListSubmissions(c.Context(), filter)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{
		"submissions": subs,
		"count":       len(subs),
	})
}

func (s *Server) handleGetSubmission(c fiber.Ctx) error {
	sub, err := s.store.GetSubmission(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(sub)
}
