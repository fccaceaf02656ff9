package api

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
	"github.com/sicko7947/walkflow"
	"github.com/sicko7947/walkflow/store"
)

var errSessionNotFound = errors.New("session not found")

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("bad_request").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

// handleError maps workflow errors to problem documents
func handleError(c fiber.Ctx, err error) error {
	switch {
	case walkflow.IsValidationFailure(err):
		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("validation_failure").
			WithDetail(err.Error())

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)

	case walkflow.IsInvalidState(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("invalid_state").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case walkflow.IsLoadFailure(err):
		problem := problems.NewStatusProblem(502).
			WithInstance(c.Path()).
			WithType("load_failure").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadGateway).JSON(problem)

	case errors.Is(err, errSessionNotFound):
		return notFound(c, "session not found")

	case errors.Is(err, store.ErrNotFound):
		return notFound(c, "submission not found")

	default:
		problem := problems.NewStatusProblem(500).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithError(err)

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}
}
