package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v3"
	"github.com/sicko7947/walkflow"
)

// WizardView is the JSON rendering of a wizard session
type WizardView struct {
	SessionID        string                     `json:"sessionId"`
	WorkflowID       string                     `json:"workflowId"`
	Step             string                     `json:"step"`
	StepIndex        int                        `json:"stepIndex"`
	StepCount        int                        `json:"stepCount"`
	Guide            string                     `json:"guide,omitempty"`
	CancelConfirming bool                       `json:"cancelConfirming"`
	Exited           bool                       `json:"exited"`
	ExitReason       walkflow.ExitReason        `json:"exitReason,omitempty"`
	CanUndo          bool                       `json:"canUndo"`
	CanAdvance       bool                       `json:"canAdvance"`
	Fields           map[string]json.RawMessage `json:"fields"`
	LastValidation   *walkflow.ValidationError  `json:"lastValidation,omitempty"`
	Submission       *walkflow.Submission       `json:"submission,omitempty"`
}

func newWizardView(w wizardScreen) WizardView {
	state := w.State()
	step := w.CurrentStep()
	return WizardView{
		SessionID:        w.SessionID(),
		WorkflowID:       w.Wizard().ID(),
		Step:             step.ID,
		StepIndex:        state.CurrentStepIndex,
		StepCount:        w.Wizard().StepCount(),
		Guide:            step.Guide,
		CancelConfirming: state.CancelConfirming,
		Exited:           w.Exited(),
		ExitReason:       w.ExitReason(),
		CanUndo:          w.CanUndo(),
		CanAdvance:       w.CanAdvance(),
		Fields:           w.Fields(),
		LastValidation:   w.LastValidation(),
	}
}

func (s *Server) registerWizardRoutes(group fiber.Router, kind string) {
	group.Get("/:id", s.wizardHandler(kind, func(c fiber.Ctx, w wizardScreen) error {
		return nil
	}))
	group.Post("/:id/advance", s.wizardHandler(kind, func(c fiber.Ctx, w wizardScreen) error {
		return w.Advance()
	}))
	group.Post("/:id/retreat", s.wizardHandler(kind, func(c fiber.Ctx, w wizardScreen) error {
		return w.Retreat()
	}))
	group.Post("/:id/undo", s.wizardHandler(kind, func(c fiber.Ctx, w wizardScreen) error {
		_, err := w.Undo()
		return err
	}))
	group.Post("/:id/cancel", s.wizardHandler(kind, func(c fiber.Ctx, w wizardScreen) error {
		_, err := w.RequestCancel()
		return err
	}))
	group.Post("/:id/cancel/confirm", s.wizardHandler(kind, func(c fiber.Ctx, w wizardScreen) error {
		return w.ConfirmCancel()
	}))
	group.Post("/:id/cancel/dismiss", s.wizardHandler(kind, func(c fiber.Ctx, w wizardScreen) error {
		return w.DismissCancel()
	}))
	group.Post("/:id/submit", s.handleSubmit(kind))
}

// wizardHandler locks the session, applies op and renders the resulting state
func (s *Server) wizardHandler(kind string, op func(c fiber.Ctx, w wizardScreen) error) fiber.Handler {
	return func(c fiber.Ctx) error {
		return s.withSession(c, kind, func(sess *session) error {
			w := sess.screen.(wizardScreen)
			if err := op(c, w); err != nil {
				return handleError(c, err)
			}
			return c.JSON(newWizardView(w))
		})
	}
}

func (s *Server) handleSubmit(kind string) fiber.Handler {
	return func(c fiber.Ctx) error {
		return s.withSession(c, kind, func(sess *session) error {
			w := sess.screen.(wizardScreen)
			sub, err := w.Submit()
			if err != nil {
				return handleError(c, err)
			}
			if sess.exitErr != nil {
				return handleError(c, sess.exitErr)
			}

			view := newWizardView(w)
			view.Submission = sub
			return c.Status(fiber.StatusCreated).JSON(view)
		})
	}
}
