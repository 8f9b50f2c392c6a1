package sandbox

import (
	"fmt"

	"github.com/dukex/nbctl/pkg/persistence"
	"github.com/dukex/nbctl/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func problem(c fiber.Ctx, status int, kind, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(status).JSON(p)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func notFound(c fiber.Ctx, kind, detail string) error {
	return problem(c, fiber.StatusNotFound, kind, detail)
}

func unauthorized(c fiber.Ctx) error {
	return problem(c, fiber.StatusUnauthorized, "unauthorized", "a valid bearer token is required")
}

func internalError(c fiber.Ctx, err error) error {
	p := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(p)
}

// handleStoreError maps repository and expansion errors to problem documents.
func handleStoreError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsNotFound(err):
		return notFound(c, "not_found", err.Error())

	case persistence.IsAlreadyExists(err):
		return problem(c, fiber.StatusConflict, "conflict", err.Error())

	case services.IsEvaluationError(err):
		if name, ok := services.MissingArgument(err); ok {
			return problem(c, fiber.StatusUnprocessableEntity, "missing_argument",
				fmt.Sprintf("missing required argument %q", name))
		}

		return problem(c, fiber.StatusUnprocessableEntity, "template_evaluation_failed", err.Error())

	default:
		return internalError(c, err)
	}
}
