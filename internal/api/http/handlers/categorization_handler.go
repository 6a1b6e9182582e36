package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bankdesk/servicedesk/internal/api/dto"
	"github.com/bankdesk/servicedesk/internal/auth"
	"github.com/bankdesk/servicedesk/internal/domain"
	"github.com/bankdesk/servicedesk/internal/service"
	apperrors "github.com/bankdesk/servicedesk/pkg/util"
)

// CategorizationHandler exposes the classification operations.
type CategorizationHandler struct {
	categorization *service.CategorizationService
}

// NewCategorizationHandler constructs the handler.
func NewCategorizationHandler(categorizationService *service.CategorizationService) *CategorizationHandler {
	return &CategorizationHandler{categorization: categorizationService}
}

// Suggest POST /tickets/:id/categorization/suggest.
func (h *CategorizationHandler) Suggest(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SuggestCategorizationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	classification, err := h.categorization.Suggest(c.UserContext(), principal, c.Params("id"), req.RootCause, req.IssueCategory)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": classificationResponse(classification)})
}

// Confirm POST /staff/tickets/:id/categorization/confirm.
func (h *CategorizationHandler) Confirm(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ConfirmCategorizationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	classification, err := h.categorization.Confirm(c.UserContext(), principal, c.Params("id"), req.RootCause, req.IssueCategory, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": classificationResponse(classification)})
}

// BulkConfirm POST /staff/categorization/bulk-confirm.
func (h *CategorizationHandler) BulkConfirm(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.BulkConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.categorization.BulkConfirm(c.UserContext(), principal, req.TicketIDs, req.RootCause, req.IssueCategory, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// Lock POST /admin/tickets/:id/categorization/lock.
func (h *CategorizationHandler) Lock(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.LockCategorizationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	classification, err := h.categorization.Lock(c.UserContext(), principal, c.Params("id"), req.Locked, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": classificationResponse(classification)})
}

// Get GET /tickets/:id/categorization.
func (h *CategorizationHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	classification, err := h.categorization.Get(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": classificationResponse(classification)})
}

func classificationResponse(cl *domain.Classification) dto.ClassificationResponse {
	return dto.ClassificationResponse{
		TicketID:           cl.TicketID,
		UserRootCause:      cl.UserRootCause,
		UserIssueCategory:  cl.UserIssueCategory,
		ConfirmedRootCause: cl.ConfirmedRootCause,
		ConfirmedCategory:  cl.ConfirmedCategory,
		OverrideReason:     cl.OverrideReason,
		Locked:             cl.Locked,
		LockReason:         cl.LockReason,
		UpdatedAt:          cl.UpdatedAt,
	}
}
