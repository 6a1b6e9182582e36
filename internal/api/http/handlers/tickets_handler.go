package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bankdesk/servicedesk/internal/api/dto"
	"github.com/bankdesk/servicedesk/internal/auth"
	"github.com/bankdesk/servicedesk/internal/domain"
	"github.com/bankdesk/servicedesk/internal/repository"
	"github.com/bankdesk/servicedesk/internal/service"
	apperrors "github.com/bankdesk/servicedesk/pkg/util"
)

// TicketsHandler exposes the ticket workflow operations.
type TicketsHandler struct {
	workflow    *service.WorkflowService
	assignments *service.AssignmentService
}

// NewTicketsHandler constructs the handler.
func NewTicketsHandler(workflowService *service.WorkflowService, assignmentService *service.AssignmentService) *TicketsHandler {
	return &TicketsHandler{workflow: workflowService, assignments: assignmentService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.workflow.CreateTicket(c.UserContext(), principal, service.TicketCreateInput{
		Title:             req.Title,
		Description:       req.Description,
		Priority:          req.Priority,
		ServiceCategoryID: req.ServiceCategoryID,
		BranchID:          req.BranchID,
		UserRootCause:     req.UserRootCause,
		UserIssueCategory: req.UserIssueCategory,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.workflow.ListTickets(c.UserContext(), principal, parseTicketFilter(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.workflow.GetTicket(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Approve POST /staff/tickets/:id/approve.
func (h *TicketsHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, true)
}

// Reject POST /staff/tickets/:id/reject.
func (h *TicketsHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, false)
}

func (h *TicketsHandler) decide(c *fiber.Ctx, approve bool) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.DecisionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	var (
		ticket *domain.Ticket
		err    error
	)
	if approve {
		ticket, err = h.workflow.Approve(c.UserContext(), principal, c.Params("id"), req.Comments)
	} else {
		ticket, err = h.workflow.Reject(c.UserContext(), principal, c.Params("id"), req.Comments)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Assign POST /staff/tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	result, err := h.assignments.Assign(c.UserContext(), principal, c.Params("id"), strings.TrimSpace(req.TechnicianID))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AssignResponse{
		Ticket:       ticketResponse(result.Ticket),
		Assigned:     result.Assigned,
		AutoResolved: result.AutoResolved,
	}})
}

// OverrideCompliance POST /admin/tickets/:id/compliance/override.
func (h *TicketsHandler) OverrideCompliance(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ComplianceOverrideRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	compliance, err := h.workflow.OverrideComplianceDecision(c.UserContext(), principal, c.Params("id"), req.Approve, req.Comments)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complianceResponse(compliance)})
}

// UpdateStatus POST /staff/tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}
	ticket, err := h.workflow.TransitionStatus(c.UserContext(), principal, c.Params("id"), req.Status, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AuditTrail GET /staff/tickets/:id/audit.
func (h *TicketsHandler) AuditTrail(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	limit := parseIntQuery(c, "limit", 50)
	offset := parseIntQuery(c, "offset", 0)
	entries, err := h.workflow.AuditTrail(c.UserContext(), principal, c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.AuditEntryResponse{
			ID:         entry.ID,
			ChangeType: entry.ChangeType,
			ActorID:    entry.ActorID,
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseTicketFilter(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if from := parseTimeQuery(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTimeQuery(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTimeQuery(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseIntQuery(c *fiber.Ctx, key string, def int) int {
	val := c.Query(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                 ticket.ID,
		ExternalKey:        ticket.ExternalKey,
		Title:              ticket.Title,
		Description:        ticket.Description,
		Priority:           ticket.Priority,
		Status:             ticket.Status,
		BranchID:           ticket.BranchID,
		CreatorID:          ticket.CreatorID,
		AssigneeID:         ticket.AssigneeID,
		ServiceCategoryID:  ticket.ServiceCategoryID,
		RequiresCompliance: ticket.RequiresComplianceApproval,
		IsGovernmentTicket: ticket.IsGovernmentTicket,
		CreatedAt:          ticket.CreatedAt,
		UpdatedAt:          ticket.UpdatedAt,
		ClosedAt:           ticket.ClosedAt,
	}
}

func complianceResponse(approval *domain.ComplianceApproval) dto.ComplianceResponse {
	return dto.ComplianceResponse{
		ID:                approval.ID,
		TicketID:          approval.TicketID,
		ReviewerID:        approval.ReviewerID,
		Status:            approval.Status,
		Comments:          approval.Comments,
		DocumentsVerified: approval.DocumentsVerified,
		DecidedByID:       approval.DecidedByID,
		DecidedAt:         approval.DecidedAt,
	}
}
