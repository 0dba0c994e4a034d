package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-tracker/internal/api/dto"
	"github.com/spec-kit/helpdesk-tracker/internal/auth"
	"github.com/spec-kit/helpdesk-tracker/internal/domain"
	"github.com/spec-kit/helpdesk-tracker/internal/service"
	apperrors "github.com/spec-kit/helpdesk-tracker/pkg/util"
)

// AdminTicketsHandler exposes the supervisory dashboard operations.
type AdminTicketsHandler struct {
	tickets     *service.TicketService
	departments *service.DepartmentService
}

// NewAdminTicketsHandler constructs handler.
func NewAdminTicketsHandler(ticketService *service.TicketService, departmentService *service.DepartmentService) *AdminTicketsHandler {
	return &AdminTicketsHandler{tickets: ticketService, departments: departmentService}
}

// ListTickets GET /admin/tickets.
func (h *AdminTicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var search *string
	if term := c.Query("search"); term != "" {
		search = &term
	}
	limit, offset := parsePaging(c)
	tickets, err := h.tickets.ListAllTickets(c.Context(), actor, search, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summaries(tickets)})
}

// ReviewUpdate PATCH /admin/tickets/:id.
func (h *AdminTicketsHandler) ReviewUpdate(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ReviewUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.ReviewUpdate(c.Context(), actor, c.Params("id"), service.ReviewUpdateInput{
		Priority:     req.Priority,
		DepartmentID: req.DepartmentID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summary(ticket)})
}

// DeleteTicket DELETE /admin/tickets/:id.
func (h *AdminTicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.tickets.DeleteTicket(c.Context(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkAllCompleted POST /admin/tickets/complete-all.
func (h *AdminTicketsHandler) MarkAllCompleted(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	count, err := h.tickets.MarkAllCompleted(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CountResponse{Count: count}})
}

// DeleteSelected POST /admin/tickets/delete-selected.
func (h *AdminTicketsHandler) DeleteSelected(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.DeleteSelectedRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	count, err := h.tickets.DeleteSelected(c.Context(), actor, req.IDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CountResponse{Count: count}})
}

// ListHistory GET /admin/tickets/:id/history.
func (h *AdminTicketsHandler) ListHistory(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	limit, offset := parsePaging(c)
	entries, err := h.tickets.ListHistory(c.Context(), actor, c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.TicketHistoryResponse{
			ID:         entry.ID,
			ChangeType: entry.ChangeType,
			ChangedBy:  entry.ChangedBy,
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateDepartment POST /admin/departments.
func (h *AdminTicketsHandler) CreateDepartment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	dept, err := h.departments.Create(c.Context(), actor, req.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": departmentResponse(dept)})
}

// DeleteDepartment DELETE /admin/departments/:id.
func (h *AdminTicketsHandler) DeleteDepartment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.departments.Delete(c.Context(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AdminTicketsHandler) summary(ticket *domain.Ticket) dto.TicketSummary {
	return ticketSummary(ticket, h.tickets.SLAStatusOf(ticket))
}

func (h *AdminTicketsHandler) summaries(tickets []domain.Ticket) []dto.TicketSummary {
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, h.summary(&tickets[i]))
	}
	return items
}
