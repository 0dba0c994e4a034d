package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-tracker/internal/api/dto"
	"github.com/spec-kit/helpdesk-tracker/internal/auth"
	"github.com/spec-kit/helpdesk-tracker/internal/domain"
	"github.com/spec-kit/helpdesk-tracker/internal/service"
	apperrors "github.com/spec-kit/helpdesk-tracker/pkg/util"
)

// StaffTicketsHandler manages the agent and handler work queues.
type StaffTicketsHandler struct {
	tickets *service.TicketService
}

// NewStaffTicketsHandler constructs handler.
func NewStaffTicketsHandler(ticketService *service.TicketService) *StaffTicketsHandler {
	return &StaffTicketsHandler{tickets: ticketService}
}

// ListAgentQueue GET /agent/tickets.
func (h *StaffTicketsHandler) ListAgentQueue(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	limit, offset := parsePaging(c)
	tickets, err := h.tickets.ListAgentQueue(c.Context(), actor, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summaries(tickets)})
}

// AgentUpdate PATCH /agent/tickets/:id.
func (h *StaffTicketsHandler) AgentUpdate(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.StaffUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.AgentUpdate(c.Context(), actor, c.Params("id"), service.StaffUpdateInput{
		Priority: req.Priority,
		Status:   req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summary(ticket)})
}

// ListHandlerQueue GET /handler/tickets. Assigned plus unassigned tickets.
func (h *StaffTicketsHandler) ListHandlerQueue(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	limit, offset := parsePaging(c)
	tickets, err := h.tickets.ListHandlerQueue(c.Context(), actor, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summaries(tickets)})
}

// HandlerUpdate PATCH /handler/tickets/:id.
func (h *StaffTicketsHandler) HandlerUpdate(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.StaffUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.HandlerUpdate(c.Context(), actor, c.Params("id"), service.StaffUpdateInput{
		Priority: req.Priority,
		Status:   req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summary(ticket)})
}

// ClaimTicket POST /handler/tickets/:id/claim.
func (h *StaffTicketsHandler) ClaimTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.tickets.ClaimAsHandler(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summary(ticket)})
}

func (h *StaffTicketsHandler) summary(ticket *domain.Ticket) dto.TicketSummary {
	return ticketSummary(ticket, h.tickets.SLAStatusOf(ticket))
}

func (h *StaffTicketsHandler) summaries(tickets []domain.Ticket) []dto.TicketSummary {
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, h.summary(&tickets[i]))
	}
	return items
}

func parsePaging(c *fiber.Ctx) (int, int) {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	return pageSize, (page - 1) * pageSize
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
