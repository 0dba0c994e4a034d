package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-tracker/internal/api/dto"
	"github.com/spec-kit/helpdesk-tracker/internal/auth"
	"github.com/spec-kit/helpdesk-tracker/internal/domain"
	"github.com/spec-kit/helpdesk-tracker/internal/service"
	apperrors "github.com/spec-kit/helpdesk-tracker/pkg/util"
)

// TicketsHandler manages end-user ticket endpoints.
type TicketsHandler struct {
	tickets     *service.TicketService
	departments *service.DepartmentService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, departmentService *service.DepartmentService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, departments: departmentService}
}

// SubmitTicket POST /tickets.
func (h *TicketsHandler) SubmitTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.tickets.SubmitTicket(c.Context(), actor, service.TicketCreateInput{
		Title:        req.Title,
		Description:  req.Description,
		DepartmentID: req.DepartmentID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": h.summary(ticket)})
}

// ListOwnTickets GET /tickets.
func (h *TicketsHandler) ListOwnTickets(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.tickets.ListOwnTickets(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summaries(tickets)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, comments, err := h.tickets.GetTicket(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.detail(ticket, comments)})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.tickets.AddComment(c.Context(), actor, c.Params("id"), req.Text)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// ListDepartments GET /departments.
func (h *TicketsHandler) ListDepartments(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	depts, err := h.departments.List(c.Context(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(depts))
	for _, dept := range depts {
		items = append(items, departmentResponse(&dept))
	}
	return c.JSON(fiber.Map{"data": items})
}

func (h *TicketsHandler) summary(ticket *domain.Ticket) dto.TicketSummary {
	return ticketSummary(ticket, h.tickets.SLAStatusOf(ticket))
}

func (h *TicketsHandler) summaries(tickets []domain.Ticket) []dto.TicketSummary {
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, h.summary(&tickets[i]))
	}
	return items
}

func (h *TicketsHandler) detail(ticket *domain.Ticket, comments []domain.Comment) dto.TicketDetailResponse {
	resp := dto.TicketDetailResponse{
		TicketSummary: h.summary(ticket),
		Description:   ticket.Description,
		Comments:      make([]dto.CommentResponse, 0, len(comments)),
	}
	for i := range comments {
		resp.Comments = append(resp.Comments, commentResponse(&comments[i]))
	}
	return resp
}

func ticketSummary(ticket *domain.Ticket, sla domain.SLAStatus) dto.TicketSummary {
	return dto.TicketSummary{
		ID:           ticket.ID,
		Title:        ticket.Title,
		CreatedBy:    ticket.CreatedBy,
		AgentID:      ticket.AgentID,
		HandlerID:    ticket.HandlerID,
		DepartmentID: ticket.DepartmentID,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		SLAStatus:    sla,
		CreatedAt:    ticket.CreatedAt,
		CompletedAt:  ticket.CompletedAt,
		SLADue:       ticket.SLADue,
	}
}

func commentResponse(comment *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        comment.ID,
		TicketID:  comment.TicketID,
		AuthorID:  comment.AuthorID,
		Text:      comment.Text,
		CreatedAt: comment.CreatedAt,
	}
}

func departmentResponse(dept *domain.Department) dto.DepartmentResponse {
	return dto.DepartmentResponse{
		ID:        dept.ID,
		Name:      dept.Name,
		CreatedAt: dept.CreatedAt,
	}
}
