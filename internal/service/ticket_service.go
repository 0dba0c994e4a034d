package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-tracker/internal/authz"
	"github.com/spec-kit/helpdesk-tracker/internal/config"
	"github.com/spec-kit/helpdesk-tracker/internal/domain"
	"github.com/spec-kit/helpdesk-tracker/internal/events"
	"github.com/spec-kit/helpdesk-tracker/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-tracker/pkg/util"
)

// TicketService is the lifecycle controller: it applies the authorization
// guard, mutates tickets through validated transitions, consults the
// assignment resolver on creation, and annotates SLA status on read.
type TicketService struct {
	tickets     repository.TicketRepository
	comments    repository.CommentRepository
	departments repository.DepartmentRepository
	history     repository.TicketHistoryRepository
	assigner    *AssignmentService
	dispatcher  events.Dispatcher
	sla         config.SLAConfig
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	CommentRepo    repository.CommentRepository
	DepartmentRepo repository.DepartmentRepository
	HistoryRepo    repository.TicketHistoryRepository
	Assigner       *AssignmentService
	Dispatcher     events.Dispatcher
	SLA            config.SLAConfig
}

// TicketCreateInput describes the submission payload.
type TicketCreateInput struct {
	Title        string
	Description  string
	DepartmentID *string
}

// ReviewUpdateInput is the admin supervisory edit: priority and department
// only, never status or assignment.
type ReviewUpdateInput struct {
	Priority     *domain.TicketPriority
	DepartmentID *string
}

// StaffUpdateInput is the agent/handler edit payload.
type StaffUpdateInput struct {
	Priority *domain.TicketPriority
	Status   *domain.TicketStatus
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		comments:    deps.CommentRepo,
		departments: deps.DepartmentRepo,
		history:     deps.HistoryRepo,
		assigner:    deps.Assigner,
		dispatcher:  deps.Dispatcher,
		sla:         deps.SLA,
	}
}

// SLAStatusOf classifies a ticket against the configured resolution window.
func (s *TicketService) SLAStatusOf(ticket *domain.Ticket) domain.SLAStatus {
	return ticket.SLAStatusAt(s.sla.Threshold())
}

// SubmitTicket creates a ticket owned by the actor. The assignment resolver
// picks the initial handler; the department is taken verbatim when it
// resolves, dropped otherwise.
func (s *TicketService) SubmitTicket(ctx context.Context, actor *domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if err := authz.RequireActor(actor); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}

	departmentID, err := s.assigner.ResolveDepartment(ctx, input.DepartmentID)
	if err != nil {
		return nil, err
	}
	handlerID, err := s.assigner.InitialHandler(ctx)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Title:        title,
		Description:  description,
		CreatedBy:    actor.UserID,
		HandlerID:    handlerID,
		DepartmentID: departmentID,
		Status:       domain.TicketStatusPending,
		Priority:     domain.TicketPriorityMedium,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actor.UserID,
		Payload: events.TicketCreatedPayload{
			Title:        ticket.Title,
			HandlerID:    ticket.HandlerID,
			DepartmentID: ticket.DepartmentID,
		},
	})
	return ticket, nil
}

// ListOwnTickets returns the actor's tickets, newest first. Completed
// tickets stay visible only within the configured window after completion.
func (s *TicketService) ListOwnTickets(ctx context.Context, actor *domain.Actor) ([]domain.Ticket, error) {
	if err := authz.RequireActor(actor); err != nil {
		return nil, err
	}
	completedSince := time.Now().Add(-s.sla.OwnerCompletedWindow())
	tickets, err := s.tickets.ListByOwner(ctx, actor.UserID, completedSince)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicket fetches a ticket with its comment thread.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.Actor, ticketID string) (*domain.Ticket, []domain.Comment, error) {
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if err := authz.CheckView(actor, ticket); err != nil {
		return nil, nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, comments, nil
}

// AddComment appends an immutable comment to the ticket thread.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.Actor, ticketID, text string) (*domain.Comment, error) {
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckView(actor, ticket); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("comment text required", nil)
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: actor.UserID,
		Text:     text,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		ActorID:  actor.UserID,
		Payload: events.TicketCommentAddedPayload{
			CommentID:   comment.ID,
			AuthorID:    comment.AuthorID,
			TextPreview: preview(comment.Text, 120),
		},
	})
	return comment, nil
}

// ReviewUpdate applies the admin supervisory edit. A department id that
// does not resolve clears the field instead of failing; that one field is
// deliberately best-effort, everything else is validated strictly.
func (s *TicketService) ReviewUpdate(ctx context.Context, actor *domain.Actor, ticketID string, input ReviewUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}

	oldPriority := ticket.Priority
	oldDepartment := ticket.DepartmentID
	if input.Priority != nil {
		if !domain.ValidPriority(*input.Priority) {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
		}
		ticket.Priority = *input.Priority
	}
	if input.DepartmentID != nil {
		resolved, err := s.assigner.ResolveDepartment(ctx, input.DepartmentID)
		if err != nil {
			return nil, err
		}
		ticket.DepartmentID = resolved
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if oldPriority != ticket.Priority {
		s.recordPriorityChange(ctx, actor.UserID, ticket.ID, oldPriority, ticket.Priority)
		s.publishPriorityChanged(ctx, actor.UserID, ticket.ID, oldPriority, ticket.Priority)
	}
	if !equalPtr(oldDepartment, ticket.DepartmentID) {
		s.recordDepartmentChange(ctx, actor.UserID, ticket.ID, oldDepartment, ticket.DepartmentID)
	}
	return ticket, nil
}

// AgentUpdate applies the agent flow: claim-on-write on the agent slot,
// then optional priority and status edits.
func (s *TicketService) AgentUpdate(ctx context.Context, actor *domain.Actor, ticketID string, input StaffUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckAgentUpdate(actor, ticket); err != nil {
		return nil, err
	}
	if err := s.validateStaffInput(input); err != nil {
		return nil, err
	}

	if ticket.AgentID == nil {
		if err := s.tickets.BindAgent(ctx, ticket.ID, actor.UserID); err != nil {
			if errors.Is(err, repository.ErrBindingConflict) {
				return nil, apperrors.NewConflict("ticket already bound to another agent", map[string]any{"ticket_id": ticket.ID})
			}
			return nil, apperrors.MapError(err)
		}
		agentID := actor.UserID
		s.recordAgentChange(ctx, actor.UserID, ticket.ID, ticket.AgentID, &agentID)
		ticket.AgentID = &agentID
	}

	return s.applyStaffUpdate(ctx, actor, ticket, input)
}

// HandlerUpdate applies the handler flow. The first successful update by an
// authorized handler to an unassigned ticket binds that handler to it.
func (s *TicketService) HandlerUpdate(ctx context.Context, actor *domain.Actor, ticketID string, input StaffUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckHandlerUpdate(actor, ticket); err != nil {
		return nil, err
	}
	if err := s.validateStaffInput(input); err != nil {
		return nil, err
	}

	if authz.ShouldBindHandler(actor, ticket) {
		if err := s.tickets.BindHandler(ctx, ticket.ID, actor.UserID); err != nil {
			if errors.Is(err, repository.ErrBindingConflict) {
				return nil, apperrors.NewConflict("ticket already bound to another handler", map[string]any{"ticket_id": ticket.ID})
			}
			return nil, apperrors.MapError(err)
		}
		handlerID := actor.UserID
		s.recordHandlerChange(ctx, actor.UserID, ticket.ID, ticket.HandlerID, &handlerID)
		ticket.HandlerID = &handlerID
	}

	return s.applyStaffUpdate(ctx, actor, ticket, input)
}

// ClaimAsHandler explicitly binds the ticket's handler slot to the actor.
// Idempotent when the actor already holds it; conflicting when another
// actor does.
func (s *TicketService) ClaimAsHandler(ctx context.Context, actor *domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckClaim(actor, ticket); err != nil {
		return nil, err
	}
	if ticket.HandlerID != nil && *ticket.HandlerID == actor.UserID {
		return ticket, nil
	}

	if err := s.tickets.BindHandler(ctx, ticket.ID, actor.UserID); err != nil {
		if errors.Is(err, repository.ErrBindingConflict) {
			return nil, apperrors.NewConflict("ticket already claimed", map[string]any{"ticket_id": ticket.ID})
		}
		return nil, apperrors.MapError(err)
	}
	handlerID := actor.UserID
	s.recordHandlerChange(ctx, actor.UserID, ticket.ID, ticket.HandlerID, &handlerID)
	ticket.HandlerID = &handlerID

	s.publish(ctx, events.Event{
		Type:     events.EventTicketClaimed,
		TicketID: ticket.ID,
		ActorID:  actor.UserID,
		Payload:  events.TicketClaimedPayload{HandlerID: actor.UserID},
	})
	return ticket, nil
}

// DeleteTicket removes a completed ticket and, through the schema cascade,
// its comments and history. Non-completed tickets are never deletable.
func (s *TicketService) DeleteTicket(ctx context.Context, actor *domain.Actor, ticketID string) error {
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := authz.RequireAdmin(actor); err != nil {
		return err
	}
	if !ticket.IsCompleted() {
		return apperrors.NewValidationError("only completed tickets may be deleted", map[string]any{"status": ticket.Status})
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		ActorID:  actor.UserID,
	})
	return nil
}

// MarkAllCompleted completes every non-completed ticket in one batch. The
// admin gate applies to the operation; per-ticket binding checks do not.
func (s *TicketService) MarkAllCompleted(ctx context.Context, actor *domain.Actor) (int64, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return 0, err
	}
	count, err := s.tickets.MarkAllCompleted(ctx, time.Now())
	if err != nil {
		return 0, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:    events.EventTicketsBulkCompleted,
		ActorID: actor.UserID,
		Payload: events.TicketsBulkCompletedPayload{Count: count},
	})
	return count, nil
}

// DeleteSelected deletes the completed subset of the given ids and reports
// how many went away. Ids that do not match are skipped silently.
func (s *TicketService) DeleteSelected(ctx context.Context, actor *domain.Actor, ids []string) (int64, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	count, err := s.tickets.DeleteCompletedByIDs(ctx, ids)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return count, nil
}

// ListAllTickets is the supervisory dashboard listing, newest first.
func (s *TicketService) ListAllTickets(ctx context.Context, actor *domain.Actor, search *string, limit, offset int) ([]domain.Ticket, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		SearchTerm: search,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListHandlerQueue returns tickets assigned to the acting handler plus
// unassigned ones it could claim.
func (s *TicketService) ListHandlerQueue(ctx context.Context, actor *domain.Actor, limit, offset int) ([]domain.Ticket, error) {
	if err := authz.RequireActor(actor); err != nil {
		return nil, err
	}
	if !actor.HasRole(domain.RoleHandler) && !actor.LegacySession {
		return nil, apperrors.NewForbidden("handler role required")
	}
	handlerID := actor.UserID
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		HandlerID:    &handlerID,
		OrUnassigned: true,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListAgentQueue returns tickets bound to the acting agent.
func (s *TicketService) ListAgentQueue(ctx context.Context, actor *domain.Actor, limit, offset int) ([]domain.Ticket, error) {
	if err := authz.RequireActor(actor); err != nil {
		return nil, err
	}
	if !actor.HasRole(domain.RoleAgent) {
		return nil, apperrors.NewForbidden("agent role required")
	}
	agentID := actor.UserID
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		AgentID: &agentID,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListHistory returns the audit trail for a ticket (admin view).
func (s *TicketService) ListHistory(ctx context.Context, actor *domain.Actor, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	if _, err := s.fetch(ctx, ticketID); err != nil {
		return nil, err
	}
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *TicketService) fetch(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) validateStaffInput(input StaffUpdateInput) error {
	if input.Priority != nil && !domain.ValidPriority(*input.Priority) {
		return apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
	}
	if input.Status != nil && !domain.ValidStatus(*input.Status) {
		return apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
	}
	return nil
}

// applyStaffUpdate mutates priority/status on an already-authorized ticket
// and persists the result. A status transition keeps completed_at in sync;
// an update without a status leaves it untouched.
func (s *TicketService) applyStaffUpdate(ctx context.Context, actor *domain.Actor, ticket *domain.Ticket, input StaffUpdateInput) (*domain.Ticket, error) {
	oldPriority := ticket.Priority
	oldStatus := ticket.Status
	if input.Priority != nil {
		ticket.Priority = *input.Priority
	}
	if input.Status != nil && *input.Status != ticket.Status {
		ticket.ApplyStatus(*input.Status, time.Now())
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if oldPriority != ticket.Priority {
		s.recordPriorityChange(ctx, actor.UserID, ticket.ID, oldPriority, ticket.Priority)
		s.publishPriorityChanged(ctx, actor.UserID, ticket.ID, oldPriority, ticket.Priority)
	}
	if oldStatus != ticket.Status {
		s.recordStatusChange(ctx, actor.UserID, ticket.ID, oldStatus, ticket.Status)
		s.publishStatusChanged(ctx, actor.UserID, ticket.ID, oldStatus, ticket.Status)
	}
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *TicketService) publishStatusChanged(ctx context.Context, actorID, ticketID string, old, next domain.TicketStatus) {
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticketID,
		ActorID:  actorID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: old,
			NewStatus: next,
		},
	})
}

func (s *TicketService) publishPriorityChanged(ctx context.Context, actorID, ticketID string, old, next domain.TicketPriority) {
	s.publish(ctx, events.Event{
		Type:     events.EventTicketPriorityChanged,
		TicketID: ticketID,
		ActorID:  actorID,
		Payload: events.TicketPriorityChangedPayload{
			OldPriority: old,
			NewPriority: next,
		},
	})
}

func (s *TicketService) recordStatusChange(ctx context.Context, actorID, ticketID string, old, next domain.TicketStatus) {
	s.recordHistory(ctx, actorID, ticketID, domain.ChangeTypeStatus,
		map[string]any{"status": old}, map[string]any{"status": next})
}

func (s *TicketService) recordPriorityChange(ctx context.Context, actorID, ticketID string, old, next domain.TicketPriority) {
	s.recordHistory(ctx, actorID, ticketID, domain.ChangeTypePriority,
		map[string]any{"priority": old}, map[string]any{"priority": next})
}

func (s *TicketService) recordHandlerChange(ctx context.Context, actorID, ticketID string, old, next *string) {
	s.recordHistory(ctx, actorID, ticketID, domain.ChangeTypeHandler,
		map[string]any{"handler_id": old}, map[string]any{"handler_id": next})
}

func (s *TicketService) recordAgentChange(ctx context.Context, actorID, ticketID string, old, next *string) {
	s.recordHistory(ctx, actorID, ticketID, domain.ChangeTypeAgent,
		map[string]any{"agent_id": old}, map[string]any{"agent_id": next})
}

func (s *TicketService) recordDepartmentChange(ctx context.Context, actorID, ticketID string, old, next *string) {
	s.recordHistory(ctx, actorID, ticketID, domain.ChangeTypeDepartment,
		map[string]any{"department_id": old}, map[string]any{"department_id": next})
}

func (s *TicketService) recordHistory(ctx context.Context, actorID, ticketID string, changeType domain.TicketChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	_ = s.history.Create(ctx, &domain.TicketHistory{
		TicketID:   ticketID,
		ChangedBy:  &actorID,
		ChangeType: changeType,
		OldValue:   oldValue,
		NewValue:   newValue,
	})
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func preview(text string, max int) string {
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text
	}
	if max <= 3 {
		return text[:max]
	}
	return text[:max-3] + "..."
}
