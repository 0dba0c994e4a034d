package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-tracker/internal/config"
	"github.com/spec-kit/helpdesk-tracker/internal/domain"
	"github.com/spec-kit/helpdesk-tracker/internal/events"
	"github.com/spec-kit/helpdesk-tracker/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-tracker/pkg/util"
)

// --- in-memory fakes ---

type fakeTicketRepo struct {
	seq     int
	tickets map[string]*domain.Ticket
	order   []string
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.seq++
	ticket.ID = fmt.Sprintf("t%d", r.seq)
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	r.order = append(r.order, ticket.ID)
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) ListByOwner(_ context.Context, ownerID string, completedSince time.Time) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, id := range r.order {
		ticket := r.tickets[id]
		if ticket == nil || ticket.CreatedBy != ownerID {
			continue
		}
		if ticket.Status == domain.TicketStatusCompleted {
			if ticket.CompletedAt == nil || !ticket.CompletedAt.After(completedSince) {
				continue
			}
		}
		result = append(result, *ticket)
	}
	return result, nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, id := range r.order {
		ticket := r.tickets[id]
		if ticket == nil {
			continue
		}
		if filter.HandlerID != nil {
			assigned := ticket.HandlerID != nil && *ticket.HandlerID == *filter.HandlerID
			if !assigned && !(filter.OrUnassigned && ticket.HandlerID == nil) {
				continue
			}
		}
		if filter.AgentID != nil {
			if ticket.AgentID == nil || *ticket.AgentID != *filter.AgentID {
				continue
			}
		}
		result = append(result, *ticket)
	}
	return result, nil
}

func (r *fakeTicketRepo) BindHandler(_ context.Context, ticketID, userID string) error {
	ticket, ok := r.tickets[ticketID]
	if !ok {
		return repository.ErrBindingConflict
	}
	if ticket.HandlerID != nil && *ticket.HandlerID != userID {
		return repository.ErrBindingConflict
	}
	ticket.HandlerID = &userID
	return nil
}

func (r *fakeTicketRepo) BindAgent(_ context.Context, ticketID, userID string) error {
	ticket, ok := r.tickets[ticketID]
	if !ok {
		return repository.ErrBindingConflict
	}
	if ticket.AgentID != nil && *ticket.AgentID != userID {
		return repository.ErrBindingConflict
	}
	ticket.AgentID = &userID
	return nil
}

func (r *fakeTicketRepo) MarkAllCompleted(_ context.Context, completedAt time.Time) (int64, error) {
	var count int64
	for _, ticket := range r.tickets {
		if ticket.Status != domain.TicketStatusCompleted {
			ticket.Status = domain.TicketStatusCompleted
			stamped := completedAt
			ticket.CompletedAt = &stamped
			count++
		}
	}
	return count, nil
}

func (r *fakeTicketRepo) DeleteCompletedByIDs(_ context.Context, ids []string) (int64, error) {
	var count int64
	for _, id := range ids {
		ticket, ok := r.tickets[id]
		if !ok || ticket.Status != domain.TicketStatusCompleted {
			continue
		}
		delete(r.tickets, id)
		count++
	}
	return count, nil
}

func (r *fakeTicketRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

type fakeCommentRepo struct {
	seq      int
	comments []domain.Comment
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.seq++
	comment.ID = fmt.Sprintf("c%d", r.seq)
	comment.CreatedAt = time.Now()
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *fakeCommentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	var result []domain.Comment
	for _, c := range r.comments {
		if c.TicketID == ticketID {
			result = append(result, c)
		}
	}
	return result, nil
}

type fakeDepartmentRepo struct {
	departments map[string]domain.Department
}

func (r *fakeDepartmentRepo) Create(_ context.Context, dept *domain.Department) error {
	if r.departments == nil {
		r.departments = map[string]domain.Department{}
	}
	r.departments[dept.ID] = *dept
	return nil
}

func (r *fakeDepartmentRepo) GetByID(_ context.Context, id string) (*domain.Department, error) {
	dept, ok := r.departments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &dept, nil
}

func (r *fakeDepartmentRepo) List(_ context.Context) ([]domain.Department, error) {
	var result []domain.Department
	for _, dept := range r.departments {
		result = append(result, dept)
	}
	return result, nil
}

func (r *fakeDepartmentRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.departments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.departments, id)
	return nil
}

type fakeUserRepo struct {
	handlers []domain.User
}

func (r *fakeUserRepo) Create(_ context.Context, _ *domain.User) error { return nil }
func (r *fakeUserRepo) GetByID(_ context.Context, _ string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}
func (r *fakeUserRepo) GetByEmail(_ context.Context, _ string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}
func (r *fakeUserRepo) GetByName(_ context.Context, _ string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}
func (r *fakeUserRepo) RolesForUser(_ context.Context, _ string) ([]domain.Role, error) {
	return nil, nil
}
func (r *fakeUserRepo) AddToRole(_ context.Context, _ string, _ domain.Role) error { return nil }

func (r *fakeUserRepo) FirstInRole(_ context.Context, role domain.Role) (*domain.User, error) {
	if role != domain.RoleHandler || len(r.handlers) == 0 {
		return nil, pgx.ErrNoRows
	}
	first := r.handlers[0]
	return &first, nil
}

type fakeHistoryRepo struct {
	entries []domain.TicketHistory
}

func (r *fakeHistoryRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.TicketHistory, error) {
	var result []domain.TicketHistory
	for _, e := range r.entries {
		if e.TicketID == ticketID {
			result = append(result, e)
		}
	}
	return result, nil
}

// --- harness ---

type serviceFixture struct {
	svc         *TicketService
	tickets     *fakeTicketRepo
	comments    *fakeCommentRepo
	departments *fakeDepartmentRepo
	users       *fakeUserRepo
	history     *fakeHistoryRepo
	dispatcher  events.Dispatcher
}

func newFixture(handlers ...domain.User) *serviceFixture {
	tickets := newFakeTicketRepo()
	comments := &fakeCommentRepo{}
	departments := &fakeDepartmentRepo{departments: map[string]domain.Department{}}
	users := &fakeUserRepo{handlers: handlers}
	history := &fakeHistoryRepo{}
	dispatcher := events.NewInMemoryDispatcher()

	assigner := NewAssignmentService(AssignmentDependencies{
		UserRepo:       users,
		DepartmentRepo: departments,
	})
	svc := NewTicketService(TicketDependencies{
		TicketRepo:     tickets,
		CommentRepo:    comments,
		DepartmentRepo: departments,
		HistoryRepo:    history,
		Assigner:       assigner,
		Dispatcher:     dispatcher,
		SLA: config.SLAConfig{
			ThresholdHours:                  4,
			OwnerCompletedVisibilityMinutes: 2,
		},
	})
	return &serviceFixture{
		svc:         svc,
		tickets:     tickets,
		comments:    comments,
		departments: departments,
		users:       users,
		history:     history,
		dispatcher:  dispatcher,
	}
}

func (f *serviceFixture) seedTicket(t *testing.T, ticket domain.Ticket) *domain.Ticket {
	t.Helper()
	require.NoError(t, f.tickets.Create(context.Background(), &ticket))
	return &ticket
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	require.NotNil(t, de)
	return de.Code
}

func priorityPtr(p domain.TicketPriority) *domain.TicketPriority { return &p }
func statusPtr(s domain.TicketStatus) *domain.TicketStatus       { return &s }
func stringPtr(s string) *string                                 { return &s }

// --- submission and assignment ---

func TestSubmitTicketAssignsFirstHandler(t *testing.T) {
	f := newFixture(domain.User{ID: "h-first"}, domain.User{ID: "h-second"})
	ctx := context.Background()

	ticket, err := f.svc.SubmitTicket(ctx, domain.NewActor("owner"), TicketCreateInput{
		Title:       "Printer jam",
		Description: "Third floor printer keeps jamming",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusPending, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, "owner", ticket.CreatedBy)
	require.NotNil(t, ticket.HandlerID)
	assert.Equal(t, "h-first", *ticket.HandlerID)
	assert.Nil(t, ticket.CompletedAt)
}

func TestSubmitTicketWithEmptyHandlerGroup(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	ticket, err := f.svc.SubmitTicket(ctx, domain.NewActor("owner"), TicketCreateInput{
		Title:       "VPN down",
		Description: "Cannot connect since this morning",
	})
	require.NoError(t, err)
	assert.Nil(t, ticket.HandlerID)
}

func TestSubmitTicketValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.SubmitTicket(ctx, domain.NewActor("owner"), TicketCreateInput{
		Title:       "   ",
		Description: "body",
	})
	assert.Equal(t, "VALIDATION_FAILED", codeOf(t, err))

	_, err = f.svc.SubmitTicket(ctx, nil, TicketCreateInput{Title: "a", Description: "b"})
	assert.Equal(t, "UNAUTHORIZED", codeOf(t, err))
}

func TestSubmitTicketDropsUnknownDepartment(t *testing.T) {
	f := newFixture()
	f.departments.departments["d1"] = domain.Department{ID: "d1", Name: "IT"}
	ctx := context.Background()

	ticket, err := f.svc.SubmitTicket(ctx, domain.NewActor("owner"), TicketCreateInput{
		Title:        "Laptop battery",
		Description:  "Battery drains in an hour",
		DepartmentID: stringPtr("d1"),
	})
	require.NoError(t, err)
	require.NotNil(t, ticket.DepartmentID)
	assert.Equal(t, "d1", *ticket.DepartmentID)

	ticket, err = f.svc.SubmitTicket(ctx, domain.NewActor("owner"), TicketCreateInput{
		Title:        "Second laptop",
		Description:  "Same battery problem",
		DepartmentID: stringPtr("nope"),
	})
	require.NoError(t, err)
	assert.Nil(t, ticket.DepartmentID)
}

// --- owner listing window ---

func TestListOwnTicketsCompletedVisibilityWindow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := domain.NewActor("owner")

	open := f.seedTicket(t, domain.Ticket{
		Title: "open", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
	})

	recent := time.Now().Add(-time.Minute)
	recentDone := f.seedTicket(t, domain.Ticket{
		Title: "recent", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusCompleted, Priority: domain.TicketPriorityMedium,
		CompletedAt: &recent,
	})

	stale := time.Now().Add(-3 * time.Minute)
	f.seedTicket(t, domain.Ticket{
		Title: "stale", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusCompleted, Priority: domain.TicketPriorityMedium,
		CompletedAt: &stale,
	})

	f.seedTicket(t, domain.Ticket{
		Title: "someone else's", Description: "d", CreatedBy: "other",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
	})

	tickets, err := f.svc.ListOwnTickets(ctx, owner)
	require.NoError(t, err)

	ids := make([]string, 0, len(tickets))
	for _, ticket := range tickets {
		ids = append(ids, ticket.ID)
	}
	assert.ElementsMatch(t, []string{open.ID, recentDone.ID}, ids)
}

// --- claim semantics ---

func TestClaimAsHandler(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.seedTicket(t, domain.Ticket{
		Title: "x", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
	})

	handlerA := domain.NewActor("handler-a", domain.RoleHandler)
	handlerB := domain.NewActor("handler-b", domain.RoleHandler)

	claimed, err := f.svc.ClaimAsHandler(ctx, handlerA, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, claimed.HandlerID)
	assert.Equal(t, "handler-a", *claimed.HandlerID)

	// repeat claim by the same handler is a no-op
	again, err := f.svc.ClaimAsHandler(ctx, handlerA, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "handler-a", *again.HandlerID)

	_, err = f.svc.ClaimAsHandler(ctx, handlerB, ticket.ID)
	assert.Equal(t, "CONFLICT", codeOf(t, err))
}

func TestClaimRequiresHandlerRole(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.seedTicket(t, domain.Ticket{
		Title: "x", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
	})

	_, err := f.svc.ClaimAsHandler(ctx, domain.NewActor("u1", domain.RoleAgent), ticket.ID)
	assert.Equal(t, "FORBIDDEN", codeOf(t, err))
}

func TestClaimPublishesEvent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.seedTicket(t, domain.Ticket{
		Title: "x", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
	})

	var got []events.Event
	f.dispatcher.Subscribe(events.EventTicketClaimed, func(_ context.Context, e events.Event) error {
		got = append(got, e)
		return nil
	})

	_, err := f.svc.ClaimAsHandler(ctx, domain.NewActor("handler-a", domain.RoleHandler), ticket.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ticket.ID, got[0].TicketID)
	assert.Equal(t, "handler-a", got[0].ActorID)
}

// --- handler and agent updates ---

func TestHandlerUpdateBindsOnFirstWrite(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.seedTicket(t, domain.Ticket{
		Title: "x", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
	})

	handler := domain.NewActor("handler-a", domain.RoleHandler)
	updated, err := f.svc.HandlerUpdate(ctx, handler, ticket.ID, StaffUpdateInput{
		Status: statusPtr(domain.TicketStatusInProgress),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.HandlerID)
	assert.Equal(t, "handler-a", *updated.HandlerID)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)

	other := domain.NewActor("handler-b", domain.RoleHandler)
	_, err = f.svc.HandlerUpdate(ctx, other, ticket.ID, StaffUpdateInput{
		Priority: priorityPtr(domain.TicketPriorityHigh),
	})
	assert.Equal(t, "FORBIDDEN", codeOf(t, err))
}

func TestHandlerCompleteThenReopenClearsCompletedAt(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.seedTicket(t, domain.Ticket{
		Title: "x", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
		HandlerID: stringPtr("handler-a"),
	})

	handler := domain.NewActor("handler-a", domain.RoleHandler)

	done, err := f.svc.HandlerUpdate(ctx, handler, ticket.ID, StaffUpdateInput{
		Status: statusPtr(domain.TicketStatusCompleted),
	})
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, domain.SLAOnTime, f.svc.SLAStatusOf(done))

	reopened, err := f.svc.HandlerUpdate(ctx, handler, ticket.ID, StaffUpdateInput{
		Status: statusPtr(domain.TicketStatusInProgress),
	})
	require.NoError(t, err)
	assert.Nil(t, reopened.CompletedAt)
	assert.Equal(t, domain.SLAOpen, f.svc.SLAStatusOf(reopened))
}

func TestHandlerUpdateWithoutStatusLeavesCompletedAt(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	completedAt := time.Now().Add(-time.Hour)
	ticket := f.seedTicket(t, domain.Ticket{
		Title: "x", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusCompleted, Priority: domain.TicketPriorityMedium,
		HandlerID: stringPtr("handler-a"), CompletedAt: &completedAt,
	})

	handler := domain.NewActor("handler-a", domain.RoleHandler)
	updated, err := f.svc.HandlerUpdate(ctx, handler, ticket.ID, StaffUpdateInput{
		Priority: priorityPtr(domain.TicketPriorityUrgent),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityUrgent, updated.Priority)
	require.NotNil(t, updated.CompletedAt)
	assert.WithinDuration(t, completedAt, *updated.CompletedAt, time.Second)
}

func TestLegacySessionUpdatesWithoutBinding(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.seedTicket(t, domain.Ticket{
		Title: "x", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
	})

	legacy := domain.NewActor("legacy-handler")
	legacy.LegacySession = true

	updated, err := f.svc.HandlerUpdate(ctx, legacy, ticket.ID, StaffUpdateInput{
		Status: statusPtr(domain.TicketStatusInProgress),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.HandlerID)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
}

func TestAgentUpdateClaimsAgentSlot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.seedTicket(t, domain.Ticket{
		Title: "x", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
	})

	agent := domain.NewActor("agent-a", domain.RoleAgent)
	updated, err := f.svc.AgentUpdate(ctx, agent, ticket.ID, StaffUpdateInput{
		Priority: priorityPtr(domain.TicketPriorityHigh),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.AgentID)
	assert.Equal(t, "agent-a", *updated.AgentID)

	other := domain.NewActor("agent-b", domain.RoleAgent)
	_, err = f.svc.AgentUpdate(ctx, other, ticket.ID, StaffUpdateInput{
		Priority: priorityPtr(domain.TicketPriorityLow),
	})
	assert.Equal(t, "FORBIDDEN", codeOf(t, err))
}

func TestStaffUpdateRejectsUnknownValues(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.seedTicket(t, domain.Ticket{
		Title: "x", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
	})

	handler := domain.NewActor("handler-a", domain.RoleHandler)
	bogusStatus := domain.TicketStatus("resolved")
	_, err := f.svc.HandlerUpdate(ctx, handler, ticket.ID, StaffUpdateInput{Status: &bogusStatus})
	assert.Equal(t, "VALIDATION_FAILED", codeOf(t, err))

	bogusPriority := domain.TicketPriority("critical")
	_, err = f.svc.HandlerUpdate(ctx, handler, ticket.ID, StaffUpdateInput{Priority: &bogusPriority})
	assert.Equal(t, "VALIDATION_FAILED", codeOf(t, err))
}

// --- admin review ---

func TestReviewUpdateRequiresAdmin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.seedTicket(t, domain.Ticket{
		Title: "x", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
	})

	_, err := f.svc.ReviewUpdate(ctx, domain.NewActor("u1", domain.RoleHandler), ticket.ID, ReviewUpdateInput{
		Priority: priorityPtr(domain.TicketPriorityHigh),
	})
	assert.Equal(t, "FORBIDDEN", codeOf(t, err))
}

func TestReviewUpdatePriorityAndHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.seedTicket(t, domain.Ticket{
		Title: "x", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
	})

	admin := domain.NewActor("admin", domain.RoleAdmin)
	updated, err := f.svc.ReviewUpdate(ctx, admin, ticket.ID, ReviewUpdateInput{
		Priority: priorityPtr(domain.TicketPriorityUrgent),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityUrgent, updated.Priority)
	assert.Equal(t, domain.TicketStatusPending, updated.Status)

	entries, err := f.history.ListByTicket(ctx, ticket.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ChangeTypePriority, entries[0].ChangeType)
}

func TestReviewUpdateClearsUnresolvableDepartment(t *testing.T) {
	f := newFixture()
	f.departments.departments["d1"] = domain.Department{ID: "d1", Name: "IT"}
	ctx := context.Background()
	ticket := f.seedTicket(t, domain.Ticket{
		Title: "x", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
		DepartmentID: stringPtr("d1"),
	})

	admin := domain.NewActor("admin", domain.RoleAdmin)
	updated, err := f.svc.ReviewUpdate(ctx, admin, ticket.ID, ReviewUpdateInput{
		DepartmentID: stringPtr("gone"),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.DepartmentID)
}

func TestReviewUpdateRejectsInvalidPriority(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.seedTicket(t, domain.Ticket{
		Title: "x", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
	})

	bogus := domain.TicketPriority("sev1")
	_, err := f.svc.ReviewUpdate(ctx, domain.NewActor("admin", domain.RoleAdmin), ticket.ID, ReviewUpdateInput{
		Priority: &bogus,
	})
	assert.Equal(t, "VALIDATION_FAILED", codeOf(t, err))
}

// --- deletion and bulk operations ---

func TestDeleteTicketOnlyWhenCompleted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	admin := domain.NewActor("admin", domain.RoleAdmin)

	pending := f.seedTicket(t, domain.Ticket{
		Title: "x", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
	})
	err := f.svc.DeleteTicket(ctx, admin, pending.ID)
	assert.Equal(t, "VALIDATION_FAILED", codeOf(t, err))

	now := time.Now()
	done := f.seedTicket(t, domain.Ticket{
		Title: "y", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusCompleted, Priority: domain.TicketPriorityMedium,
		CompletedAt: &now,
	})
	require.NoError(t, f.svc.DeleteTicket(ctx, admin, done.ID))

	_, err = f.tickets.GetByID(ctx, done.ID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestDeleteTicketRequiresAdmin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	now := time.Now()
	done := f.seedTicket(t, domain.Ticket{
		Title: "y", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusCompleted, Priority: domain.TicketPriorityMedium,
		CompletedAt: &now,
	})

	err := f.svc.DeleteTicket(ctx, domain.NewActor("owner"), done.ID)
	assert.Equal(t, "FORBIDDEN", codeOf(t, err))
}

func TestMarkAllCompleted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.seedTicket(t, domain.Ticket{Title: "a", Description: "d", CreatedBy: "o", Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium})
	f.seedTicket(t, domain.Ticket{Title: "b", Description: "d", CreatedBy: "o", Status: domain.TicketStatusInProgress, Priority: domain.TicketPriorityMedium})
	f.seedTicket(t, domain.Ticket{Title: "c", Description: "d", CreatedBy: "o", Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium})
	now := time.Now()
	f.seedTicket(t, domain.Ticket{Title: "done", Description: "d", CreatedBy: "o", Status: domain.TicketStatusCompleted, Priority: domain.TicketPriorityMedium, CompletedAt: &now})

	count, err := f.svc.MarkAllCompleted(ctx, domain.NewActor("admin", domain.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	_, err = f.svc.MarkAllCompleted(ctx, domain.NewActor("u1", domain.RoleHandler))
	assert.Equal(t, "FORBIDDEN", codeOf(t, err))
}

func TestDeleteSelectedSkipsNonCompleted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	admin := domain.NewActor("admin", domain.RoleAdmin)

	now := time.Now()
	doneA := f.seedTicket(t, domain.Ticket{Title: "a", Description: "d", CreatedBy: "o", Status: domain.TicketStatusCompleted, Priority: domain.TicketPriorityMedium, CompletedAt: &now})
	doneB := f.seedTicket(t, domain.Ticket{Title: "b", Description: "d", CreatedBy: "o", Status: domain.TicketStatusCompleted, Priority: domain.TicketPriorityMedium, CompletedAt: &now})
	pending := f.seedTicket(t, domain.Ticket{Title: "c", Description: "d", CreatedBy: "o", Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium})

	count, err := f.svc.DeleteSelected(ctx, admin, []string{doneA.ID, doneB.ID, pending.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = f.tickets.GetByID(ctx, pending.ID)
	assert.NoError(t, err)

	count, err = f.svc.DeleteSelected(ctx, admin, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

// --- reads, comments, queues ---

func TestGetTicketAccess(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.seedTicket(t, domain.Ticket{
		Title: "x", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
	})

	got, _, err := f.svc.GetTicket(ctx, domain.NewActor("owner"), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)

	_, _, err = f.svc.GetTicket(ctx, domain.NewActor("stranger"), ticket.ID)
	assert.Equal(t, "FORBIDDEN", codeOf(t, err))

	_, _, err = f.svc.GetTicket(ctx, domain.NewActor("owner"), "missing")
	assert.Equal(t, "NOT_FOUND", codeOf(t, err))
}

func TestAddComment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.seedTicket(t, domain.Ticket{
		Title: "x", Description: "d", CreatedBy: "owner",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
	})

	comment, err := f.svc.AddComment(ctx, domain.NewActor("owner"), ticket.ID, "  still broken  ")
	require.NoError(t, err)
	assert.Equal(t, "still broken", comment.Text)

	_, err = f.svc.AddComment(ctx, domain.NewActor("owner"), ticket.ID, "   ")
	assert.Equal(t, "VALIDATION_FAILED", codeOf(t, err))

	_, err = f.svc.AddComment(ctx, domain.NewActor("stranger"), ticket.ID, "hi")
	assert.Equal(t, "FORBIDDEN", codeOf(t, err))

	_, comments, err := f.svc.GetTicket(ctx, domain.NewActor("owner"), ticket.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
}

func TestListHandlerQueueIncludesUnassigned(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	mine := f.seedTicket(t, domain.Ticket{
		Title: "mine", Description: "d", CreatedBy: "o",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
		HandlerID: stringPtr("handler-a"),
	})
	unassigned := f.seedTicket(t, domain.Ticket{
		Title: "free", Description: "d", CreatedBy: "o",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
	})
	f.seedTicket(t, domain.Ticket{
		Title: "theirs", Description: "d", CreatedBy: "o",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
		HandlerID: stringPtr("handler-b"),
	})

	tickets, err := f.svc.ListHandlerQueue(ctx, domain.NewActor("handler-a", domain.RoleHandler), 50, 0)
	require.NoError(t, err)

	ids := make([]string, 0, len(tickets))
	for _, ticket := range tickets {
		ids = append(ids, ticket.ID)
	}
	assert.ElementsMatch(t, []string{mine.ID, unassigned.ID}, ids)

	_, err = f.svc.ListHandlerQueue(ctx, domain.NewActor("u1", domain.RoleAgent), 50, 0)
	assert.Equal(t, "FORBIDDEN", codeOf(t, err))
}

func TestListAgentQueue(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	mine := f.seedTicket(t, domain.Ticket{
		Title: "mine", Description: "d", CreatedBy: "o",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
		AgentID: stringPtr("agent-a"),
	})
	f.seedTicket(t, domain.Ticket{
		Title: "free", Description: "d", CreatedBy: "o",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityMedium,
	})

	tickets, err := f.svc.ListAgentQueue(ctx, domain.NewActor("agent-a", domain.RoleAgent), 50, 0)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, mine.ID, tickets[0].ID)
}
