package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-tracker/internal/domain"
)

// TicketFilter captures listing parameters for staff and admin views.
type TicketFilter struct {
	CreatedBy    *string
	HandlerID    *string
	OrUnassigned bool
	AgentID      *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	SearchTerm   *string
	Limit        int
	Offset       int
}

// TicketRepository encapsulates ticket persistence. Every mutation executes
// as a single statement, so each lifecycle operation is one atomic
// read-modify-write against the row; BindHandler and BindAgent carry the
// null-or-self compare-and-set inside the statement itself.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListByOwner(ctx context.Context, ownerID string, completedSince time.Time) ([]domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	BindHandler(ctx context.Context, ticketID, userID string) error
	BindAgent(ctx context.Context, ticketID, userID string) error
	MarkAllCompleted(ctx context.Context, completedAt time.Time) (int64, error)
	DeleteCompletedByIDs(ctx context.Context, ids []string) (int64, error)
	Delete(ctx context.Context, id string) error
}

// ErrBindingConflict is returned when a compare-and-set bind loses to an
// existing different owner.
var ErrBindingConflict = fmt.Errorf("ticket already bound to a different actor")

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, created_by, agent_id, handler_id, department_id,
               status, priority, created_at, completed_at, sla_due`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, created_by, agent_id, handler_id, department_id, status, priority, sla_due)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.CreatedBy,
		ticket.AgentID,
		ticket.HandlerID,
		ticket.DepartmentID,
		ticket.Status,
		ticket.Priority,
		ticket.SLADue,
	).Scan(&ticket.ID, &ticket.CreatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET agent_id=$1, handler_id=$2, department_id=$3,
            status=$4, priority=$5, completed_at=$6, sla_due=$7
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.AgentID,
		ticket.HandlerID,
		ticket.DepartmentID,
		ticket.Status,
		ticket.Priority,
		ticket.CompletedAt,
		ticket.SLADue,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.CreatedBy,
		&ticket.AgentID,
		&ticket.HandlerID,
		&ticket.DepartmentID,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedAt,
		&ticket.CompletedAt,
		&ticket.SLADue,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListByOwner returns the owner's open tickets plus tickets completed after
// completedSince, newest first. Completed tickets drop off the owner view
// once they age past the window.
func (r *ticketRepository) ListByOwner(ctx context.Context, ownerID string, completedSince time.Time) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE created_by=$1
          AND (status IN ('pending','in_progress')
               OR (status='completed' AND completed_at > $2))
        ORDER BY created_at DESC`, ticketColumns)
	rows, err := r.pool.Query(ctx, query, ownerID, completedSince)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.HandlerID != nil {
		args = append(args, *filter.HandlerID)
		if filter.OrUnassigned {
			clauses = append(clauses, fmt.Sprintf("(handler_id=$%d OR handler_id IS NULL)", len(args)))
		} else {
			clauses = append(clauses, fmt.Sprintf("handler_id=$%d", len(args)))
		}
	}
	if filter.AgentID != nil {
		args = append(args, *filter.AgentID)
		clauses = append(clauses, fmt.Sprintf("agent_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// BindHandler sets the handler when it is null or already the same user.
func (r *ticketRepository) BindHandler(ctx context.Context, ticketID, userID string) error {
	const query = `
        UPDATE tickets SET handler_id=$2
        WHERE id=$1 AND (handler_id IS NULL OR handler_id=$2)`
	cmd, err := r.pool.Exec(ctx, query, ticketID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrBindingConflict
	}
	return nil
}

// BindAgent sets the agent when it is null or already the same user.
func (r *ticketRepository) BindAgent(ctx context.Context, ticketID, userID string) error {
	const query = `
        UPDATE tickets SET agent_id=$2
        WHERE id=$1 AND (agent_id IS NULL OR agent_id=$2)`
	cmd, err := r.pool.Exec(ctx, query, ticketID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrBindingConflict
	}
	return nil
}

func (r *ticketRepository) MarkAllCompleted(ctx context.Context, completedAt time.Time) (int64, error) {
	const query = `
        UPDATE tickets SET status='completed', completed_at=$1
        WHERE status <> 'completed'`
	cmd, err := r.pool.Exec(ctx, query, completedAt)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) DeleteCompletedByIDs(ctx context.Context, ids []string) (int64, error) {
	const query = `DELETE FROM tickets WHERE id = ANY($1) AND status='completed'`
	cmd, err := r.pool.Exec(ctx, query, ids)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.CreatedBy,
			&ticket.AgentID,
			&ticket.HandlerID,
			&ticket.DepartmentID,
			&ticket.Status,
			&ticket.Priority,
			&ticket.CreatedAt,
			&ticket.CompletedAt,
			&ticket.SLADue,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
