package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-tracker/internal/domain"
)

// UserRepository handles account persistence and role-group membership.
// Role tags are rows in role_members; FirstInRole follows the stable
// earliest-enrolled order the assignment resolver relies on.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByName(ctx context.Context, name string) (*domain.User, error)
	RolesForUser(ctx context.Context, userID string) ([]domain.Role, error)
	AddToRole(ctx context.Context, userID string, role domain.Role) error
	FirstInRole(ctx context.Context, role domain.Role) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates the repository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, status, created_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Status,
	).Scan(&user.ID, &user.CreatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (r *userRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE name=$1`, name)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Status,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) RolesForUser(ctx context.Context, userID string) ([]domain.Role, error) {
	const query = `SELECT role FROM role_members WHERE user_id=$1`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *userRepository) AddToRole(ctx context.Context, userID string, role domain.Role) error {
	const query = `
        INSERT INTO role_members (user_id, role)
        VALUES ($1,$2)
        ON CONFLICT (user_id, role) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, userID, role)
	return err
}

// FirstInRole returns the earliest-enrolled member of the role group, or
// pgx.ErrNoRows when the group is empty.
func (r *userRepository) FirstInRole(ctx context.Context, role domain.Role) (*domain.User, error) {
	const query = `
        SELECT u.id, u.name, u.email, u.password_hash, u.status, u.created_at
        FROM role_members rm
        JOIN users u ON u.id = rm.user_id
        WHERE rm.role=$1
        ORDER BY rm.created_at ASC
        LIMIT 1`
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, role).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Status,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
