package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-tracker/internal/authz"
	"github.com/spec-kit/helpdesk-tracker/internal/domain"
	"github.com/spec-kit/helpdesk-tracker/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-tracker/pkg/util"
)

// DepartmentService manages the routing labels tickets reference.
type DepartmentService struct {
	departments repository.DepartmentRepository
}

// NewDepartmentService builds the service.
func NewDepartmentService(departments repository.DepartmentRepository) *DepartmentService {
	return &DepartmentService{departments: departments}
}

// List returns all departments; any authenticated caller may read them,
// since ticket submission references them.
func (s *DepartmentService) List(ctx context.Context, actor *domain.Actor) ([]domain.Department, error) {
	if err := authz.RequireActor(actor); err != nil {
		return nil, err
	}
	depts, err := s.departments.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return depts, nil
}

// Create adds a department (admin only).
func (s *DepartmentService) Create(ctx context.Context, actor *domain.Actor, name string) (*domain.Department, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("department name required", nil)
	}
	dept := &domain.Department{Name: name}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// Delete removes a department (admin only). Tickets referencing it fall
// back to a null department through the schema.
func (s *DepartmentService) Delete(ctx context.Context, actor *domain.Actor, id string) error {
	if err := authz.RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.departments.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("department", map[string]any{"department_id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}
