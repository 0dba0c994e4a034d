package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-tracker/internal/domain"
	"github.com/spec-kit/helpdesk-tracker/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-tracker/pkg/util"
)

// AssignmentService is the single-shot, best-effort assignment resolver
// consulted at ticket creation. There is no rebalancing, load awareness, or
// reassignment on failure.
type AssignmentService struct {
	users       repository.UserRepository
	departments repository.DepartmentRepository
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	UserRepo       repository.UserRepository
	DepartmentRepo repository.DepartmentRepository
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		users:       deps.UserRepo,
		departments: deps.DepartmentRepo,
	}
}

// InitialHandler picks the earliest-enrolled member of the handler group as
// the initial handler. An empty group leaves the ticket unassigned and
// claimable later.
func (s *AssignmentService) InitialHandler(ctx context.Context) (*string, error) {
	handler, err := s.users.FirstInRole(ctx, domain.RoleHandler)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.MapError(err)
	}
	return &handler.ID, nil
}

// ResolveDepartment returns the department id verbatim when it resolves to
// an existing department, nil otherwise.
func (s *AssignmentService) ResolveDepartment(ctx context.Context, departmentID *string) (*string, error) {
	if departmentID == nil || *departmentID == "" {
		return nil, nil
	}
	dept, err := s.departments.GetByID(ctx, *departmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.MapError(err)
	}
	return &dept.ID, nil
}
