package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db/models"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/pagination"
)

// Service defines operations that record and read audit entries.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*models.AuditLog, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.AuditLog], error)
}

// Recorder is the write-only surface handed to services that emit audit
// entries but never read them back.
type Recorder interface {
	Record(ctx context.Context, input RecordInput) (*models.AuditLog, error)
}

// RecordInput captures the immutable data an audit entry requires. UserID is
// nil when the actor could not be resolved (failed login, unknown username).
type RecordInput struct {
	UserID     *uuid.UUID
	Action     enums.AuditAction
	Status     enums.AuditStatus
	Identifier string
	IPAddress  string
	Metadata   json.RawMessage
}

type service struct {
	repo Repository
}

// NewService wires an audit service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, input RecordInput) (*models.AuditLog, error) {
	if !input.Action.IsValid() {
		return nil, fmt.Errorf("invalid audit action %q", input.Action)
	}
	if !input.Status.IsValid() {
		return nil, fmt.Errorf("invalid audit status %q", input.Status)
	}

	entry := &models.AuditLog{
		UserID:     input.UserID,
		Action:     input.Action,
		Status:     input.Status,
		Identifier: input.Identifier,
		IPAddress:  input.IPAddress,
		Metadata:   input.Metadata,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.AuditLog], error) {
	if filter.Action != nil && !filter.Action.IsValid() {
		return pagination.Page[models.AuditLog]{}, fmt.Errorf("invalid audit action %q", *filter.Action)
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return pagination.Page[models.AuditLog]{}, fmt.Errorf("invalid audit status %q", *filter.Status)
	}

	rows, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return pagination.Page[models.AuditLog]{}, err
	}
	return pagination.BuildPage(rows, params.Limit, func(entry models.AuditLog) pagination.Cursor {
		return pagination.Cursor{CreatedAt: entry.CreatedAt, ID: entry.ID}
	}), nil
}
