package builds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/rigbuilderhq/rigbuilder-backend/internal/audit"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db/models"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
	pkgerrors "github.com/rigbuilderhq/rigbuilder-backend/pkg/errors"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/pagination"
)

// DeleteConfirmation is the literal a caller must send to destroy a build.
const DeleteConfirmation = "DELETE"

// Actor identifies who is performing a build operation. Staff act on their
// own builds only; admins act on anyone's.
type Actor struct {
	ID   uuid.UUID
	Role enums.Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.RoleAdmin
}

// Service exposes build history operations.
type Service interface {
	History(ctx context.Context, actor Actor, archived bool, params pagination.Params) (pagination.Page[BuildDTO], error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*BuildDTO, error)
	Archive(ctx context.Context, actor Actor, id uuid.UUID) error
	Restore(ctx context.Context, actor Actor, id uuid.UUID) error
	Delete(ctx context.Context, actor Actor, id uuid.UUID, confirmation string) error
	BulkArchive(ctx context.Context, actor Actor, ids []uuid.UUID) (*BulkResultDTO, error)
	BulkRestore(ctx context.Context, actor Actor, ids []uuid.UUID) (*BulkResultDTO, error)
	BulkDelete(ctx context.Context, actor Actor, ids []uuid.UUID, confirmation string) (*BulkResultDTO, error)
	Reorder(ctx context.Context, actor Actor, id uuid.UUID) ([]ReorderItemDTO, error)
	Prefill(ctx context.Context, actor Actor) ([]ReorderItemDTO, error)
}

// buildStore is the persistence surface the service needs. *Repository
// satisfies it.
type buildStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Build, error)
	ListByUser(ctx context.Context, userID uuid.UUID, archived bool, params pagination.Params) ([]models.Build, error)
	SetArchived(ctx context.Context, id uuid.UUID, archived bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// prefillStore is the slice of the redis client used to stage reorders.
type prefillStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	ReorderPrefillKey(userID string) string
}

type service struct {
	store      buildStore
	recorder   audit.Recorder
	prefill    prefillStore
	prefillTTL time.Duration
}

// NewService wires a build history service.
func NewService(store buildStore, recorder audit.Recorder, prefill prefillStore, prefillTTL time.Duration) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("build repository required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if prefill == nil {
		return nil, fmt.Errorf("prefill store required")
	}
	if prefillTTL <= 0 {
		return nil, fmt.Errorf("prefill ttl must be positive")
	}
	return &service{store: store, recorder: recorder, prefill: prefill, prefillTTL: prefillTTL}, nil
}

func (s *service) History(ctx context.Context, actor Actor, archived bool, params pagination.Params) (pagination.Page[BuildDTO], error) {
	rows, err := s.store.ListByUser(ctx, actor.ID, archived, params)
	if err != nil {
		return pagination.Page[BuildDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list builds")
	}

	page := pagination.BuildPage(rows, params.Limit, func(b models.Build) pagination.Cursor {
		return pagination.Cursor{CreatedAt: b.CreatedAt, ID: b.ID}
	})
	dtos := make([]BuildDTO, 0, len(page.Items))
	for i := range page.Items {
		dtos = append(dtos, *NewBuildDTO(&page.Items[i]))
	}
	return pagination.Page[BuildDTO]{Items: dtos, NextCursor: page.NextCursor}, nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*BuildDTO, error) {
	build, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return NewBuildDTO(build), nil
}

func (s *service) Archive(ctx context.Context, actor Actor, id uuid.UUID) error {
	build, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if build.IsArchived {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "build is already archived")
	}
	if err := s.store.SetArchived(ctx, id, true); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: archive build")
	}
	return nil
}

func (s *service) Restore(ctx context.Context, actor Actor, id uuid.UUID) error {
	build, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if !build.IsArchived {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "build is not archived")
	}
	if err := s.store.SetArchived(ctx, id, false); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: restore build")
	}
	return nil
}

func (s *service) Delete(ctx context.Context, actor Actor, id uuid.UUID, confirmation string) error {
	if confirmation != DeleteConfirmation {
		s.recordDelete(ctx, actor, id.String(), enums.AuditStatusFailed, map[string]any{
			"reason": "missing_confirmation",
		})
		return pkgerrors.New(pkgerrors.CodeValidation, "confirmation mismatch: type DELETE to confirm")
	}
	return s.deleteArchived(ctx, actor, id, false)
}

func (s *service) BulkArchive(ctx context.Context, actor Actor, ids []uuid.UUID) (*BulkResultDTO, error) {
	return s.bulkApply(ctx, ids, func(ctx context.Context, id uuid.UUID) error {
		return s.Archive(ctx, actor, id)
	})
}

func (s *service) BulkRestore(ctx context.Context, actor Actor, ids []uuid.UUID) (*BulkResultDTO, error) {
	return s.bulkApply(ctx, ids, func(ctx context.Context, id uuid.UUID) error {
		return s.Restore(ctx, actor, id)
	})
}

// BulkDelete is all-or-nothing on the confirmation token and per-item on the
// archived-first guard.
func (s *service) BulkDelete(ctx context.Context, actor Actor, ids []uuid.UUID, confirmation string) (*BulkResultDTO, error) {
	if confirmation != DeleteConfirmation {
		s.recordDelete(ctx, actor, "", enums.AuditStatusFailed, map[string]any{
			"reason": "missing_confirmation",
			"bulk":   true,
		})
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "confirmation mismatch: type DELETE to confirm")
	}
	return s.bulkApply(ctx, ids, func(ctx context.Context, id uuid.UUID) error {
		return s.deleteArchived(ctx, actor, id, true)
	})
}

// Reorder stages a past build's lines so the builder page can prefill the
// cart. Only the build owner can reorder, and only from a completed build.
func (s *service) Reorder(ctx context.Context, actor Actor, id uuid.UUID) ([]ReorderItemDTO, error) {
	build, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if build.UserID != actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the build owner can reorder it")
	}
	if build.Status != enums.BuildStatusCheckedOut {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only checked-out builds can be reordered")
	}

	items := make([]ReorderItemDTO, 0, len(build.Items))
	for i := range build.Items {
		items = append(items, ReorderItemDTO{
			ProductID: build.Items[i].ProductID,
			Quantity:  build.Items[i].Quantity,
		})
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode reorder prefill")
	}
	key := s.prefill.ReorderPrefillKey(actor.ID.String())
	if err := s.prefill.Set(ctx, key, payload, s.prefillTTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: stage reorder prefill")
	}
	return items, nil
}

// Prefill returns and clears the staged reorder, if any. An expired or
// missing prefill is not an error.
func (s *service) Prefill(ctx context.Context, actor Actor) ([]ReorderItemDTO, error) {
	key := s.prefill.ReorderPrefillKey(actor.ID.String())
	raw, err := s.prefill.Get(ctx, key)
	if err != nil {
		return nil, nil
	}
	var items []ReorderItemDTO
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		_ = s.prefill.Del(ctx, key)
		return nil, nil
	}
	_ = s.prefill.Del(ctx, key)
	return items, nil
}

func (s *service) bulkApply(ctx context.Context, ids []uuid.UUID, action func(context.Context, uuid.UUID) error) (*BulkResultDTO, error) {
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one build id required")
	}

	result := &BulkResultDTO{}
	var blocked error
	for _, id := range ids {
		if err := action(ctx, id); err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() != pkgerrors.CodeDependency {
				result.Blocked++
				blocked = multierr.Append(blocked, fmt.Errorf("%s: %s", id, typed.Message()))
				continue
			}
			return nil, err
		}
		result.Changed++
	}
	for _, err := range multierr.Errors(blocked) {
		result.Reasons = append(result.Reasons, err.Error())
	}
	return result, nil
}

func (s *service) deleteArchived(ctx context.Context, actor Actor, id uuid.UUID, bulk bool) error {
	build, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if !build.IsArchived {
		metadata := map[string]any{"reason": "not_archived"}
		if bulk {
			metadata["bulk"] = true
		}
		s.recordDelete(ctx, actor, id.String(), enums.AuditStatusFailed, metadata)
		return pkgerrors.New(pkgerrors.CodeStateConflict, "build must be archived before deletion")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete build")
	}

	metadata := map[string]any{
		"target_user": build.UserID.String(),
		"total_price": build.TotalPrice.String(),
	}
	if bulk {
		metadata["bulk"] = true
	}
	s.recordDelete(ctx, actor, id.String(), enums.AuditStatusSuccess, metadata)
	return nil
}

// recordDelete writes the audit entry best-effort. A failed write must not
// undo a delete that already happened.
func (s *service) recordDelete(ctx context.Context, actor Actor, identifier string, status enums.AuditStatus, metadata map[string]any) {
	payload, err := json.Marshal(metadata)
	if err != nil {
		payload = nil
	}
	actorID := actor.ID
	_, _ = s.recorder.Record(ctx, audit.RecordInput{
		UserID:     &actorID,
		Action:     enums.AuditActionDeleteBuild,
		Status:     status,
		Identifier: identifier,
		Metadata:   payload,
	})
}

func (s *service) loadOwned(ctx context.Context, actor Actor, id uuid.UUID) (*models.Build, error) {
	build, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "build not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load build")
	}
	if build.UserID != actor.ID && !actor.IsAdmin() {
		// Staff cannot discover other users' build ids.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "build not found")
	}
	return build, nil
}
