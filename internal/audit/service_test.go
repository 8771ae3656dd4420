package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db/models"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/pagination"
)

type fakeRepository struct {
	createFn func(ctx context.Context, entry *models.AuditLog) error
	listFn   func(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.AuditLog, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if f.createFn != nil {
		return f.createFn(ctx, entry)
	}
	return nil
}

func (f *fakeRepository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.AuditLog, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter, params)
	}
	return nil, nil
}

func TestService_Record(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	userID := uuid.New()
	metadata := json.RawMessage(`{"build_id":"b-1"}`)
	input := RecordInput{
		UserID:     &userID,
		Action:     enums.AuditActionDeleteBuild,
		Status:     enums.AuditStatusSuccess,
		Identifier: "alice",
		IPAddress:  "10.0.0.1",
		Metadata:   metadata,
	}

	var created *models.AuditLog
	repo.createFn = func(ctx context.Context, entry *models.AuditLog) error {
		created = entry
		return nil
	}

	got, err := svc.Record(context.Background(), input)
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if created == nil {
		t.Fatal("expected audit entry to be created")
	}
	if created.Action != input.Action || created.Status != input.Status {
		t.Fatalf("unexpected audit entry data: %+v", created)
	}
	if created.UserID == nil || *created.UserID != userID {
		t.Fatalf("expected user id to be preserved, got %v", created.UserID)
	}
	if created.Identifier != "alice" || created.IPAddress != "10.0.0.1" {
		t.Fatalf("missing identifier/ip: %+v", created)
	}
	if string(created.Metadata) != string(metadata) {
		t.Fatalf("metadata mismatch: %s", created.Metadata)
	}
	if got != created {
		t.Fatalf("service should return created entry")
	}
}

func TestService_RecordValidation(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	if _, err := svc.Record(context.Background(), RecordInput{
		Action: "bogus",
		Status: enums.AuditStatusSuccess,
	}); err == nil {
		t.Fatal("expected invalid action error")
	}

	if _, err := svc.Record(context.Background(), RecordInput{
		Action: enums.AuditActionLogin,
		Status: "bogus",
	}); err == nil {
		t.Fatal("expected invalid status error")
	}
}

func TestService_RecordRepositoryError(t *testing.T) {
	wantErr := errors.New("db down")
	repo := &fakeRepository{
		createFn: func(ctx context.Context, entry *models.AuditLog) error {
			return wantErr
		},
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	if _, err := svc.Record(context.Background(), RecordInput{
		Action: enums.AuditActionLogout,
		Status: enums.AuditStatusSuccess,
	}); !errors.Is(err, wantErr) {
		t.Fatalf("expected repo error, got %v", err)
	}
}

func TestService_ListBuildsNextCursor(t *testing.T) {
	now := time.Now().UTC()
	rows := make([]models.AuditLog, 0, 3)
	for i := 0; i < 3; i++ {
		rows = append(rows, models.AuditLog{
			ID:        uuid.New(),
			Action:    enums.AuditActionLogin,
			Status:    enums.AuditStatusFailed,
			CreatedAt: now.Add(-time.Duration(i) * time.Minute),
		})
	}

	repo := &fakeRepository{
		listFn: func(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.AuditLog, error) {
			return rows, nil
		},
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	page, err := svc.List(context.Background(), ListFilter{}, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}
	if page.NextCursor == "" {
		t.Fatal("expected next cursor when more rows exist")
	}

	cursor, err := pagination.ParseCursor(page.NextCursor)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if cursor.ID != rows[1].ID {
		t.Fatalf("cursor should point at last visible row")
	}
}
