package builds

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rigbuilderhq/rigbuilder-backend/internal/audit"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db/models"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
	pkgerrors "github.com/rigbuilderhq/rigbuilder-backend/pkg/errors"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/pagination"
)

type fakeBuildStore struct {
	builds  map[uuid.UUID]*models.Build
	deleted []uuid.UUID
}

func newFakeBuildStore(builds ...*models.Build) *fakeBuildStore {
	store := &fakeBuildStore{builds: make(map[uuid.UUID]*models.Build)}
	for _, build := range builds {
		store.builds[build.ID] = build
	}
	return store
}

func (f *fakeBuildStore) FindByID(_ context.Context, id uuid.UUID) (*models.Build, error) {
	build, ok := f.builds[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return build, nil
}

func (f *fakeBuildStore) ListByUser(_ context.Context, userID uuid.UUID, archived bool, _ pagination.Params) ([]models.Build, error) {
	var out []models.Build
	for _, build := range f.builds {
		if build.UserID == userID && build.IsArchived == archived {
			out = append(out, *build)
		}
	}
	return out, nil
}

func (f *fakeBuildStore) SetArchived(_ context.Context, id uuid.UUID, archived bool) error {
	build, ok := f.builds[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	build.IsArchived = archived
	return nil
}

func (f *fakeBuildStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.builds, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeRecorder struct {
	entries []audit.RecordInput
}

func (f *fakeRecorder) Record(_ context.Context, input audit.RecordInput) (*models.AuditLog, error) {
	f.entries = append(f.entries, input)
	return &models.AuditLog{}, nil
}

type fakePrefill struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newFakePrefill() *fakePrefill {
	return &fakePrefill{values: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakePrefill) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	default:
		return errors.New("unexpected value type")
	}
	f.ttls[key] = ttl
	return nil
}

func (f *fakePrefill) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	value, ok := f.values[key]
	if !ok {
		return "", errors.New("redis: nil")
	}
	return value, nil
}

func (f *fakePrefill) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakePrefill) ReorderPrefillKey(userID string) string {
	return "rb:reorder_prefill:" + userID
}

func newTestService(t *testing.T, store *fakeBuildStore) (Service, *fakeRecorder, *fakePrefill) {
	t.Helper()
	recorder := &fakeRecorder{}
	prefill := newFakePrefill()
	svc, err := NewService(store, recorder, prefill, 15*time.Minute)
	require.NoError(t, err)
	return svc, recorder, prefill
}

func testBuild(userID uuid.UUID, status enums.BuildStatus, archived bool) *models.Build {
	return &models.Build{
		ID:         uuid.New(),
		UserID:     userID,
		TotalPrice: decimal.RequireFromString("1299.98"),
		Status:     status,
		IsArchived: archived,
		Items: []models.BuildItem{
			{
				ID:          uuid.New(),
				ProductID:   uuid.New(),
				Quantity:    2,
				PriceAtTime: decimal.RequireFromString("649.99"),
			},
		},
	}
}

func errCode(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected a typed error, got %v", err)
	return typed.Code()
}

func TestServiceDeleteRequiresConfirmation(t *testing.T) {
	owner := Actor{ID: uuid.New(), Role: enums.RoleStaff}
	build := testBuild(owner.ID, enums.BuildStatusCheckedOut, true)
	svc, recorder, _ := newTestService(t, newFakeBuildStore(build))

	err := svc.Delete(context.Background(), owner, build.ID, "delete")
	assert.Equal(t, pkgerrors.CodeValidation, errCode(t, err))

	require.Len(t, recorder.entries, 1)
	entry := recorder.entries[0]
	assert.Equal(t, enums.AuditActionDeleteBuild, entry.Action)
	assert.Equal(t, enums.AuditStatusFailed, entry.Status)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal(entry.Metadata, &metadata))
	assert.Equal(t, "missing_confirmation", metadata["reason"])
}

func TestServiceDeleteArchivedFirst(t *testing.T) {
	owner := Actor{ID: uuid.New(), Role: enums.RoleStaff}
	build := testBuild(owner.ID, enums.BuildStatusCheckedOut, false)
	store := newFakeBuildStore(build)
	svc, recorder, _ := newTestService(t, store)

	err := svc.Delete(context.Background(), owner, build.ID, DeleteConfirmation)
	assert.Equal(t, pkgerrors.CodeStateConflict, errCode(t, err))
	assert.Empty(t, store.deleted)

	require.Len(t, recorder.entries, 1)
	entry := recorder.entries[0]
	assert.Equal(t, enums.AuditActionDeleteBuild, entry.Action)
	assert.Equal(t, enums.AuditStatusFailed, entry.Status)
	assert.Equal(t, build.ID.String(), entry.Identifier)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal(entry.Metadata, &metadata))
	assert.Equal(t, "not_archived", metadata["reason"])
}

func TestServiceDeleteAuditsSuccess(t *testing.T) {
	owner := Actor{ID: uuid.New(), Role: enums.RoleStaff}
	build := testBuild(owner.ID, enums.BuildStatusCheckedOut, true)
	store := newFakeBuildStore(build)
	svc, recorder, _ := newTestService(t, store)

	require.NoError(t, svc.Delete(context.Background(), owner, build.ID, DeleteConfirmation))
	assert.Equal(t, []uuid.UUID{build.ID}, store.deleted)

	require.Len(t, recorder.entries, 1)
	entry := recorder.entries[0]
	assert.Equal(t, enums.AuditStatusSuccess, entry.Status)
	assert.Equal(t, build.ID.String(), entry.Identifier)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, owner.ID, *entry.UserID)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal(entry.Metadata, &metadata))
	assert.Equal(t, build.UserID.String(), metadata["target_user"])
	assert.Equal(t, "1299.98", metadata["total_price"])
}

func TestServiceOwnershipHidesForeignBuilds(t *testing.T) {
	owner := Actor{ID: uuid.New(), Role: enums.RoleStaff}
	stranger := Actor{ID: uuid.New(), Role: enums.RoleStaff}
	admin := Actor{ID: uuid.New(), Role: enums.RoleAdmin}
	build := testBuild(owner.ID, enums.BuildStatusCheckedOut, false)
	svc, _, _ := newTestService(t, newFakeBuildStore(build))

	_, err := svc.Get(context.Background(), stranger, build.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, errCode(t, err))

	dto, err := svc.Get(context.Background(), admin, build.ID)
	require.NoError(t, err)
	assert.Equal(t, build.ID, dto.ID)
	assert.Equal(t, owner.ID, dto.UserID)
}

func TestServiceArchiveRestoreStateChecks(t *testing.T) {
	owner := Actor{ID: uuid.New(), Role: enums.RoleStaff}
	build := testBuild(owner.ID, enums.BuildStatusCheckedOut, false)
	svc, _, _ := newTestService(t, newFakeBuildStore(build))
	ctx := context.Background()

	err := svc.Restore(ctx, owner, build.ID)
	assert.Equal(t, pkgerrors.CodeStateConflict, errCode(t, err))

	require.NoError(t, svc.Archive(ctx, owner, build.ID))
	err = svc.Archive(ctx, owner, build.ID)
	assert.Equal(t, pkgerrors.CodeStateConflict, errCode(t, err))

	require.NoError(t, svc.Restore(ctx, owner, build.ID))
}

func TestServiceReorderStagesPrefill(t *testing.T) {
	owner := Actor{ID: uuid.New(), Role: enums.RoleStaff}
	build := testBuild(owner.ID, enums.BuildStatusCheckedOut, false)
	svc, _, prefill := newTestService(t, newFakeBuildStore(build))

	items, err := svc.Reorder(context.Background(), owner, build.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, build.Items[0].ProductID, items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)

	key := prefill.ReorderPrefillKey(owner.ID.String())
	assert.Equal(t, 15*time.Minute, prefill.ttls[key])

	var staged []ReorderItemDTO
	require.NoError(t, json.Unmarshal([]byte(prefill.values[key]), &staged))
	assert.Equal(t, items, staged)
}

func TestServiceReorderRejectsDraftsAndForeignBuilds(t *testing.T) {
	owner := Actor{ID: uuid.New(), Role: enums.RoleStaff}
	admin := Actor{ID: uuid.New(), Role: enums.RoleAdmin}
	draft := testBuild(owner.ID, enums.BuildStatusDraft, false)
	svc, _, _ := newTestService(t, newFakeBuildStore(draft))
	ctx := context.Background()

	_, err := svc.Reorder(ctx, owner, draft.ID)
	assert.Equal(t, pkgerrors.CodeStateConflict, errCode(t, err))

	// Admins can read anyone's builds but only the owner stages a reorder.
	_, err = svc.Reorder(ctx, admin, draft.ID)
	assert.Equal(t, pkgerrors.CodeForbidden, errCode(t, err))
}

func TestServicePrefillReadsAndClears(t *testing.T) {
	owner := Actor{ID: uuid.New(), Role: enums.RoleStaff}
	build := testBuild(owner.ID, enums.BuildStatusCheckedOut, false)
	svc, _, prefill := newTestService(t, newFakeBuildStore(build))
	ctx := context.Background()

	_, err := svc.Reorder(ctx, owner, build.ID)
	require.NoError(t, err)

	items, err := svc.Prefill(ctx, owner)
	require.NoError(t, err)
	require.Len(t, items, 1)

	items, err = svc.Prefill(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotContains(t, prefill.values, prefill.ReorderPrefillKey(owner.ID.String()))
}

func TestServiceBulkDeleteCountsBlocked(t *testing.T) {
	owner := Actor{ID: uuid.New(), Role: enums.RoleStaff}
	archived := testBuild(owner.ID, enums.BuildStatusCheckedOut, true)
	active := testBuild(owner.ID, enums.BuildStatusCheckedOut, false)
	store := newFakeBuildStore(archived, active)
	svc, _, _ := newTestService(t, store)

	result, err := svc.BulkDelete(context.Background(), owner, []uuid.UUID{archived.ID, active.ID}, DeleteConfirmation)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Changed)
	assert.Equal(t, 1, result.Blocked)
	require.Len(t, result.Reasons, 1)
	assert.Contains(t, result.Reasons[0], "archived before deletion")
}

func TestNewServiceValidatesDeps(t *testing.T) {
	recorder := &fakeRecorder{}
	prefill := newFakePrefill()
	store := newFakeBuildStore()

	_, err := NewService(nil, recorder, prefill, time.Minute)
	assert.Error(t, err)
	_, err = NewService(store, nil, prefill, time.Minute)
	assert.Error(t, err)
	_, err = NewService(store, recorder, nil, time.Minute)
	assert.Error(t, err)
	_, err = NewService(store, recorder, prefill, 0)
	assert.Error(t, err)
}
