package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"discograph/api/internal/config"
	"discograph/api/internal/correction"
	"discograph/api/internal/store"
)

// fakeStore implements dataStore in memory. The transaction type shares
// the same state; commit semantics are not simulated because the service
// under test never relies on rollback to undo writes in these scenarios.
type fakeStore struct {
	corrections map[int64]correction.Correction
	revisions   []correction.Revision
	approvers   map[int64][]int64
	snapshots   map[int64]correction.Snapshot
	applied     []int64

	nextCorrectionID int64
	nextRevisionID   int64
	nextEntityID     int64
	nextHistoryID    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		corrections: map[int64]correction.Correction{},
		approvers:   map[int64][]int64{},
		snapshots:   map[int64]correction.Snapshot{},
	}
}

func (f *fakeStore) seedCorrection(c correction.Correction) correction.Correction {
	f.nextCorrectionID++
	c.ID = f.nextCorrectionID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	f.corrections[c.ID] = c
	return c
}

func (f *fakeStore) seedRevision(correctionID, authorID int64, snapshot correction.Snapshot) correction.Revision {
	f.nextHistoryID++
	f.nextRevisionID++
	rev := correction.Revision{
		ID:              f.nextRevisionID,
		CorrectionID:    correctionID,
		EntityHistoryID: f.nextHistoryID,
		AuthorID:        authorID,
		CreatedAt:       time.Now(),
	}
	f.revisions = append(f.revisions, rev)
	if snapshot != nil {
		f.snapshots[rev.EntityHistoryID] = snapshot
	}
	return rev
}

func (f *fakeStore) revisionsOf(correctionID int64) []correction.Revision {
	var out []correction.Revision
	for _, rev := range f.revisions {
		if rev.CorrectionID == correctionID {
			out = append(out, rev)
		}
	}
	return out
}

func (f *fakeStore) Begin(ctx context.Context) (correctionTx, error) {
	return &fakeTx{state: f}, nil
}

func (f *fakeStore) GetCorrection(ctx context.Context, id int64) (correction.Correction, error) {
	c, ok := f.corrections[id]
	if !ok {
		return correction.Correction{}, correction.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) LatestRevision(ctx context.Context, correctionID int64) (correction.Revision, error) {
	return latestRevisionIn(f.revisions, correctionID)
}

func (f *fakeStore) ListRevisions(ctx context.Context, correctionID int64) ([]correction.Revision, error) {
	return f.revisionsOf(correctionID), nil
}

func (f *fakeStore) FindPendingCorrection(ctx context.Context, entityType correction.EntityType, entityID int64) (correction.Correction, error) {
	for _, c := range f.corrections {
		if c.EntityType == entityType && c.EntityID == entityID && c.Status == correction.StatusPending {
			return c, nil
		}
	}
	return correction.Correction{}, correction.ErrNotFound
}

func (f *fakeStore) BaselineApproved(ctx context.Context, target correction.Correction) (correction.Correction, error) {
	var best correction.Correction
	found := false
	for _, c := range f.corrections {
		if c.ID == target.ID || c.EntityType != target.EntityType || c.EntityID != target.EntityID {
			continue
		}
		if c.Status != correction.StatusApproved || c.HandledAt == nil {
			continue
		}
		if target.HandledAt != nil && !c.HandledAt.Before(*target.HandledAt) {
			continue
		}
		if !found || c.HandledAt.After(*best.HandledAt) {
			best = c
			found = true
		}
	}
	if !found {
		// Wrapped like storage errors arrive in practice.
		return correction.Correction{}, fmt.Errorf("resolve baseline: %w", correction.ErrNotFound)
	}
	return best, nil
}

func (f *fakeStore) SnapshotForHistory(ctx context.Context, entityType correction.EntityType, historyID int64) (correction.Snapshot, error) {
	snap, ok := f.snapshots[historyID]
	if !ok {
		return nil, correction.ErrNotFound
	}
	return snap, nil
}

func (f *fakeStore) ListArtists(ctx context.Context, params store.ListParams) ([]store.ArtistRow, *int64, error) {
	return nil, nil, nil
}

func (f *fakeStore) ListTags(ctx context.Context, params store.ListParams) ([]store.TagRow, *int64, error) {
	return nil, nil, nil
}

func (f *fakeStore) CreateUser(ctx context.Context, username, email, passwordHash, role string) (store.User, error) {
	return store.User{ID: 1, Username: username, Email: email, Role: role}, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	return store.User{}, correction.ErrNotFound
}

func (f *fakeStore) GetUserByID(ctx context.Context, id int64) (store.User, error) {
	return store.User{ID: id, Username: "user", Email: "user@example.com", Role: "editor"}, nil
}

func (f *fakeStore) EnsureAdmin(ctx context.Context, username, email, passwordHash string) error {
	return nil
}

func (f *fakeStore) ArtistExists(ctx context.Context, artistID int64) (bool, error) {
	return false, nil
}

func (f *fakeStore) InsertArtistImage(ctx context.Context, artistID int64, objectKey, mimeType string, uploadedBy int64) (store.ArtistImage, error) {
	return store.ArtistImage{}, nil
}

func (f *fakeStore) ListArtistImages(ctx context.Context, artistID int64) ([]store.ArtistImage, error) {
	return nil, nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

type fakeTx struct {
	state *fakeStore
}

func (t *fakeTx) InsertEntity(ctx context.Context, payload correction.Payload) (int64, error) {
	t.state.nextEntityID++
	return t.state.nextEntityID, nil
}

func (t *fakeTx) InsertHistory(ctx context.Context, entityID int64, payload correction.Payload) (int64, error) {
	t.state.nextHistoryID++
	return t.state.nextHistoryID, nil
}

func (t *fakeTx) LockCorrection(ctx context.Context, id int64) (correction.Correction, error) {
	c, ok := t.state.corrections[id]
	if !ok {
		return correction.Correction{}, correction.ErrNotFound
	}
	return c, nil
}

func (t *fakeTx) LockLatestCorrection(ctx context.Context, entityType correction.EntityType, entityID int64) (correction.Correction, error) {
	var latest correction.Correction
	found := false
	for _, c := range t.state.corrections {
		if c.EntityType != entityType || c.EntityID != entityID {
			continue
		}
		if !found || c.ID > latest.ID {
			latest = c
			found = true
		}
	}
	if !found {
		return correction.Correction{}, correction.ErrNotFound
	}
	return latest, nil
}

func (t *fakeTx) InsertCorrection(ctx context.Context, entityType correction.EntityType, entityID int64, ctype correction.Type, status correction.Status, description string) (int64, error) {
	c := correction.Correction{
		EntityID:    entityID,
		EntityType:  entityType,
		Type:        ctype,
		Status:      status,
		Description: description,
		CreatedAt:   time.Now(),
	}
	if status == correction.StatusApproved {
		now := time.Now()
		c.HandledAt = &now
	}
	return t.state.seedCorrection(c).ID, nil
}

func (t *fakeTx) AppendRevision(ctx context.Context, correctionID, historyID, authorID int64, description string) (int64, error) {
	t.state.nextRevisionID++
	t.state.revisions = append(t.state.revisions, correction.Revision{
		ID:              t.state.nextRevisionID,
		CorrectionID:    correctionID,
		EntityHistoryID: historyID,
		AuthorID:        authorID,
		Description:     description,
		CreatedAt:       time.Now(),
	})
	return t.state.nextRevisionID, nil
}

func (t *fakeTx) IsCorrectionAuthor(ctx context.Context, correctionID, userID int64) (bool, error) {
	for _, rev := range t.state.revisions {
		if rev.CorrectionID == correctionID && rev.AuthorID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTx) ReopenCorrection(ctx context.Context, correctionID int64) error {
	c := t.state.corrections[correctionID]
	c.Status = correction.StatusPending
	c.HandledAt = nil
	t.state.corrections[correctionID] = c
	return nil
}

func (t *fakeTx) MarkApproved(ctx context.Context, correctionID int64) error {
	c := t.state.corrections[correctionID]
	c.Status = correction.StatusApproved
	now := time.Now()
	c.HandledAt = &now
	t.state.corrections[correctionID] = c
	return nil
}

func (t *fakeTx) RecordApprover(ctx context.Context, correctionID, userID int64) error {
	t.state.approvers[correctionID] = append(t.state.approvers[correctionID], userID)
	return nil
}

func (t *fakeTx) LatestRevision(ctx context.Context, correctionID int64) (correction.Revision, error) {
	return latestRevisionIn(t.state.revisions, correctionID)
}

func (t *fakeTx) ApplyHistory(ctx context.Context, entityType correction.EntityType, entityID, historyID int64) error {
	t.state.applied = append(t.state.applied, historyID)
	return nil
}

func (t *fakeTx) Commit() error   { return nil }
func (t *fakeTx) Rollback() error { return nil }

func latestRevisionIn(revisions []correction.Revision, correctionID int64) (correction.Revision, error) {
	var latest correction.Revision
	found := false
	for _, rev := range revisions {
		if rev.CorrectionID != correctionID {
			continue
		}
		if !found || rev.EntityHistoryID > latest.EntityHistoryID {
			latest = rev
			found = true
		}
	}
	if !found {
		return correction.Revision{}, correction.ErrNotFound
	}
	return latest, nil
}

func newTestService(f *fakeStore) *Service {
	cfg := config.Config{JWTSecret: "test-secret", AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour}
	return newService(cfg, f, nil, nil, nil, nil)
}

func validArtist(name string) *correction.NewArtist {
	return &correction.NewArtist{Name: name, ArtistType: "Solo"}
}

func editorSession(userID int64) Session {
	return Session{UserID: userID, UserName: "editor", Role: "editor"}
}

func moderatorSession(userID int64) Session {
	return Session{UserID: userID, UserName: "mod", Role: "moderator"}
}

func TestSubmitCreateAutoApproves(t *testing.T) {
	f := newFakeStore()
	svc := newTestService(f)

	result, err := svc.SubmitCreate(context.Background(), editorSession(1), validArtist("Ling Tosite Sigure"), "initial entry")
	if err != nil {
		t.Fatal(err)
	}

	c := f.corrections[result.CorrectionID]
	if c.Status != correction.StatusApproved {
		t.Fatalf("create must auto-approve, got status %q", c.Status)
	}
	if c.HandledAt == nil {
		t.Fatal("approved correction must carry a handled timestamp")
	}
	if c.Type != correction.TypeCreate {
		t.Fatalf("unexpected correction type %q", c.Type)
	}
	revs := f.revisionsOf(result.CorrectionID)
	if len(revs) != 1 {
		t.Fatalf("expected 1 revision, got %d", len(revs))
	}
	if len(f.applied) != 1 || f.applied[0] != revs[0].EntityHistoryID {
		t.Fatalf("history %d must be applied, applied=%v", revs[0].EntityHistoryID, f.applied)
	}
	if got := f.approvers[result.CorrectionID]; len(got) != 1 || got[0] != 1 {
		t.Fatalf("creator must be recorded as approver, got %v", got)
	}
}

func TestSubmitCreateRejectsInvalidPayload(t *testing.T) {
	f := newFakeStore()
	svc := newTestService(f)

	_, err := svc.SubmitCreate(context.Background(), editorSession(1), &correction.NewArtist{Name: "x", ArtistType: "Band"}, "")
	var verr *correction.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.corrections) != 0 {
		t.Fatal("invalid payload must not reach storage")
	}
}

func TestSubmitEditAccumulatesRevisions(t *testing.T) {
	f := newFakeStore()
	svc := newTestService(f)
	ctx := context.Background()

	pending := f.seedCorrection(correction.Correction{
		EntityID:   9,
		EntityType: correction.EntityArtist,
		Type:       correction.TypeEdit,
		Status:     correction.StatusPending,
	})
	f.seedRevision(pending.ID, 1, nil)

	for _, name := range []string{"Boris (JP)", "Boris"} {
		next, err := svc.SubmitEdit(ctx, editorSession(1), 9, validArtist(name), "refine")
		if err != nil {
			t.Fatal(err)
		}
		if next.CorrectionID != pending.ID {
			t.Fatal("followup edits must land on the open correction")
		}
	}

	if f.corrections[pending.ID].Status != correction.StatusPending {
		t.Fatal("accumulating revisions must keep the correction pending")
	}
	revs := f.revisionsOf(pending.ID)
	if len(revs) != 3 {
		t.Fatalf("expected 3 revisions on the open correction, got %d", len(revs))
	}
}

func TestSubmitEditAlreadyApproved(t *testing.T) {
	f := newFakeStore()
	svc := newTestService(f)
	ctx := context.Background()

	created, err := svc.SubmitCreate(ctx, editorSession(1), validArtist("Boris"), "initial")
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.SubmitEdit(ctx, editorSession(1), created.EntityID, validArtist("Boris (JP)"), "disambiguate")
	if !errors.Is(err, correction.ErrAlreadyApproved) {
		t.Fatalf("editing an approved entity must conflict, got %v", err)
	}
	if len(f.corrections) != 1 {
		t.Fatalf("refused edit must not open a correction, have %d", len(f.corrections))
	}
	if len(f.revisions) != 1 {
		t.Fatalf("refused edit must not append a revision, have %d", len(f.revisions))
	}
}

func TestSubmitEditPendingAuthorization(t *testing.T) {
	f := newFakeStore()
	svc := newTestService(f)
	ctx := context.Background()

	opened := f.seedCorrection(correction.Correction{
		EntityID:   4,
		EntityType: correction.EntityArtist,
		Type:       correction.TypeEdit,
		Status:     correction.StatusPending,
	})
	f.seedRevision(opened.ID, 1, nil)

	_, err := svc.SubmitEdit(ctx, editorSession(2), 4, validArtist("ENVY"), "hijack")
	if !errors.Is(err, correction.ErrUnauthorized) {
		t.Fatalf("another editor must not touch a pending correction, got %v", err)
	}

	if _, err := svc.SubmitEdit(ctx, editorSession(1), 4, validArtist("envy"), "casing"); err != nil {
		t.Fatalf("author must be allowed: %v", err)
	}

	result, err := svc.SubmitEdit(ctx, moderatorSession(3), 4, validArtist("Envy (JP)"), "moderate")
	if err != nil {
		t.Fatalf("moderator must be allowed: %v", err)
	}
	if result.CorrectionID != opened.ID {
		t.Fatal("moderator revision must land on the open correction")
	}
}

func TestSubmitEditReopensRejected(t *testing.T) {
	f := newFakeStore()
	svc := newTestService(f)
	ctx := context.Background()

	rejected := f.seedCorrection(correction.Correction{
		EntityID:   7,
		EntityType: correction.EntityArtist,
		Type:       correction.TypeEdit,
		Status:     correction.StatusRejected,
	})
	f.seedRevision(rejected.ID, 1, nil)

	result, err := svc.SubmitEdit(ctx, editorSession(2), 7, validArtist("Toe"), "second attempt")
	if err != nil {
		t.Fatal(err)
	}
	if result.CorrectionID != rejected.ID {
		t.Fatal("editing a rejected entity must reopen its correction")
	}
	if f.corrections[rejected.ID].Status != correction.StatusPending {
		t.Fatal("reopened correction must be pending")
	}
	if got := len(f.revisionsOf(rejected.ID)); got != 2 {
		t.Fatalf("expected 2 revisions after reopen, got %d", got)
	}
}

func TestSubmitEditUnknownEntity(t *testing.T) {
	f := newFakeStore()
	svc := newTestService(f)

	_, err := svc.SubmitEdit(context.Background(), editorSession(1), 99, validArtist("Nothing"), "")
	if !errors.Is(err, correction.ErrNotFound) {
		t.Fatalf("expected not found for an entity with no corrections, got %v", err)
	}
}

func TestApproveAppliesLatestRevision(t *testing.T) {
	f := newFakeStore()
	svc := newTestService(f)
	ctx := context.Background()

	opened := f.seedCorrection(correction.Correction{
		EntityID:   6,
		EntityType: correction.EntityArtist,
		Type:       correction.TypeEdit,
		Status:     correction.StatusPending,
	})
	f.seedRevision(opened.ID, 1, nil)
	if _, err := svc.SubmitEdit(ctx, editorSession(1), 6, validArtist("MONO (JP)"), "second"); err != nil {
		t.Fatal(err)
	}

	appliedBefore := len(f.applied)
	if err := svc.Approve(ctx, moderatorSession(5), opened.ID); err != nil {
		t.Fatal(err)
	}

	latest, err := latestRevisionIn(f.revisions, opened.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.applied) != appliedBefore+1 || f.applied[len(f.applied)-1] != latest.EntityHistoryID {
		t.Fatalf("approval must apply the newest revision %d, applied=%v", latest.EntityHistoryID, f.applied)
	}
	if f.corrections[opened.ID].Status != correction.StatusApproved {
		t.Fatal("correction must be approved")
	}
	if got := f.approvers[opened.ID]; len(got) != 1 || got[0] != 5 {
		t.Fatalf("approver must be recorded, got %v", got)
	}
}

func TestApproveRequiresModerator(t *testing.T) {
	f := newFakeStore()
	svc := newTestService(f)

	pending := f.seedCorrection(correction.Correction{
		EntityID:   1,
		EntityType: correction.EntityTag,
		Status:     correction.StatusPending,
	})
	if err := svc.Approve(context.Background(), editorSession(1), pending.ID); !errors.Is(err, correction.ErrUnauthorized) {
		t.Fatalf("editor must not approve, got %v", err)
	}
}

func TestApproveAlreadyApproved(t *testing.T) {
	f := newFakeStore()
	svc := newTestService(f)

	now := time.Now()
	approved := f.seedCorrection(correction.Correction{
		EntityID:   1,
		EntityType: correction.EntityTag,
		Status:     correction.StatusApproved,
		HandledAt:  &now,
	})
	if err := svc.Approve(context.Background(), moderatorSession(5), approved.ID); !errors.Is(err, correction.ErrAlreadyApproved) {
		t.Fatalf("expected already approved, got %v", err)
	}
}

func TestApproveRejectedCorrection(t *testing.T) {
	f := newFakeStore()
	svc := newTestService(f)

	rejected := f.seedCorrection(correction.Correction{
		EntityID:   1,
		EntityType: correction.EntityTag,
		Status:     correction.StatusRejected,
	})
	f.seedRevision(rejected.ID, 1, nil)

	err := svc.Approve(context.Background(), moderatorSession(5), rejected.ID)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 409 {
		t.Fatalf("expected 409 conflict for a rejected correction, got %v", err)
	}
	if f.corrections[rejected.ID].Status != correction.StatusRejected {
		t.Fatal("refused approval must leave the correction rejected")
	}
	if len(f.applied) != 0 {
		t.Fatalf("refused approval must not apply history, applied=%v", f.applied)
	}
}

func TestRejectNotImplemented(t *testing.T) {
	svc := newTestService(newFakeStore())
	if err := svc.Reject(context.Background(), moderatorSession(5), 1); !errors.Is(err, correction.ErrNotImplemented) {
		t.Fatalf("expected not implemented, got %v", err)
	}
}

func TestGetDiffWithoutBaseline(t *testing.T) {
	f := newFakeStore()
	svc := newTestService(f)

	target := f.seedCorrection(correction.Correction{
		EntityID:   3,
		EntityType: correction.EntityTag,
		Status:     correction.StatusPending,
	})
	f.seedRevision(target.ID, 1, correction.Snapshot{"name": "Shoegaze", "type": "Genre"})

	diff, err := svc.GetDiff(context.Background(), target.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff.BaseCorrectionID != nil {
		t.Fatal("diff without predecessor must have no baseline")
	}
	if len(diff.Changes) != 2 {
		t.Fatalf("expected 2 introduced fields, got %d", len(diff.Changes))
	}
	for _, change := range diff.Changes {
		if change.Before != nil {
			t.Fatalf("field %s must be introduced, had before value", change.Path)
		}
	}
}

func TestGetDiffAgainstBaseline(t *testing.T) {
	f := newFakeStore()
	svc := newTestService(f)

	earlier := time.Now().Add(-time.Hour)
	base := f.seedCorrection(correction.Correction{
		EntityID:   3,
		EntityType: correction.EntityTag,
		Status:     correction.StatusApproved,
		HandledAt:  &earlier,
	})
	f.seedRevision(base.ID, 1, correction.Snapshot{"name": "Shoegaze", "type": "Genre"})

	target := f.seedCorrection(correction.Correction{
		EntityID:   3,
		EntityType: correction.EntityTag,
		Status:     correction.StatusPending,
	})
	f.seedRevision(target.ID, 2, correction.Snapshot{"name": "Shoegazing", "type": "Genre"})

	diff, err := svc.GetDiff(context.Background(), target.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff.BaseCorrectionID == nil || *diff.BaseCorrectionID != base.ID {
		t.Fatal("diff must resolve the approved predecessor as baseline")
	}
	if len(diff.Changes) != 1 {
		t.Fatalf("expected 1 changed field, got %d", len(diff.Changes))
	}
	if diff.Changes[0].Path != "name" {
		t.Fatalf("unexpected change path %s", diff.Changes[0].Path)
	}
}

func TestCompareRejectsDifferentEntities(t *testing.T) {
	f := newFakeStore()
	svc := newTestService(f)

	a := f.seedCorrection(correction.Correction{EntityID: 1, EntityType: correction.EntityTag, Status: correction.StatusPending})
	f.seedRevision(a.ID, 1, correction.Snapshot{"name": "a"})
	b := f.seedCorrection(correction.Correction{EntityID: 2, EntityType: correction.EntityTag, Status: correction.StatusPending})
	f.seedRevision(b.ID, 1, correction.Snapshot{"name": "b"})

	_, err := svc.Compare(context.Background(), a.ID, b.ID)
	var verr *correction.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for cross-entity compare, got %v", err)
	}
}
