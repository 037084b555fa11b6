package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"discograph/api/internal/auth"
	"discograph/api/internal/authpw"
	"discograph/api/internal/config"
	"discograph/api/internal/correction"
	"discograph/api/internal/email"
	"discograph/api/internal/images"
	"discograph/api/internal/rbac"
	"discograph/api/internal/search"
	"discograph/api/internal/store"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       int64
	UserName     string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

// correctionTx is one transaction of the correction engine. Every
// submit and approve operation runs inside exactly one of these.
type correctionTx interface {
	InsertEntity(ctx context.Context, payload correction.Payload) (int64, error)
	InsertHistory(ctx context.Context, entityID int64, payload correction.Payload) (int64, error)
	LockCorrection(ctx context.Context, id int64) (correction.Correction, error)
	LockLatestCorrection(ctx context.Context, entityType correction.EntityType, entityID int64) (correction.Correction, error)
	InsertCorrection(ctx context.Context, entityType correction.EntityType, entityID int64, ctype correction.Type, status correction.Status, description string) (int64, error)
	AppendRevision(ctx context.Context, correctionID, historyID, authorID int64, description string) (int64, error)
	IsCorrectionAuthor(ctx context.Context, correctionID, userID int64) (bool, error)
	ReopenCorrection(ctx context.Context, correctionID int64) error
	MarkApproved(ctx context.Context, correctionID int64) error
	RecordApprover(ctx context.Context, correctionID, userID int64) error
	LatestRevision(ctx context.Context, correctionID int64) (correction.Revision, error)
	ApplyHistory(ctx context.Context, entityType correction.EntityType, entityID, historyID int64) error
	Commit() error
	Rollback() error
}

type dataStore interface {
	Begin(ctx context.Context) (correctionTx, error)
	GetCorrection(ctx context.Context, id int64) (correction.Correction, error)
	LatestRevision(ctx context.Context, correctionID int64) (correction.Revision, error)
	ListRevisions(ctx context.Context, correctionID int64) ([]correction.Revision, error)
	FindPendingCorrection(ctx context.Context, entityType correction.EntityType, entityID int64) (correction.Correction, error)
	BaselineApproved(ctx context.Context, target correction.Correction) (correction.Correction, error)
	SnapshotForHistory(ctx context.Context, entityType correction.EntityType, historyID int64) (correction.Snapshot, error)
	ListArtists(ctx context.Context, params store.ListParams) ([]store.ArtistRow, *int64, error)
	ListTags(ctx context.Context, params store.ListParams) ([]store.TagRow, *int64, error)
	CreateUser(ctx context.Context, username, email, passwordHash, role string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, id int64) (store.User, error)
	EnsureAdmin(ctx context.Context, username, email, passwordHash string) error
	ArtistExists(ctx context.Context, artistID int64) (bool, error)
	InsertArtistImage(ctx context.Context, artistID int64, objectKey, mimeType string, uploadedBy int64) (store.ArtistImage, error)
	ListArtistImages(ctx context.Context, artistID int64) ([]store.ArtistImage, error)
	Ping(ctx context.Context) error
}

type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	authpw   *authpw.Service
	search   *search.Service
	images   *images.Service
	email    *email.Service
}

// storeAdapter narrows *store.PostgresStore to the dataStore interface;
// Begin returns an interface, so the concrete method needs this shim.
type storeAdapter struct {
	*store.PostgresStore
}

func (a storeAdapter) Begin(ctx context.Context) (correctionTx, error) {
	return a.PostgresStore.Begin(ctx)
}

func New(cfg config.Config, pg *store.PostgresStore, sessions sessionStore, searchSvc *search.Service, imageSvc *images.Service, emailSvc *email.Service) *Service {
	adapter := storeAdapter{pg}
	return newService(cfg, adapter, sessions, searchSvc, imageSvc, emailSvc)
}

func newService(cfg config.Config, ds dataStore, sessions sessionStore, searchSvc *search.Service, imageSvc *images.Service, emailSvc *email.Service) *Service {
	return &Service{
		cfg:      cfg,
		store:    ds,
		sessions: sessions,
		authpw:   authpw.NewService(ds),
		search:   searchSvc,
		images:   imageSvc,
		email:    emailSvc,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap ensures the admin account exists and warms the search index.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.cfg.AdminPassword != "" {
		hash, err := authpw.HashPassword(s.cfg.AdminPassword)
		if err != nil {
			return err
		}
		if err := s.store.EnsureAdmin(ctx, s.cfg.AdminUsername, s.cfg.AdminEmail, hash); err != nil {
			return err
		}
	}
	if s.search != nil {
		go s.search.ReindexAllFromPG(context.Background())
	}
	return nil
}

// SubmitCreate proposes a new entity. The first creation is approved on
// the spot: the live row, its first history row, an approved correction
// with one revision, and the applied children all land in one tx.
func (s *Service) SubmitCreate(ctx context.Context, session Session, payload correction.Payload, description string) (correction.SubmissionResult, error) {
	var zero correction.SubmissionResult
	if !rbac.Can(rbac.Role(session.Role), rbac.ActionSubmit) {
		return zero, correction.ErrUnauthorized
	}
	if err := payload.Validate(); err != nil {
		return zero, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return zero, err
	}
	defer tx.Rollback()

	entityID, err := tx.InsertEntity(ctx, payload)
	if err != nil {
		return zero, err
	}
	historyID, err := tx.InsertHistory(ctx, entityID, payload)
	if err != nil {
		return zero, err
	}
	correctionID, err := tx.InsertCorrection(ctx, payload.EntityType(), entityID, correction.TypeCreate, correction.StatusApproved, description)
	if err != nil {
		return zero, err
	}
	if _, err := tx.AppendRevision(ctx, correctionID, historyID, session.UserID, description); err != nil {
		return zero, err
	}
	if err := tx.RecordApprover(ctx, correctionID, session.UserID); err != nil {
		return zero, err
	}
	if err := tx.ApplyHistory(ctx, payload.EntityType(), entityID, historyID); err != nil {
		return zero, err
	}
	if err := tx.Commit(); err != nil {
		return zero, err
	}

	s.indexEntity(ctx, payload.EntityType(), entityID, historyID)
	return correction.SubmissionResult{CorrectionID: correctionID, EntityID: entityID}, nil
}

// SubmitEdit proposes new values for an existing entity. The latest
// correction row for the entity decides what happens: a pending one
// gains a revision (author or moderator only), an approved one refuses
// the edit with ErrAlreadyApproved, a rejected one is reopened.
func (s *Service) SubmitEdit(ctx context.Context, session Session, entityID int64, payload correction.Payload, description string) (correction.SubmissionResult, error) {
	var zero correction.SubmissionResult
	if !rbac.Can(rbac.Role(session.Role), rbac.ActionSubmit) {
		return zero, correction.ErrUnauthorized
	}
	if err := payload.Validate(); err != nil {
		return zero, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return zero, err
	}
	defer tx.Rollback()

	latest, err := tx.LockLatestCorrection(ctx, payload.EntityType(), entityID)
	if err != nil {
		return zero, err
	}

	var correctionID int64
	switch latest.Status {
	case correction.StatusPending:
		isAuthor, err := tx.IsCorrectionAuthor(ctx, latest.ID, session.UserID)
		if err != nil {
			return zero, err
		}
		if !isAuthor && !rbac.CanModerate(rbac.Role(session.Role)) {
			return zero, correction.ErrUnauthorized
		}
		historyID, err := tx.InsertHistory(ctx, entityID, payload)
		if err != nil {
			return zero, err
		}
		if _, err := tx.AppendRevision(ctx, latest.ID, historyID, session.UserID, description); err != nil {
			return zero, err
		}
		correctionID = latest.ID

	case correction.StatusApproved:
		// The approved correction is settled; appending to it would
		// rewrite reviewed history. The author must open a brand-new
		// correction instead.
		return zero, correction.ErrAlreadyApproved

	case correction.StatusRejected:
		historyID, err := tx.InsertHistory(ctx, entityID, payload)
		if err != nil {
			return zero, err
		}
		if _, err := tx.AppendRevision(ctx, latest.ID, historyID, session.UserID, description); err != nil {
			return zero, err
		}
		if err := tx.ReopenCorrection(ctx, latest.ID); err != nil {
			return zero, err
		}
		correctionID = latest.ID

	default:
		return zero, fmt.Errorf("unexpected correction status %q", latest.Status)
	}

	if err := tx.Commit(); err != nil {
		return zero, err
	}
	return correction.SubmissionResult{CorrectionID: correctionID, EntityID: entityID}, nil
}

// Approve applies the correction's newest revision to the live entity.
func (s *Service) Approve(ctx context.Context, session Session, correctionID int64) error {
	if !rbac.Can(rbac.Role(session.Role), rbac.ActionApprove) {
		return correction.ErrUnauthorized
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c, err := tx.LockCorrection(ctx, correctionID)
	if err != nil {
		return err
	}
	if c.Status == correction.StatusApproved {
		return correction.ErrAlreadyApproved
	}
	if c.Status == correction.StatusRejected {
		// A rejected correction only comes back through a new revision,
		// which flips it to pending first.
		return domainError(409, "CORRECTION_REJECTED", "Correction was rejected; submit a new revision to reopen it", nil)
	}

	rev, err := tx.LatestRevision(ctx, correctionID)
	if err != nil {
		return err
	}
	if err := tx.ApplyHistory(ctx, c.EntityType, c.EntityID, rev.EntityHistoryID); err != nil {
		return err
	}
	if err := tx.RecordApprover(ctx, correctionID, session.UserID); err != nil {
		return err
	}
	if err := tx.MarkApproved(ctx, correctionID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.indexEntity(ctx, c.EntityType, c.EntityID, rev.EntityHistoryID)
	s.notifyApproval(c, rev)
	return nil
}

// Reject is not yet supported; the status machine reserves the state.
func (s *Service) Reject(ctx context.Context, session Session, correctionID int64) error {
	if !rbac.Can(rbac.Role(session.Role), rbac.ActionApprove) {
		return correction.ErrUnauthorized
	}
	return correction.ErrNotImplemented
}

// GetDiff compares a correction's newest revision against the entity
// state the reviewer would be replacing: the latest approved correction
// handled strictly before it. A correction with no predecessor diffs
// against the empty object, listing every field as introduced.
func (s *Service) GetDiff(ctx context.Context, correctionID int64) (correction.Diff, error) {
	var zero correction.Diff
	target, err := s.store.GetCorrection(ctx, correctionID)
	if err != nil {
		return zero, err
	}
	targetRev, err := s.store.LatestRevision(ctx, correctionID)
	if err != nil {
		return zero, err
	}
	targetSnap, err := s.store.SnapshotForHistory(ctx, target.EntityType, targetRev.EntityHistoryID)
	if err != nil {
		return zero, err
	}

	diff := correction.Diff{
		EntityID:         target.EntityID,
		EntityType:       target.EntityType,
		TargetCorrection: target.ID,
		TargetHistoryID:  targetRev.EntityHistoryID,
	}

	baseSnap := correction.Snapshot{}
	base, err := s.store.BaselineApproved(ctx, target)
	switch {
	case err == nil:
		baseRev, err := s.store.LatestRevision(ctx, base.ID)
		if err != nil {
			return zero, err
		}
		baseSnap, err = s.store.SnapshotForHistory(ctx, base.EntityType, baseRev.EntityHistoryID)
		if err != nil {
			return zero, err
		}
		diff.BaseCorrectionID = &base.ID
		diff.BaseHistoryID = &baseRev.EntityHistoryID
	case errors.Is(err, correction.ErrNotFound):
		// No predecessor; diff against the empty object.
	default:
		return zero, err
	}

	diff.Changes = correction.DiffSnapshots(baseSnap, targetSnap)
	return diff, nil
}

// Compare diffs the newest revisions of two corrections targeting the
// same entity.
func (s *Service) Compare(ctx context.Context, baseID, targetID int64) (correction.Diff, error) {
	var zero correction.Diff
	base, err := s.store.GetCorrection(ctx, baseID)
	if err != nil {
		return zero, err
	}
	target, err := s.store.GetCorrection(ctx, targetID)
	if err != nil {
		return zero, err
	}
	if base.EntityType != target.EntityType || base.EntityID != target.EntityID {
		return zero, &correction.ValidationError{Field: "correction_id", Reason: "corrections target different entities"}
	}

	baseRev, err := s.store.LatestRevision(ctx, baseID)
	if err != nil {
		return zero, err
	}
	targetRev, err := s.store.LatestRevision(ctx, targetID)
	if err != nil {
		return zero, err
	}
	baseSnap, err := s.store.SnapshotForHistory(ctx, base.EntityType, baseRev.EntityHistoryID)
	if err != nil {
		return zero, err
	}
	targetSnap, err := s.store.SnapshotForHistory(ctx, target.EntityType, targetRev.EntityHistoryID)
	if err != nil {
		return zero, err
	}

	return correction.Diff{
		EntityID:         target.EntityID,
		EntityType:       target.EntityType,
		BaseCorrectionID: &base.ID,
		BaseHistoryID:    &baseRev.EntityHistoryID,
		TargetCorrection: target.ID,
		TargetHistoryID:  targetRev.EntityHistoryID,
		Changes:          correction.DiffSnapshots(baseSnap, targetSnap),
	}, nil
}

func (s *Service) GetCorrection(ctx context.Context, id int64) (correction.Correction, error) {
	return s.store.GetCorrection(ctx, id)
}

func (s *Service) PendingCorrection(ctx context.Context, entityType correction.EntityType, entityID int64) (correction.Correction, error) {
	return s.store.FindPendingCorrection(ctx, entityType, entityID)
}

func (s *Service) ListRevisions(ctx context.Context, correctionID int64) ([]correction.Revision, error) {
	return s.store.ListRevisions(ctx, correctionID)
}

func (s *Service) ListArtists(ctx context.Context, params store.ListParams) ([]store.ArtistRow, *int64, error) {
	return s.store.ListArtists(ctx, params)
}

func (s *Service) ListTags(ctx context.Context, params store.ListParams) ([]store.TagRow, *int64, error) {
	return s.store.ListTags(ctx, params)
}

func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

// indexEntity refreshes the search record for an approved entity state.
// Best effort; the live data in Postgres is authoritative.
func (s *Service) indexEntity(ctx context.Context, entityType correction.EntityType, entityID, historyID int64) {
	if s.search == nil {
		return
	}
	snap, err := s.store.SnapshotForHistory(ctx, entityType, historyID)
	if err != nil {
		log.Printf("index %s %d: load snapshot: %v", entityType, entityID, err)
		return
	}
	switch entityType {
	case correction.EntityArtist:
		record := search.ArtistRecord{ID: entityID, Aliases: []string{}}
		record.Name, _ = snap["name"].(string)
		record.ArtistType, _ = snap["artist_type"].(string)
		if aliases, ok := snap["text_alias"].([]any); ok {
			for _, alias := range aliases {
				if text, ok := alias.(string); ok {
					record.Aliases = append(record.Aliases, text)
				}
			}
		}
		s.search.IndexArtist(record)
	case correction.EntityRelease:
		record := search.ReleaseRecord{ID: entityID}
		record.Title, _ = snap["title"].(string)
		record.ReleaseType, _ = snap["release_type"].(string)
		s.search.IndexRelease(record)
	case correction.EntitySong:
		record := search.SongRecord{ID: entityID}
		record.Title, _ = snap["title"].(string)
		s.search.IndexSong(record)
	}
}

// notifyApproval mails every author of the approved correction.
func (s *Service) notifyApproval(c correction.Correction, rev correction.Revision) {
	if s.email == nil || !s.email.IsConfigured() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		author, err := s.store.GetUserByID(ctx, rev.AuthorID)
		if err != nil {
			log.Printf("notify approval %d: load author: %v", c.ID, err)
			return
		}
		if err := s.email.SendApprovalEmail(author.Email, author.Username, string(c.EntityType), c.ID); err != nil {
			log.Printf("notify approval %d: %v", c.ID, err)
		}
	}()
}

// SignUp registers a new editor and opens a session.
func (s *Service) SignUp(ctx context.Context, username, emailAddr, password string) (Session, error) {
	user, err := s.authpw.SignUp(ctx, authpw.SignUpRequest{Username: username, Email: emailAddr, Password: password})
	if err != nil {
		return Session{}, domainError(400, "SIGNUP_FAILED", err.Error(), nil)
	}
	return s.openSession(ctx, user)
}

// SignIn authenticates and opens a session.
func (s *Service) SignIn(ctx context.Context, emailAddr, password string) (Session, error) {
	user, err := s.authpw.SignIn(ctx, authpw.SignInRequest{Email: emailAddr, Password: password})
	if err != nil {
		return Session{}, domainError(401, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}
	return s.openSession(ctx, user)
}

func (s *Service) openSession(ctx context.Context, user store.User) (Session, error) {
	jti := randomToken(8)
	expiresAt := time.Now().Add(s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.Username,
		Role: user.Role,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	refreshToken := randomToken(32)
	if s.sessions != nil {
		refreshExpiry := time.Now().Add(s.cfg.RefreshTTL)
		if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refreshToken), user, refreshExpiry); err != nil {
			return Session{}, err
		}
	}

	return Session{
		Token:        token,
		RefreshToken: refreshToken,
		UserID:       user.ID,
		UserName:     user.Username,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if s.sessions == nil {
		return Session{}, domainError(401, "UNAUTHORIZED", "Refresh not available", nil)
	}
	user, err := s.sessions.LookupRefreshSession(ctx, auth.HashToken(refreshToken))
	if err != nil {
		return Session{}, domainError(401, "UNAUTHORIZED", "Invalid refresh token", nil)
	}
	session, err := s.openSession(ctx, user)
	if err != nil {
		return Session{}, err
	}
	// The old refresh token is replaced, not kept alive.
	_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	return session, nil
}

// Logout revokes the refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if s.sessions == nil || refreshToken == "" {
		return nil
	}
	return s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
}

// SessionFromToken authenticates a bearer token.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		UserID:    claims.Sub,
		UserName:  claims.Name,
		Role:      string(rbac.Normalize(claims.Role)),
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// ArtistImageView is an image record paired with a download URL.
type ArtistImageView struct {
	ID        int64     `json:"id"`
	ArtistID  int64     `json:"artist_id"`
	MimeType  string    `json:"mime_type"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadArtistImage stores an image for an existing artist.
func (s *Service) UploadArtistImage(ctx context.Context, session Session, artistID int64, reader io.Reader, size int64, contentType string) (ArtistImageView, error) {
	var zero ArtistImageView
	if !rbac.Can(rbac.Role(session.Role), rbac.ActionSubmit) {
		return zero, correction.ErrUnauthorized
	}
	if s.images == nil {
		return zero, domainError(503, "IMAGES_UNAVAILABLE", "Image storage not configured", nil)
	}

	exists, err := s.store.ArtistExists(ctx, artistID)
	if err != nil {
		return zero, err
	}
	if !exists {
		return zero, correction.ErrNotFound
	}

	key, err := s.images.Upload(ctx, artistID, reader, size, contentType)
	if err != nil {
		return zero, err
	}
	record, err := s.store.InsertArtistImage(ctx, artistID, key, contentType, session.UserID)
	if err != nil {
		return zero, err
	}
	url, err := s.images.PresignedGet(ctx, key, time.Hour)
	if err != nil {
		return zero, err
	}
	return ArtistImageView{
		ID:        record.ID,
		ArtistID:  record.ArtistID,
		MimeType:  record.MimeType,
		URL:       url,
		CreatedAt: record.CreatedAt,
	}, nil
}

// ListArtistImages returns the artist's images with presigned URLs.
func (s *Service) ListArtistImages(ctx context.Context, artistID int64) ([]ArtistImageView, error) {
	if s.images == nil {
		return []ArtistImageView{}, nil
	}
	records, err := s.store.ListArtistImages(ctx, artistID)
	if err != nil {
		return nil, err
	}
	views := make([]ArtistImageView, 0, len(records))
	for _, record := range records {
		url, err := s.images.PresignedGet(ctx, record.ObjectKey, time.Hour)
		if err != nil {
			return nil, err
		}
		views = append(views, ArtistImageView{
			ID:        record.ID,
			ArtistID:  record.ArtistID,
			MimeType:  record.MimeType,
			URL:       url,
			CreatedAt: record.CreatedAt,
		})
	}
	return views, nil
}

func randomToken(bytes int) string {
	raw := make([]byte, bytes)
	_, _ = rand.Read(raw)
	return hex.EncodeToString(raw)
}
