// Package app wires the HTTP surface to the domain services.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"clarify/api/internal/artifact"
	"clarify/api/internal/auth"
	"clarify/api/internal/docflow"
	"clarify/api/internal/extract"
	"clarify/api/internal/render"
	"clarify/api/internal/search"
	"clarify/api/internal/session"
	"clarify/api/internal/simplify"
	"clarify/api/internal/store"
	"clarify/api/internal/util"
	"clarify/api/internal/verify"
)

// Store is the read surface the app layer uses directly. Writes go through
// verify and docflow.
type Store interface {
	GetUserByID(ctx context.Context, id string) (store.User, error)
	UpdateUserAvatar(ctx context.Context, userID, avatarKey string) error
	ListDocumentsByUser(ctx context.Context, userID string) ([]store.DocumentWithSimplified, error)
	GetDocument(ctx context.Context, id string) (store.Document, error)
	GetSimplifiedByDocument(ctx context.Context, documentID string) (store.SimplifiedDocument, error)
	ListReviewsBySimplified(ctx context.Context, simplifiedID string) ([]store.Review, error)
	Ping(ctx context.Context) error
}

// Sessions is the session surface the app layer uses directly.
type Sessions interface {
	Get(ctx context.Context, tokenHash string) (session.Data, error)
	Save(ctx context.Context, tokenHash string, data session.Data) error
	Ping(ctx context.Context) error
}

// Searcher serves committed-document search.
type Searcher interface {
	Search(q search.Query) search.Response
}

// Session is a resolved caller identity.
type Session struct {
	TokenHash string
	State     string
	UserID    string
}

// Service orchestrates the domain services behind the HTTP surface.
type Service struct {
	store     Store
	sessions  Sessions
	verify    *verify.Service
	docflow   *docflow.Service
	pipeline  *simplify.Pipeline
	extractor extract.Extractor
	renderer  render.Renderer
	artifacts artifact.Store
	search    Searcher
}

// NewService creates the app service. search may be nil when search is
// disabled.
func NewService(
	st Store,
	sessions Sessions,
	verifySvc *verify.Service,
	docflowSvc *docflow.Service,
	pipeline *simplify.Pipeline,
	extractor extract.Extractor,
	renderer render.Renderer,
	artifacts artifact.Store,
	searcher Searcher,
) *Service {
	return &Service{
		store:     st,
		sessions:  sessions,
		verify:    verifySvc,
		docflow:   docflowSvc,
		pipeline:  pipeline,
		extractor: extractor,
		renderer:  renderer,
		artifacts: artifacts,
		search:    searcher,
	}
}

// Verify exposes the verification state machine.
func (s *Service) Verify() *verify.Service { return s.verify }

// SessionFromToken resolves a bearer token to its session.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, auth.ErrInvalidToken
	}
	tokenHash := auth.HashToken(token)
	data, err := s.sessions.Get(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	return Session{TokenHash: tokenHash, State: data.State, UserID: data.UserID}, nil
}

// PingDB checks database connectivity.
func (s *Service) PingDB(ctx context.Context) error { return s.store.Ping(ctx) }

// PingSessions checks session-store connectivity.
func (s *Service) PingSessions(ctx context.Context) error { return s.sessions.Ping(ctx) }

// SubmitDocument runs the whole transformation pipeline on an uploaded PDF
// and stages the result in the session. Nothing is persisted until commit.
func (s *Service) SubmitDocument(ctx context.Context, sess Session, filename string, data []byte) (map[string]any, error) {
	if !extract.LooksLikePDF(data) {
		return nil, domainError(422, "VALIDATION_ERROR", "Only PDF uploads are accepted", nil)
	}

	text := s.extractor.Extract(ctx, data)
	simplified, err := s.pipeline.Run(ctx, text)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSuffix(filename, ".pdf")
	rendered, err := s.renderer.Render(ctx, title, simplified)
	if err != nil {
		return nil, fmt.Errorf("render simplified document: %w", err)
	}

	id := util.NewID("art")
	rawKey := artifact.RawKey(id)
	simplifiedKey := artifact.SimplifiedKey(id)
	if err := s.artifacts.Put(ctx, rawKey, data, "application/pdf"); err != nil {
		return nil, fmt.Errorf("store raw artifact: %w", err)
	}
	if err := s.artifacts.Put(ctx, simplifiedKey, rendered.Data, rendered.MimeType); err != nil {
		return nil, fmt.Errorf("store simplified artifact: %w", err)
	}

	sessData, err := s.sessions.Get(ctx, sess.TokenHash)
	if err != nil {
		return nil, err
	}
	if sessData.PendingDoc != nil {
		log.Printf("app: replacing staged document, artifacts %s and %s left for cleanup",
			sessData.PendingDoc.RawKey, sessData.PendingDoc.SimplifiedKey)
	}
	sessData.PendingDoc = &session.PendingDocument{
		Filename:      filename,
		RawKey:        rawKey,
		SimplifiedKey: simplifiedKey,
	}
	if err := s.sessions.Save(ctx, sess.TokenHash, sessData); err != nil {
		return nil, fmt.Errorf("stage document: %w", err)
	}

	return map[string]any{
		"pending": map[string]any{
			"filename":   filename,
			"simplified": simplified,
		},
	}, nil
}

// PendingArtifact streams back the staged simplified PDF.
func (s *Service) PendingArtifact(ctx context.Context, sess Session) ([]byte, string, error) {
	data, err := s.sessions.Get(ctx, sess.TokenHash)
	if err != nil {
		return nil, "", err
	}
	if data.PendingDoc == nil {
		return nil, "", docflow.ErrNoPendingDocument
	}
	payload, err := s.artifacts.Get(ctx, data.PendingDoc.SimplifiedKey)
	if err != nil {
		return nil, "", err
	}
	return payload, data.PendingDoc.Filename, nil
}

// CommitPending persists the staged document for the caller.
func (s *Service) CommitPending(ctx context.Context, sess Session) (map[string]any, error) {
	doc, err := s.docflow.Commit(ctx, sess.TokenHash, sess.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"document": documentView(doc)}, nil
}

// DiscardPending drops the staged document for the caller.
func (s *Service) DiscardPending(ctx context.Context, sess Session) error {
	return s.docflow.Discard(ctx, sess.TokenHash)
}

// ListDocuments returns the caller's committed documents with their reviews.
func (s *Service) ListDocuments(ctx context.Context, sess Session) (map[string]any, error) {
	rows, err := s.store.ListDocumentsByUser(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	items := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		item := documentView(row.Document)
		if row.SimplifiedID != nil {
			item["simplifiedId"] = *row.SimplifiedID
			reviews, err := s.store.ListReviewsBySimplified(ctx, *row.SimplifiedID)
			if err != nil {
				return nil, fmt.Errorf("list reviews: %w", err)
			}
			item["reviews"] = reviewViews(reviews)
		}
		items = append(items, item)
	}
	return map[string]any{"documents": items}, nil
}

// GetDocument returns metadata for one committed document.
func (s *Service) GetDocument(ctx context.Context, sess Session, documentID string) (map[string]any, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.UserID != sess.UserID {
		return nil, docflow.ErrForbidden
	}
	item := documentView(doc)
	if simplified, err := s.store.GetSimplifiedByDocument(ctx, documentID); err == nil {
		item["simplifiedId"] = simplified.ID
		reviews, err := s.store.ListReviewsBySimplified(ctx, simplified.ID)
		if err != nil {
			return nil, fmt.Errorf("list reviews: %w", err)
		}
		item["reviews"] = reviewViews(reviews)
	}
	return map[string]any{"document": item}, nil
}

// DocumentArtifact streams the raw or simplified bytes of a committed
// document.
func (s *Service) DocumentArtifact(ctx context.Context, sess Session, documentID, which string) ([]byte, string, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, "", err
	}
	if doc.UserID != sess.UserID {
		return nil, "", docflow.ErrForbidden
	}

	key := doc.ArtifactKey
	if which == "simplified" {
		simplified, err := s.store.GetSimplifiedByDocument(ctx, documentID)
		if err != nil {
			return nil, "", err
		}
		key = simplified.ArtifactKey
	}
	payload, err := s.artifacts.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return payload, doc.Filename, nil
}

// DeleteDocument removes a committed document.
func (s *Service) DeleteDocument(ctx context.Context, sess Session, documentID string) error {
	return s.docflow.Delete(ctx, documentID, sess.UserID)
}

// AttachReview records a review against a committed document.
func (s *Service) AttachReview(ctx context.Context, sess Session, documentID string, rating int, comment string) (map[string]any, error) {
	review, err := s.docflow.AttachReview(ctx, documentID, sess.UserID, rating, comment)
	if err != nil {
		return nil, err
	}
	return map[string]any{"review": reviewView(review)}, nil
}

// Profile returns the caller's account details.
func (s *Service) Profile(ctx context.Context, sess Session) (map[string]any, error) {
	user, err := s.store.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{
		"id":        user.ID,
		"firstName": user.FirstName,
		"lastName":  user.LastName,
		"email":     user.Email,
		"createdAt": user.CreatedAt,
	}
	if user.AvatarKey != nil {
		payload["avatarKey"] = *user.AvatarKey
	}
	return map[string]any{"profile": payload}, nil
}

// UploadAvatar stores the avatar bytes and records the key on the user row.
func (s *Service) UploadAvatar(ctx context.Context, sess Session, data []byte, contentType string) (map[string]any, error) {
	key := artifact.AvatarKey(sess.UserID)
	if err := s.artifacts.Put(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("store avatar: %w", err)
	}
	if err := s.store.UpdateUserAvatar(ctx, sess.UserID, key); err != nil {
		return nil, err
	}
	return map[string]any{"avatarKey": key}, nil
}

// Search runs a scoped search over the caller's committed documents.
func (s *Service) Search(ctx context.Context, sess Session, text string, limit, offset int) (search.Response, error) {
	if s.search == nil {
		return search.Response{}, errors.New("search is not configured")
	}
	return s.search.Search(search.Query{Text: text, UserID: sess.UserID, Limit: limit, Offset: offset}), nil
}

func documentView(doc store.Document) map[string]any {
	return map[string]any{
		"id":         doc.ID,
		"filename":   doc.Filename,
		"uploadedAt": doc.UploadedAt,
	}
}

func reviewView(review store.Review) map[string]any {
	return map[string]any{
		"id":        review.ID,
		"rating":    review.Rating,
		"comment":   review.Comment,
		"createdAt": review.CreatedAt,
	}
}

func reviewViews(reviews []store.Review) []map[string]any {
	views := make([]map[string]any, 0, len(reviews))
	for _, review := range reviews {
		views = append(views, reviewView(review))
	}
	return views
}
