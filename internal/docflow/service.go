// Package docflow coordinates the commit-or-discard boundary for staged
// documents and the lifecycle of committed ones.
package docflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"clarify/api/internal/artifact"
	"clarify/api/internal/search"
	"clarify/api/internal/session"
	"clarify/api/internal/store"
	"clarify/api/internal/util"
)

var (
	// ErrNoPendingDocument means the staged slot is empty or was already
	// consumed by an earlier commit or discard.
	ErrNoPendingDocument = errors.New("no pending document")
	// ErrValidation covers malformed review input.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden means the document does not belong to the caller.
	ErrForbidden = errors.New("document does not belong to this user")
)

// Store is the persistence surface docflow needs.
type Store interface {
	CommitSimplification(ctx context.Context, doc store.Document, simplified store.SimplifiedDocument) error
	GetDocument(ctx context.Context, id string) (store.Document, error)
	GetSimplifiedByDocument(ctx context.Context, documentID string) (store.SimplifiedDocument, error)
	DeleteDocumentCascade(ctx context.Context, documentID string) error
	UpsertReview(ctx context.Context, review store.Review) error
}

// Sessions is the staged-document surface of the session store.
type Sessions interface {
	ConsumePendingDocument(ctx context.Context, tokenHash string) (session.PendingDocument, error)
}

// Indexer mirrors committed documents into the search index.
type Indexer interface {
	IndexDocument(doc search.DocumentRecord)
	DeleteDocument(id string)
}

// Service coordinates commit, discard, delete, and review operations.
type Service struct {
	store     Store
	sessions  Sessions
	artifacts artifact.Store
	index     Indexer
}

// NewService creates a docflow service. index may be nil when search is
// disabled.
func NewService(st Store, sessions Sessions, artifacts artifact.Store, index Indexer) *Service {
	return &Service{store: st, sessions: sessions, artifacts: artifacts, index: index}
}

// Commit takes the staged document out of the session and persists it.
// Consumption happens first, so a concurrent commit or discard observes the
// slot empty; if persistence then fails the staged artifacts are orphaned
// and reported, never re-staged.
func (s *Service) Commit(ctx context.Context, tokenHash, userID string) (store.Document, error) {
	pending, err := s.sessions.ConsumePendingDocument(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, session.ErrNoPendingDocument) || errors.Is(err, session.ErrNotFound) {
			return store.Document{}, ErrNoPendingDocument
		}
		return store.Document{}, err
	}

	now := time.Now()
	doc := store.Document{
		ID:          util.NewID("doc"),
		UserID:      userID,
		Filename:    pending.Filename,
		ArtifactKey: pending.RawKey,
		UploadedAt:  now,
	}
	simplified := store.SimplifiedDocument{
		ID:          util.NewID("sim"),
		DocumentID:  doc.ID,
		ArtifactKey: pending.SimplifiedKey,
		CreatedAt:   now,
	}

	if err := s.store.CommitSimplification(ctx, doc, simplified); err != nil {
		log.Printf("docflow: commit failed, artifacts %s and %s orphaned: %v", pending.RawKey, pending.SimplifiedKey, err)
		return store.Document{}, fmt.Errorf("commit document: %w", err)
	}

	if s.index != nil {
		s.index.IndexDocument(search.DocumentRecord{ID: doc.ID, Filename: doc.Filename, UserID: userID})
	}
	return doc, nil
}

// Discard drops the staged document. The artifacts stay in object storage
// for out-of-band cleanup.
func (s *Service) Discard(ctx context.Context, tokenHash string) error {
	pending, err := s.sessions.ConsumePendingDocument(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, session.ErrNoPendingDocument) || errors.Is(err, session.ErrNotFound) {
			return ErrNoPendingDocument
		}
		return err
	}
	log.Printf("docflow: discarded staged document %q, artifacts %s and %s left for cleanup", pending.Filename, pending.RawKey, pending.SimplifiedKey)
	return nil
}

// Delete removes a committed document, its simplified counterpart, and its
// reviews, then removes the stored artifacts best-effort.
func (s *Service) Delete(ctx context.Context, documentID, userID string) error {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.UserID != userID {
		return ErrForbidden
	}

	simplified, err := s.store.GetSimplifiedByDocument(ctx, documentID)
	hasSimplified := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if err := s.store.DeleteDocumentCascade(ctx, documentID); err != nil {
		return err
	}

	if err := s.artifacts.Remove(ctx, doc.ArtifactKey); err != nil {
		log.Printf("docflow: remove artifact %s: %v", doc.ArtifactKey, err)
	}
	if hasSimplified {
		if err := s.artifacts.Remove(ctx, simplified.ArtifactKey); err != nil {
			log.Printf("docflow: remove artifact %s: %v", simplified.ArtifactKey, err)
		}
	}

	if s.index != nil {
		s.index.DeleteDocument(documentID)
	}
	return nil
}

// AttachReview records a rating and comment against a committed simplified
// document. One review per user per document; a second write replaces the
// first.
func (s *Service) AttachReview(ctx context.Context, documentID, userID string, rating int, comment string) (store.Review, error) {
	if rating < 1 || rating > 5 {
		return store.Review{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}

	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return store.Review{}, err
	}
	if doc.UserID != userID {
		return store.Review{}, ErrForbidden
	}

	simplified, err := s.store.GetSimplifiedByDocument(ctx, documentID)
	if err != nil {
		return store.Review{}, err
	}

	review := store.Review{
		ID:                   util.NewID("rev"),
		SimplifiedDocumentID: simplified.ID,
		UserID:               userID,
		Rating:               rating,
		Comment:              comment,
		CreatedAt:            time.Now(),
	}
	if err := s.store.UpsertReview(ctx, review); err != nil {
		return store.Review{}, fmt.Errorf("save review: %w", err)
	}
	return review, nil
}
