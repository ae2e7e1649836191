package store

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Users

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password_hash)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.FirstName, user.LastName, user.Email, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, password_hash, avatar_key, created_at
		FROM users WHERE email = $1
	`, email).Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.PasswordHash, &user.AvatarKey, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, password_hash, avatar_key, created_at
		FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.PasswordHash, &user.AvatarKey, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) UpdateUserAvatar(ctx context.Context, userID, avatarKey string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET avatar_key = $1 WHERE id = $2`, avatarKey, userID)
	if err != nil {
		return fmt.Errorf("update avatar: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// One-time codes

func (s *PostgresStore) InsertCode(ctx context.Context, code OneTimeCode) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO one_time_codes (id, user_id, code, purpose, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, code.ID, code.UserID, code.Code, code.Purpose, code.CreatedAt, code.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert one-time code: %w", err)
	}
	return nil
}

// LatestCode returns the most recently issued code for a (user, purpose)
// pair. Creation time orders candidates; the ULID id breaks timestamp ties
// deterministically.
func (s *PostgresStore) LatestCode(ctx context.Context, userID, purpose string) (OneTimeCode, error) {
	var code OneTimeCode
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, code, purpose, created_at, expires_at
		FROM one_time_codes
		WHERE user_id = $1 AND purpose = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID, purpose).Scan(&code.ID, &code.UserID, &code.Code, &code.Purpose, &code.CreatedAt, &code.ExpiresAt)
	if err != nil {
		return OneTimeCode{}, err
	}
	return code, nil
}

// FindUnexpiredCode looks up the newest unexpired code matching a submitted
// value for a purpose. Used by the password-reset confirmation, which
// identifies the account by the code itself.
func (s *PostgresStore) FindUnexpiredCode(ctx context.Context, value, purpose string) (OneTimeCode, error) {
	var code OneTimeCode
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, code, purpose, created_at, expires_at
		FROM one_time_codes
		WHERE code = $1 AND purpose = $2 AND expires_at > NOW()
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, value, purpose).Scan(&code.ID, &code.UserID, &code.Code, &code.Purpose, &code.CreatedAt, &code.ExpiresAt)
	if err != nil {
		return OneTimeCode{}, err
	}
	return code, nil
}

// Documents

// CommitSimplification persists a document and its simplified counterpart as
// one transaction, parent first, so the child row can never exist without it.
func (s *PostgresStore) CommitSimplification(ctx context.Context, doc Document, simplified SimplifiedDocument) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, user_id, filename, artifact_key)
		VALUES ($1, $2, $3, $4)
	`, doc.ID, doc.UserID, doc.Filename, doc.ArtifactKey); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO simplified_documents (id, document_id, artifact_key)
		VALUES ($1, $2, $3)
	`, simplified.ID, simplified.DocumentID, simplified.ArtifactKey); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert simplified document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit simplification tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (Document, error) {
	var doc Document
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, filename, artifact_key, uploaded_at
		FROM documents WHERE id = $1
	`, id).Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.ArtifactKey, &doc.UploadedAt)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (s *PostgresStore) GetSimplifiedByDocument(ctx context.Context, documentID string) (SimplifiedDocument, error) {
	var simplified SimplifiedDocument
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, artifact_key, created_at
		FROM simplified_documents WHERE document_id = $1
	`, documentID).Scan(&simplified.ID, &simplified.DocumentID, &simplified.ArtifactKey, &simplified.CreatedAt)
	if err != nil {
		return SimplifiedDocument{}, err
	}
	return simplified, nil
}

func (s *PostgresStore) ListDocumentsByUser(ctx context.Context, userID string) ([]DocumentWithSimplified, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.user_id, d.filename, d.artifact_key, d.uploaded_at, sd.id, sd.artifact_key
		FROM documents d
		LEFT JOIN simplified_documents sd ON sd.document_id = d.id
		WHERE d.user_id = $1
		ORDER BY d.uploaded_at DESC, d.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var items []DocumentWithSimplified
	for rows.Next() {
		var item DocumentWithSimplified
		if err := rows.Scan(&item.ID, &item.UserID, &item.Filename, &item.ArtifactKey, &item.UploadedAt, &item.SimplifiedID, &item.SimplifiedKey); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeleteDocumentCascade removes a document's reviews, its simplified
// counterpart, then the document itself, in that order. Children reference
// the parent by id, so the order matters. Safe when no simplified row exists.
func (s *PostgresStore) DeleteDocumentCascade(ctx context.Context, documentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM reviews
		WHERE simplified_document_id IN (SELECT id FROM simplified_documents WHERE document_id = $1)
	`, documentID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete reviews: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM simplified_documents WHERE document_id = $1`, documentID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete simplified document: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, documentID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete document: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		_ = tx.Rollback()
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}
	return nil
}

// Reviews

// UpsertReview inserts a review, replacing the reviewer's previous one for
// the same simplified document. The unique index makes one review per
// (simplified document, user) a store-level guarantee.
func (s *PostgresStore) UpsertReview(ctx context.Context, review Review) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, simplified_document_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (simplified_document_id, user_id)
		DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, created_at = NOW()
	`, review.ID, review.SimplifiedDocumentID, review.UserID, review.Rating, review.Comment)
	if err != nil {
		return fmt.Errorf("upsert review: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListReviewsBySimplified(ctx context.Context, simplifiedID string) ([]Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, simplified_document_id, user_id, rating, comment, created_at
		FROM reviews
		WHERE simplified_document_id = $1
		ORDER BY created_at DESC, id DESC
	`, simplifiedID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var items []Review
	for rows.Next() {
		var review Review
		if err := rows.Scan(&review.ID, &review.SimplifiedDocumentID, &review.UserID, &review.Rating, &review.Comment, &review.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		items = append(items, review)
	}
	return items, rows.Err()
}
