package store

import "time"

type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	AvatarKey    *string
	CreatedAt    time.Time
}

// OneTimeCode is a single issued verification code. Multiple codes may exist
// per (user, purpose); only the most recently created one is authoritative.
type OneTimeCode struct {
	ID        string
	UserID    string
	Code      string
	Purpose   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Code purposes.
const (
	PurposeSignup        = "signup"
	PurposeLogin         = "login"
	PurposePasswordReset = "password_reset"
)

type Document struct {
	ID          string
	UserID      string
	Filename    string
	ArtifactKey string
	UploadedAt  time.Time
}

type SimplifiedDocument struct {
	ID          string
	DocumentID  string
	ArtifactKey string
	CreatedAt   time.Time
}

type Review struct {
	ID                   string
	SimplifiedDocumentID string
	UserID               string
	Rating               int
	Comment              string
	CreatedAt            time.Time
}

// DocumentWithSimplified is a listing row joining a document to its
// simplified counterpart. Simplified fields are nil when the join is empty.
type DocumentWithSimplified struct {
	Document
	SimplifiedID  *string
	SimplifiedKey *string
}
