package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"clarify/api/internal/artifact"
	"clarify/api/internal/docflow"
	"clarify/api/internal/render"
	"clarify/api/internal/search"
	"clarify/api/internal/session"
	"clarify/api/internal/simplify"
	"clarify/api/internal/store"
	"clarify/api/internal/verify"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory stand-in for the Postgres store, shared by the
// verify, docflow, and app layers.
type fakeStore struct {
	mu         sync.Mutex
	users      map[string]store.User
	byEmail    map[string]string
	codes      []store.OneTimeCode
	docs       map[string]store.Document
	simplified map[string]store.SimplifiedDocument // by document ID
	reviews    map[string]store.Review             // by simplifiedID/userID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      make(map[string]store.User),
		byEmail:    make(map[string]string),
		docs:       make(map[string]store.Document),
		simplified: make(map[string]store.SimplifiedDocument),
		reviews:    make(map[string]store.Review),
	}
}

func (f *fakeStore) CreateUser(ctx context.Context, user store.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	f.byEmail[user.Email] = user.ID
	return nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.byEmail[email]; ok {
		return f.users[id], nil
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	user.PasswordHash = passwordHash
	f.users[userID] = user
	return nil
}

func (f *fakeStore) UpdateUserAvatar(ctx context.Context, userID, avatarKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	user.AvatarKey = &avatarKey
	f.users[userID] = user
	return nil
}

func (f *fakeStore) InsertCode(ctx context.Context, code store.OneTimeCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
	return nil
}

func (f *fakeStore) LatestCode(ctx context.Context, userID, purpose string) (store.OneTimeCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.codes) - 1; i >= 0; i-- {
		if f.codes[i].UserID == userID && f.codes[i].Purpose == purpose {
			return f.codes[i], nil
		}
	}
	return store.OneTimeCode{}, sql.ErrNoRows
}

func (f *fakeStore) FindUnexpiredCode(ctx context.Context, value, purpose string) (store.OneTimeCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.codes) - 1; i >= 0; i-- {
		c := f.codes[i]
		if c.Code == value && c.Purpose == purpose && time.Now().Before(c.ExpiresAt) {
			return c, nil
		}
	}
	return store.OneTimeCode{}, sql.ErrNoRows
}

func (f *fakeStore) CommitSimplification(ctx context.Context, doc store.Document, simplified store.SimplifiedDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.ID] = doc
	f.simplified[doc.ID] = simplified
	return nil
}

func (f *fakeStore) GetDocument(ctx context.Context, id string) (store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[id]; ok {
		return doc, nil
	}
	return store.Document{}, sql.ErrNoRows
}

func (f *fakeStore) GetSimplifiedByDocument(ctx context.Context, documentID string) (store.SimplifiedDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.simplified[documentID]; ok {
		return s, nil
	}
	return store.SimplifiedDocument{}, sql.ErrNoRows
}

func (f *fakeStore) ListDocumentsByUser(ctx context.Context, userID string) ([]store.DocumentWithSimplified, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []store.DocumentWithSimplified
	for _, doc := range f.docs {
		if doc.UserID != userID {
			continue
		}
		row := store.DocumentWithSimplified{Document: doc}
		if s, ok := f.simplified[doc.ID]; ok {
			id, key := s.ID, s.ArtifactKey
			row.SimplifiedID = &id
			row.SimplifiedKey = &key
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (f *fakeStore) DeleteDocumentCascade(ctx context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[documentID]; !ok {
		return sql.ErrNoRows
	}
	if s, ok := f.simplified[documentID]; ok {
		for key := range f.reviews {
			if strings.HasPrefix(key, s.ID+"/") {
				delete(f.reviews, key)
			}
		}
	}
	delete(f.docs, documentID)
	delete(f.simplified, documentID)
	return nil
}

func (f *fakeStore) UpsertReview(ctx context.Context, review store.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviews[review.SimplifiedDocumentID+"/"+review.UserID] = review
	return nil
}

func (f *fakeStore) ListReviewsBySimplified(ctx context.Context, simplifiedID string) ([]store.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Review
	for key, review := range f.reviews {
		if strings.HasPrefix(key, simplifiedID+"/") {
			out = append(out, review)
		}
	}
	return out, nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

type fakeArtifacts struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{objects: make(map[string][]byte)}
}

func (f *fakeArtifacts) Put(ctx context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeArtifacts) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if data, ok := f.objects[key]; ok {
		return data, nil
	}
	return nil, artifact.ErrNotFound
}

func (f *fakeArtifacts) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

type fakeMailer struct {
	mu    sync.Mutex
	codes map[string]string // purpose -> last code
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{codes: make(map[string]string)}
}

func (f *fakeMailer) IsConfigured() bool { return true }

func (f *fakeMailer) SendCodeEmail(to, userName, code, purpose string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[purpose] = code
	return nil
}

func (f *fakeMailer) lastCode(purpose string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[purpose]
}

// fakeExtractor treats everything after the PDF header line as the text.
type fakeExtractor struct{}

func (fakeExtractor) Extract(ctx context.Context, data []byte) string {
	_, rest, found := bytes.Cut(data, []byte("\n"))
	if !found {
		return ""
	}
	return string(rest)
}

type fakeEngine struct{}

func (fakeEngine) Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error) {
	return "summary", nil
}

func (fakeEngine) Simplify(ctx context.Context, text string, maxLen int) (string, error) {
	return "plain words", nil
}

type fakeRenderer struct{}

func (fakeRenderer) Render(ctx context.Context, title, text string) (*render.Result, error) {
	return &render.Result{
		Data:     []byte("%PDF-rendered " + title),
		Filename: title + ".pdf",
		MimeType: "application/pdf",
	}, nil
}

type fakeSearcher struct{}

func (fakeSearcher) Search(q search.Query) search.Response {
	return search.Response{Results: []search.Result{}, Total: 0, Query: q.Text}
}

type testEnv struct {
	handler   http.Handler
	store     *fakeStore
	mailer    *fakeMailer
	artifacts *fakeArtifacts
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := session.NewRedisStoreWithClient(client, time.Hour)

	st := newFakeStore()
	mailer := newFakeMailer()
	artifacts := newFakeArtifacts()

	verifySvc := verify.NewService(st, sessions, mailer, nil, 10*time.Minute)
	docflowSvc := docflow.NewService(st, sessions, artifacts, nil)
	pipeline := simplify.NewPipeline(fakeEngine{}, simplify.DefaultChunkBudget)

	svc := NewService(st, sessions, verifySvc, docflowSvc, pipeline, fakeExtractor{}, fakeRenderer{}, artifacts, fakeSearcher{})
	server := NewHTTPServer(svc, "*")
	return &testEnv{handler: server.Handler(), store: st, mailer: mailer, artifacts: artifacts}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) upload(t *testing.T, path, token, field, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

// signUpAndLogin drives the full verification flow and returns an
// authenticated session token.
func (e *testEnv) signUpAndLogin(t *testing.T, email string) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"firstName":       "Ada",
		"lastName":        "Nwosu",
		"email":           email,
		"password":        "password123",
		"confirmPassword": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	signupToken, _ := decodeJSON(t, rec)["token"].(string)
	require.NotEmpty(t, signupToken)

	rec = e.do(t, http.MethodPost, "/api/auth/signup/confirm", signupToken, map[string]any{
		"code": e.mailer.lastCode(store.PurposeSignup),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loginToken, _ := decodeJSON(t, rec)["token"].(string)
	require.NotEmpty(t, loginToken)

	rec = e.do(t, http.MethodPost, "/api/auth/login/confirm", loginToken, map[string]any{
		"code": e.mailer.lastCode(store.PurposeLogin),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return loginToken
}

func pdfBytes(text string) []byte {
	return []byte("%PDF-1.4\n" + text)
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"firstName":       "Ada",
		"lastName":        "Nwosu",
		"email":           "ada@example.com",
		"password":        "password123",
		"confirmPassword": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	token, _ := decodeJSON(t, rec)["token"].(string)

	t.Run("session probe reports pending state", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/session", token, nil)
		payload := decodeJSON(t, rec)
		assert.Equal(t, session.StatePendingSignup, payload["state"])
		assert.Equal(t, false, payload["authenticated"])
	})

	t.Run("wrong signup code", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/signup/confirm", token, map[string]any{"code": "000000"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_CODE", decodeJSON(t, rec)["code"])
	})

	t.Run("correct signup code does not authenticate", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/signup/confirm", token, map[string]any{
			"code": env.mailer.lastCode(store.PurposeSignup),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodGet, "/api/session", token, nil)
		payload := decodeJSON(t, rec)
		assert.Equal(t, session.StateAnonymous, payload["state"])
		assert.Equal(t, false, payload["authenticated"])
	})

	t.Run("login then confirm authenticates", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
			"email":    "ada@example.com",
			"password": "password123",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		loginToken, _ := decodeJSON(t, rec)["token"].(string)

		rec = env.do(t, http.MethodPost, "/api/auth/login/confirm", loginToken, map[string]any{
			"code": env.mailer.lastCode(store.PurposeLogin),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodGet, "/api/session", loginToken, nil)
		payload := decodeJSON(t, rec)
		assert.Equal(t, session.StateAuthenticated, payload["state"])
		assert.Equal(t, true, payload["authenticated"])

		rec = env.do(t, http.MethodGet, "/api/profile", loginToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		profile := decodeJSON(t, rec)["profile"].(map[string]any)
		assert.Equal(t, "ada@example.com", profile["email"])
	})

	t.Run("wrong login password", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
			"email":    "ada@example.com",
			"password": "wrongpassword",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", decodeJSON(t, rec)["code"])
	})

	t.Run("logout invalidates the session", func(t *testing.T) {
		loginToken := env.signUpAndLogin(t, "ben@example.com")
		rec := env.do(t, http.MethodPost, "/api/auth/logout", loginToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/profile", loginToken, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	env.signUpAndLogin(t, "ada@example.com")

	t.Run("unknown email", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/password-reset", "", map[string]any{
			"email":           "nobody@example.com",
			"newPassword":     "newpassword456",
			"confirmPassword": "newpassword456",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("reset and login with the new password", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/password-reset", "", map[string]any{
			"email":           "ada@example.com",
			"newPassword":     "newpassword456",
			"confirmPassword": "newpassword456",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodPost, "/api/auth/password-reset/confirm", "", map[string]any{
			"code":        env.mailer.lastCode(store.PurposePasswordReset),
			"newPassword": "newpassword456",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
			"email":    "ada@example.com",
			"password": "newpassword456",
		})
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
			"email":    "ada@example.com",
			"password": "password123",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestDocumentFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUpAndLogin(t, "ada@example.com")

	t.Run("requires authentication", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/documents", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects non-PDF uploads", func(t *testing.T) {
		rec := env.upload(t, "/api/documents", token, "document", "notes.txt", []byte("plain text"))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeJSON(t, rec)["code"])
	})

	t.Run("rejects empty extraction", func(t *testing.T) {
		rec := env.upload(t, "/api/documents", token, "document", "blank.pdf", []byte("%PDF-1.4\n"))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "EMPTY_INPUT", decodeJSON(t, rec)["code"])
	})

	t.Run("upload stages a simplified preview", func(t *testing.T) {
		rec := env.upload(t, "/api/documents", token, "document", "lease.pdf", pdfBytes("The tenant shall indemnify the landlord."))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		pending := decodeJSON(t, rec)["pending"].(map[string]any)
		assert.Equal(t, "lease.pdf", pending["filename"])
		assert.Contains(t, pending["simplified"], "Section 1")
		assert.Contains(t, pending["simplified"], "plain words")

		rec = env.do(t, http.MethodGet, "/api/documents/pending", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-rendered")))
	})

	var documentID string

	t.Run("commit persists exactly once", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/documents/pending/commit", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		doc := decodeJSON(t, rec)["document"].(map[string]any)
		documentID = doc["id"].(string)
		assert.Equal(t, "lease.pdf", doc["filename"])

		rec = env.do(t, http.MethodPost, "/api/documents/pending/commit", token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decodeJSON(t, rec)["code"])
	})

	t.Run("listing shows the committed document", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/documents", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		documents := decodeJSON(t, rec)["documents"].([]any)
		require.Len(t, documents, 1)
		assert.Equal(t, documentID, documents[0].(map[string]any)["id"])
	})

	t.Run("artifact streaming", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/documents/"+documentID+"?artifact=raw", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-1.4")))

		rec = env.do(t, http.MethodGet, "/api/documents/"+documentID+"?artifact=simplified", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-rendered")))
	})

	t.Run("review", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/documents/"+documentID+"/review", token, map[string]any{
			"rating":  4,
			"comment": "much clearer",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodPost, "/api/documents/"+documentID+"/review", token, map[string]any{
			"rating": 9,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/documents/"+documentID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		doc := decodeJSON(t, rec)["document"].(map[string]any)
		reviews := doc["reviews"].([]any)
		require.Len(t, reviews, 1)
		assert.Equal(t, float64(4), reviews[0].(map[string]any)["rating"])
	})

	t.Run("other users cannot touch the document", func(t *testing.T) {
		otherToken := env.signUpAndLogin(t, "eve@example.com")
		rec := env.do(t, http.MethodGet, "/api/documents/"+documentID, otherToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.do(t, http.MethodDelete, "/api/documents/"+documentID, otherToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("delete removes document and artifacts", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/api/documents/"+documentID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/documents/"+documentID, token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		env.artifacts.mu.Lock()
		defer env.artifacts.mu.Unlock()
		for key := range env.artifacts.objects {
			assert.False(t, strings.HasPrefix(key, "raw/") || strings.HasPrefix(key, "simplified/"),
				fmt.Sprintf("artifact %s should have been removed", key))
		}
	})
}

func TestDiscardFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUpAndLogin(t, "ada@example.com")

	rec := env.upload(t, "/api/documents", token, "document", "lease.pdf", pdfBytes("Some legal text."))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/documents/pending/discard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/documents/pending/commit", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/documents", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeJSON(t, rec)["documents"])
}

func TestAvatarUpload(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUpAndLogin(t, "ada@example.com")

	rec := env.upload(t, "/api/profile/avatar", token, "avatar", "me.png", []byte("png-bytes"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	avatarKey, _ := decodeJSON(t, rec)["avatarKey"].(string)
	assert.True(t, strings.HasPrefix(avatarKey, "avatars/"))

	rec = env.do(t, http.MethodGet, "/api/profile", token, nil)
	profile := decodeJSON(t, rec)["profile"].(map[string]any)
	assert.Equal(t, avatarKey, profile["avatarKey"])
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUpAndLogin(t, "ada@example.com")

	rec := env.do(t, http.MethodGet, "/api/search?q=lease", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decodeJSON(t, rec)
	assert.Equal(t, "lease", payload["query"])

	rec = env.do(t, http.MethodGet, "/api/search?q=lease&limit=abc", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	payload := decodeJSON(t, rec)
	assert.Equal(t, true, payload["ok"])
}
