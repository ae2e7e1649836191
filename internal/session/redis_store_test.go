package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	store, err := NewRedisStore("redis://"+s.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestSaveAndGet(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	err := store.Save(ctx, "token-hash", Data{State: StatePendingLogin, UserID: "usr_1"})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := store.Get(ctx, "token-hash")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if data.State != StatePendingLogin {
		t.Errorf("expected state %s, got %s", StatePendingLogin, data.State)
	}
	if data.UserID != "usr_1" {
		t.Errorf("expected user usr_1, got %s", data.UserID)
	}
	if data.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set on save")
	}
}

func TestGetMissingSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	if _, err := store.Get(context.Background(), "nope"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()
	store, err := NewRedisStore("redis://"+s.Addr(), time.Second)
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Save(ctx, "short", Data{State: StateAuthenticated, UserID: "usr_1"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	s.FastForward(2 * time.Second)

	if _, err := store.Get(ctx, "short"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestDeleteSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.Save(ctx, "gone", Data{State: StateAuthenticated, UserID: "usr_1"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Delete(ctx, "gone"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "gone"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestConsumePendingDocumentOnce(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	err := store.Save(ctx, "hash", Data{
		State:  StateAuthenticated,
		UserID: "usr_1",
		PendingDoc: &PendingDocument{
			Filename:      "contract.pdf",
			RawKey:        "raw/abc.pdf",
			SimplifiedKey: "simplified/abc.pdf",
		},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	pending, err := store.ConsumePendingDocument(ctx, "hash")
	if err != nil {
		t.Fatalf("first consume failed: %v", err)
	}
	if pending.Filename != "contract.pdf" || pending.RawKey != "raw/abc.pdf" {
		t.Errorf("unexpected pending document: %+v", pending)
	}

	// Second consume must fail: the reference is not resubmittable.
	if _, err := store.ConsumePendingDocument(ctx, "hash"); err != ErrNoPendingDocument {
		t.Errorf("expected ErrNoPendingDocument on second consume, got %v", err)
	}

	// The session itself survives consumption.
	data, err := store.Get(ctx, "hash")
	if err != nil {
		t.Fatalf("Get after consume failed: %v", err)
	}
	if data.State != StateAuthenticated || data.PendingDoc != nil {
		t.Errorf("session corrupted by consume: %+v", data)
	}
}

func TestConsumePendingDocumentMissingSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	if _, err := store.ConsumePendingDocument(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestConsumePendingDocumentConcurrent(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	err := store.Save(ctx, "race", Data{
		State:      StateAuthenticated,
		UserID:     "usr_1",
		PendingDoc: &PendingDocument{Filename: "a.pdf", RawKey: "raw/a", SimplifiedKey: "simplified/a"},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	wins := make(chan PendingDocument, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if pd, err := store.ConsumePendingDocument(ctx, "race"); err == nil {
				wins <- pd
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	if count != 1 {
		t.Errorf("expected exactly one winner, got %d", count)
	}
}
