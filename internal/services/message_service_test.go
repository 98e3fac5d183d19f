package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatroom-backend/internal/cache"
	"chatroom-backend/internal/domain"
	"chatroom-backend/internal/queue"
	"chatroom-backend/internal/ratelimit"
	"chatroom-backend/internal/repo"
)

// newServiceDB opens a throwaway sqlite database with the full schema.
func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedUserAndRoom(t *testing.T, db *gorm.DB) (*domain.User, *domain.Chatroom) {
	t.Helper()
	ctx := context.Background()
	user, err := repo.CreateUser(ctx, db, "+15550002222", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	room, err := repo.CreateChatroom(ctx, db, user.ID, "general")
	if err != nil {
		t.Fatalf("CreateChatroom: %v", err)
	}
	return user, room
}

func newMessageService(db *gorm.DB, limit int) (*MessageService, *queue.MemoryQueue, *cache.MemoryCache) {
	q := queue.NewMemoryQueue(time.Minute, 3)
	c := cache.NewMemoryCache(time.Minute)
	svc := &MessageService{
		DB:              db,
		Gate:            ratelimit.NewMemoryGate(limit),
		Queue:           q,
		Cache:           c,
		MaxContentRunes: 2000,
	}
	return svc, q, c
}

// failingGate simulates an unreachable limiter backend.
type failingGate struct{}

func (failingGate) Allow(context.Context, string, domain.Tier, time.Time) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("limiter unreachable")
}

// failingQueue rejects every enqueue.
type failingQueue struct{ queue.Queue }

func (failingQueue) Enqueue(context.Context, queue.Payload) (string, error) {
	return "", errors.New("broker down")
}

func TestMessageService_Send_PersistsAndEnqueues(t *testing.T) {
	db := newServiceDB(t)
	user, room := seedUserAndRoom(t, db)
	svc, q, c := newMessageService(db, 5)
	defer q.Close()

	_ = c.Set(context.Background(), user.ID, []domain.Chatroom{*room})

	res, err := svc.Send(context.Background(), user.ID, room.ID, "  what's the weather?  ")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Message == nil || res.Message.Content != "what's the weather?" {
		t.Fatalf("unexpected message: %+v", res.Message)
	}
	if res.Message.Role != domain.RoleUser {
		t.Fatalf("role = %q", res.Message.Role)
	}
	if res.JobID == "" {
		t.Fatal("expected a job id")
	}
	if res.Remaining != 4 {
		t.Fatalf("remaining = %d, want 4", res.Remaining)
	}

	// Message is durable before the reply job exists.
	msgs, _ := repo.ListMessages(db, room.ID, 0)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 persisted message, got %d", len(msgs))
	}

	job, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if job.ID != res.JobID || job.Payload.ChatroomID != room.ID || job.Payload.Content != "what's the weather?" {
		t.Fatalf("unexpected job: %+v", job)
	}

	// A send reorders the listing, so the cache entry must be gone.
	if _, hit, _ := c.Get(context.Background(), user.ID); hit {
		t.Fatal("listing cache should be invalidated after send")
	}
}

func TestMessageService_Send_ContentValidation(t *testing.T) {
	db := newServiceDB(t)
	user, room := seedUserAndRoom(t, db)
	svc, q, _ := newMessageService(db, 5)
	defer q.Close()

	if _, err := svc.Send(context.Background(), user.ID, room.ID, "   "); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
	if _, err := svc.Send(context.Background(), user.ID, room.ID, strings.Repeat("a", 2001)); !errors.Is(err, ErrContentTooLong) {
		t.Fatalf("expected ErrContentTooLong, got %v", err)
	}
}

func TestMessageService_Send_UnknownRoom(t *testing.T) {
	db := newServiceDB(t)
	user, _ := seedUserAndRoom(t, db)
	svc, q, _ := newMessageService(db, 5)
	defer q.Close()

	if _, err := svc.Send(context.Background(), user.ID, "no-such-room", "hi"); !errors.Is(err, ErrChatroomNotFound) {
		t.Fatalf("expected ErrChatroomNotFound, got %v", err)
	}
}

func TestMessageService_Send_ForeignRoomNotFound(t *testing.T) {
	db := newServiceDB(t)
	_, room := seedUserAndRoom(t, db)
	other, err := repo.CreateUser(context.Background(), db, "+15550003333", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	svc, q, _ := newMessageService(db, 5)
	defer q.Close()

	if _, err := svc.Send(context.Background(), other.ID, room.ID, "hi"); !errors.Is(err, ErrChatroomNotFound) {
		t.Fatalf("expected ErrChatroomNotFound, got %v", err)
	}
}

func TestMessageService_Send_UnknownUser(t *testing.T) {
	db := newServiceDB(t)
	_, room := seedUserAndRoom(t, db)
	svc, q, _ := newMessageService(db, 5)
	defer q.Close()

	if _, err := svc.Send(context.Background(), "ghost", room.ID, "hi"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMessageService_Send_DailyAllowanceExhausted(t *testing.T) {
	db := newServiceDB(t)
	user, room := seedUserAndRoom(t, db)
	svc, q, _ := newMessageService(db, 2)
	defer q.Close()

	for i := 0; i < 2; i++ {
		if _, err := svc.Send(context.Background(), user.ID, room.ID, "ok"); err != nil {
			t.Fatalf("send %d: %v", i+1, err)
		}
	}
	if _, err := svc.Send(context.Background(), user.ID, room.ID, "one too many"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// The rejected send left no message and no job behind.
	msgs, _ := repo.ListMessages(db, room.ID, 0)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	for i := 0; i < 2; i++ {
		if _, err := q.Dequeue(context.Background()); err != nil {
			t.Fatalf("dequeue %d: %v", i, err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if job, err := q.Dequeue(ctx); err == nil {
		t.Fatalf("unexpected extra job %s", job.ID)
	}
}

func TestMessageService_Send_GateFailureRejects(t *testing.T) {
	db := newServiceDB(t)
	user, room := seedUserAndRoom(t, db)
	q := queue.NewMemoryQueue(time.Minute, 3)
	defer q.Close()
	svc := &MessageService{DB: db, Gate: failingGate{}, Queue: q, MaxContentRunes: 2000}

	_, err := svc.Send(context.Background(), user.ID, room.ID, "hi")
	if !errors.Is(err, ErrGateUnavailable) {
		t.Fatalf("gate failure must reject the send, got %v", err)
	}
	if errors.Is(err, ErrRateLimited) {
		t.Fatalf("a gate outage must not read as an exhausted allowance: %v", err)
	}
	msgs, _ := repo.ListMessages(db, room.ID, 0)
	if len(msgs) != 0 {
		t.Fatalf("no message should persist when the gate fails, got %d", len(msgs))
	}
}

func TestMessageService_Send_EnqueueFailureKeepsMessage(t *testing.T) {
	db := newServiceDB(t)
	user, room := seedUserAndRoom(t, db)
	svc := &MessageService{
		DB:              db,
		Gate:            ratelimit.NewMemoryGate(5),
		Queue:           failingQueue{},
		MaxContentRunes: 2000,
	}

	res, err := svc.Send(context.Background(), user.ID, room.ID, "hi")
	if !errors.Is(err, ErrEnqueueFailed) {
		t.Fatalf("expected ErrEnqueueFailed, got %v", err)
	}
	if res == nil || res.Message == nil || res.JobID != "" {
		t.Fatalf("result should carry the persisted message without a job id: %+v", res)
	}
	msgs, _ := repo.ListMessages(db, room.ID, 0)
	if len(msgs) != 1 {
		t.Fatalf("message must stay persisted, got %d", len(msgs))
	}
}
