package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatroom-backend/internal/cache"
	"chatroom-backend/internal/domain"
	"chatroom-backend/internal/queue"
	"chatroom-backend/internal/ratelimit"
	"chatroom-backend/internal/repo"
	"chatroom-backend/internal/services"
)

//
// Fakes
//

type fakeRoomSvc struct {
	rooms     []domain.Chatroom
	cached    bool
	createErr error
	detailErr error
}

func (f *fakeRoomSvc) Create(_ context.Context, userID, name string) (*domain.Chatroom, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &domain.Chatroom{ID: "room-1", UserID: userID, Name: name}, nil
}

func (f *fakeRoomSvc) List(context.Context, string) ([]domain.Chatroom, bool, error) {
	return f.rooms, f.cached, nil
}

func (f *fakeRoomSvc) Detail(_ context.Context, _, chatroomID string, _ int) (*domain.Chatroom, []domain.Message, error) {
	if f.detailErr != nil {
		return nil, nil, f.detailErr
	}
	return &domain.Chatroom{ID: chatroomID}, []domain.Message{{ID: "m1", Role: domain.RoleUser, Content: "hi"}}, nil
}

type fakeMsgSvc struct {
	res *services.SendResult
	err error
}

func (f *fakeMsgSvc) Send(context.Context, string, string, string) (*services.SendResult, error) {
	return f.res, f.err
}

type fakeFbSvc struct {
	err error
}

func (f *fakeFbSvc) Leave(context.Context, string, string, int) error {
	return f.err
}

func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/chatroom", h.CreateChatroom)
	r.GET("/chatroom", h.ListChatrooms)
	r.GET("/chatroom/:id", h.GetChatroom)
	r.POST("/chatroom/:id/message", h.SendMessage)
	r.POST("/message/:id/feedback", h.LeaveFeedback)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body, user string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return e
}

const roomUUID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

//
// Chatrooms
//

func TestCreateChatroom_Created(t *testing.T) {
	h := New(&fakeRoomSvc{}, &fakeMsgSvc{}, &fakeFbSvc{}, nil, nil)
	w := doJSON(t, newTestRouter(h), http.MethodPost, "/chatroom", `{"name":"Trip planning"}`, "u1")

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var room domain.Chatroom
	if err := json.Unmarshal(w.Body.Bytes(), &room); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if room.Name != "Trip planning" || room.UserID != "u1" {
		t.Fatalf("unexpected room: %+v", room)
	}
}

func TestCreateChatroom_MissingName(t *testing.T) {
	h := New(&fakeRoomSvc{}, &fakeMsgSvc{}, &fakeFbSvc{}, nil, nil)
	w := doJSON(t, newTestRouter(h), http.MethodPost, "/chatroom", `{}`, "u1")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if e := decodeError(t, w); e.Code != ErrCodeBadRequest {
		t.Fatalf("code = %q", e.Code)
	}
}

func TestCreateChatroom_Unauthenticated(t *testing.T) {
	h := New(&fakeRoomSvc{}, &fakeMsgSvc{}, &fakeFbSvc{}, nil, nil)
	w := doJSON(t, newTestRouter(h), http.MethodPost, "/chatroom", `{"name":"x"}`, "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestListChatrooms_ReportsCacheSource(t *testing.T) {
	h := New(&fakeRoomSvc{
		rooms:  []domain.Chatroom{{ID: "r1", Name: "a"}},
		cached: true,
	}, &fakeMsgSvc{}, &fakeFbSvc{}, nil, nil)
	w := doJSON(t, newTestRouter(h), http.MethodGet, "/chatroom", "", "u1")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ListChatroomsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Cached || len(resp.Chatrooms) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestListChatrooms_EmptyListingIsArray(t *testing.T) {
	h := New(&fakeRoomSvc{}, &fakeMsgSvc{}, &fakeFbSvc{}, nil, nil)
	w := doJSON(t, newTestRouter(h), http.MethodGet, "/chatroom", "", "u1")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"chatrooms":[]`) {
		t.Fatalf("nil listing must serialize as []: %s", w.Body.String())
	}
}

func TestGetChatroom_NotFound(t *testing.T) {
	h := New(&fakeRoomSvc{detailErr: services.ErrChatroomNotFound}, &fakeMsgSvc{}, &fakeFbSvc{}, nil, nil)
	w := doJSON(t, newTestRouter(h), http.MethodGet, "/chatroom/"+roomUUID, "", "u1")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if e := decodeError(t, w); e.Code != ErrCodeNotFound {
		t.Fatalf("code = %q", e.Code)
	}
}

func TestGetChatroom_DetailEnvelope(t *testing.T) {
	h := New(&fakeRoomSvc{}, &fakeMsgSvc{}, &fakeFbSvc{}, nil, nil)
	w := doJSON(t, newTestRouter(h), http.MethodGet, "/chatroom/"+roomUUID+"?limit=10", "", "u1")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ChatroomDetailResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Chatroom == nil || len(resp.Messages) != 1 {
		t.Fatalf("unexpected detail: %+v", resp)
	}
}

//
// Messages
//

func TestSendMessage_Accepted(t *testing.T) {
	h := New(&fakeRoomSvc{}, &fakeMsgSvc{
		res: &services.SendResult{
			Message:   &domain.Message{ID: "m1", Role: domain.RoleUser, Content: "hi"},
			JobID:     "job-1",
			Remaining: 4,
		},
	}, &fakeFbSvc{}, nil, nil)
	w := doJSON(t, newTestRouter(h), http.MethodPost, "/chatroom/"+roomUUID+"/message", `{"content":"hi"}`, "u1")

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SendMessageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.JobID != "job-1" || resp.Remaining != 4 || resp.Message == nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSendMessage_RateLimited(t *testing.T) {
	h := New(&fakeRoomSvc{}, &fakeMsgSvc{err: services.ErrRateLimited}, &fakeFbSvc{}, nil, nil)
	w := doJSON(t, newTestRouter(h), http.MethodPost, "/chatroom/"+roomUUID+"/message", `{"content":"hi"}`, "u1")

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", w.Code)
	}
	if e := decodeError(t, w); e.Code != ErrCodeRateLimited {
		t.Fatalf("code = %q", e.Code)
	}
}

func TestSendMessage_GateOutageIsServerError(t *testing.T) {
	gateErr := fmt.Errorf("%w: %v", services.ErrGateUnavailable, errors.New("limiter unreachable"))
	h := New(&fakeRoomSvc{}, &fakeMsgSvc{err: gateErr}, &fakeFbSvc{}, nil, nil)
	w := doJSON(t, newTestRouter(h), http.MethodPost, "/chatroom/"+roomUUID+"/message", `{"content":"hi"}`, "u1")

	// Fail-closed rejection during a limiter outage is a server fault, not
	// an exhausted allowance.
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if e := decodeError(t, w); e.Code != ErrCodeInternal {
		t.Fatalf("code = %q, want %q", e.Code, ErrCodeInternal)
	}
}

func TestSendMessage_IdempotentReplay(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("handlers_test_%d.db", time.Now().UnixNano()))
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

	ctx := context.Background()
	user, err := repo.CreateUser(ctx, db, "+15550003333", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	room, err := repo.CreateChatroom(ctx, db, user.ID, "general")
	if err != nil {
		t.Fatalf("CreateChatroom: %v", err)
	}
	msg, err := repo.CreateMessage(db, room.ID, user.ID, domain.RoleUser, "hello")
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if _, err := repo.CreateIdempotency(ctx, db, user.ID, room.ID, "key-1", msg.ID, "job-9", http.StatusAccepted, time.Hour); err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}

	q := queue.NewMemoryQueue(time.Minute, 3)
	defer q.Close()
	svc := &services.MessageService{
		DB:              db,
		Gate:            ratelimit.NewMemoryGate(5),
		Queue:           q,
		Cache:           cache.NewMemoryCache(time.Minute),
		MaxContentRunes: 2000,
	}
	h := New(&fakeRoomSvc{}, svc, &fakeFbSvc{}, nil, nil)
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/chatroom/"+room.ID+"/message", strings.NewReader(`{"content":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", user.ID)
	req.Header.Set("Idempotency-Key", "key-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatal("replay must be marked with Idempotency-Replayed")
	}
	var resp SendMessageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message == nil || resp.Message.ID != msg.ID || resp.JobID != "job-9" {
		t.Fatalf("replay returned the wrong record: %+v", resp)
	}
	// No allowance is consumed on a replay, so Remaining must read as
	// unmetered instead of claiming the sender has zero sends left.
	if resp.Remaining != -1 {
		t.Fatalf("remaining = %d, want -1", resp.Remaining)
	}
}

func TestSendMessage_BadChatroomID(t *testing.T) {
	h := New(&fakeRoomSvc{}, &fakeMsgSvc{}, &fakeFbSvc{}, nil, nil)
	w := doJSON(t, newTestRouter(h), http.MethodPost, "/chatroom/not-a-uuid/message", `{"content":"hi"}`, "u1")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSendMessage_UnknownRoom(t *testing.T) {
	h := New(&fakeRoomSvc{}, &fakeMsgSvc{err: services.ErrChatroomNotFound}, &fakeFbSvc{}, nil, nil)
	w := doJSON(t, newTestRouter(h), http.MethodPost, "/chatroom/"+roomUUID+"/message", `{"content":"hi"}`, "u1")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSendMessage_EnqueueFailure(t *testing.T) {
	h := New(&fakeRoomSvc{}, &fakeMsgSvc{err: services.ErrEnqueueFailed}, &fakeFbSvc{}, nil, nil)
	w := doJSON(t, newTestRouter(h), http.MethodPost, "/chatroom/"+roomUUID+"/message", `{"content":"hi"}`, "u1")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if e := decodeError(t, w); e.Code != ErrCodeEnqueueFailed {
		t.Fatalf("code = %q", e.Code)
	}
}

//
// Feedback
//

func TestLeaveFeedback_NoContent(t *testing.T) {
	h := New(&fakeRoomSvc{}, &fakeMsgSvc{}, &fakeFbSvc{}, nil, nil)
	w := doJSON(t, newTestRouter(h), http.MethodPost, "/message/m1/feedback", `{"value":1}`, "u1")

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestLeaveFeedback_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"not found", services.ErrMessageNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"forbidden", services.ErrForbiddenFeedback, http.StatusForbidden, ErrCodeForbidden},
		{"duplicate", services.ErrDuplicateFeedback, http.StatusConflict, ErrCodeConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := New(&fakeRoomSvc{}, &fakeMsgSvc{}, &fakeFbSvc{err: tc.err}, nil, nil)
			w := doJSON(t, newTestRouter(h), http.MethodPost, "/message/m1/feedback", `{"value":-1}`, "u1")

			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
			if e := decodeError(t, w); e.Code != tc.code {
				t.Fatalf("code = %q, want %q", e.Code, tc.code)
			}
		})
	}
}

func TestLeaveFeedback_ValueOutOfRange(t *testing.T) {
	h := New(&fakeRoomSvc{}, &fakeMsgSvc{}, &fakeFbSvc{}, nil, nil)
	w := doJSON(t, newTestRouter(h), http.MethodPost, "/message/m1/feedback", `{"value":3}`, "u1")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}
