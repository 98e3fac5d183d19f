// Chatroom HTTP handlers.
//
// This file exposes REST endpoints for chatroom resources:
//   - POST /chatroom              (create)
//   - GET  /chatroom              (cached listing)
//   - GET  /chatroom/{id}         (detail with message history)
//   - POST /chatroom/{id}/message (send message, reply generated async)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. Sending a message returns 202;
// the assistant reply is produced by the background worker and appears in the
// room detail once the job completes.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chatroom-backend/internal/domain"
	"chatroom-backend/internal/repo"
	"chatroom-backend/internal/services"
	"chatroom-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ChatroomService defines chatroom lifecycle operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use and honor the
// provided context.
type ChatroomService interface {
	// Create starts a new chatroom for userID with the given name.
	Create(ctx context.Context, userID, name string) (*domain.Chatroom, error)
	// List returns the user's chatrooms and whether they came from cache.
	List(ctx context.Context, userID string) ([]domain.Chatroom, bool, error)
	// Detail returns a chatroom and its message history.
	Detail(ctx context.Context, userID, chatroomID string, limit int) (*domain.Chatroom, []domain.Message, error)
}

// MessageSender defines the send-message operation consumed by HTTP handlers.
type MessageSender interface {
	// Send persists a user message and queues an assistant reply job.
	Send(ctx context.Context, userID, chatroomID, content string) (*services.SendResult, error)
}

// FeedbackService defines operations to capture user feedback on messages.
type FeedbackService interface {
	// Leave submits a feedback value (-1 or 1) for messageID by userID.
	Leave(ctx context.Context, userID, messageID string, value int) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for chatrooms, messages, feedback,
// authentication, and subscriptions. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	roomSvc ChatroomService
	msgSvc  MessageSender
	fbSvc   FeedbackService
	authSvc AuthService
	subSvc  SubscriptionService
}

// New constructs a Handlers instance bound to the given services.
func New(roomSvc ChatroomService, msgSvc MessageSender, fbSvc FeedbackService, authSvc AuthService, subSvc SubscriptionService) *Handlers {
	return &Handlers{roomSvc: roomSvc, msgSvc: msgSvc, fbSvc: fbSvc, authSvc: authSvc, subSvc: subSvc}
}

// userID extracts the authenticated user id from Gin context (set by the JWT
// middleware). Tests may supply an "X-User-ID" header instead. Returns ""
// when no identity is present; handlers reject that with 401.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return ""
}

// requireUser returns the authenticated user id, failing the request with
// 401 when absent.
func requireUser(c *gin.Context) (string, bool) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return "", false
	}
	return uid, true
}

//
// DTOs
//

// CreateChatroomRequest is the JSON payload for creating a chatroom.
type CreateChatroomRequest struct {
	// Name labels the chatroom (1-100 chars).
	Name string `json:"name" binding:"required,min=1,max=100" example:"Trip planning"`
}

// ListChatroomsResponse wraps a user's chatroom listing and reports whether
// it was served from the read cache.
type ListChatroomsResponse struct {
	Chatrooms []domain.Chatroom `json:"chatrooms"`
	Cached    bool              `json:"cached"`
}

// ChatroomDetailResponse carries a chatroom and its conversation history in
// chronological order.
type ChatroomDetailResponse struct {
	Chatroom *domain.Chatroom `json:"chatroom"`
	Messages []domain.Message `json:"messages"`
}

// SendMessageRequest is the JSON payload for sending a message.
type SendMessageRequest struct {
	// Content is the user's message text.
	Content string `json:"content" binding:"required" example:"What should I pack for Iceland?"`
}

// SendMessageResponse acknowledges an accepted message. JobID identifies the
// queued reply job; Remaining is the sender's leftover daily allowance
// (-1 when unmetered or on an idempotent replay, where no counter is
// consumed).
type SendMessageResponse struct {
	Message   *domain.Message `json:"message"`
	JobID     string          `json:"job_id,omitempty"`
	Remaining int             `json:"remaining"`
}

//
// Handlers
//

// CreateChatroom godoc
// @ID          createChatroom
// @Summary     Create a new chatroom
// @Description Creates a chatroom for the current user and returns the resource.
// @Tags        Chatrooms
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.CreateChatroomRequest  true  "Create chatroom payload"
//
// @Success     201  {object}  domain.Chatroom
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chatroom [post]
func (h *Handlers) CreateChatroom(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}

	var req CreateChatroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required")
		return
	}

	room, err := h.roomSvc.Create(c.Request.Context(), uid, req.Name)
	if err != nil {
		if err == services.ErrNameRequired {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, room)
}

// ListChatrooms godoc
// @ID          listChatrooms
// @Summary     List chatrooms
// @Description Returns the user's chatrooms ordered by recent activity. Served from a short-TTL cache when possible; `cached` reports the source.
// @Tags        Chatrooms
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  handlers.ListChatroomsResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chatroom [get]
func (h *Handlers) ListChatrooms(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}

	rooms, cached, err := h.roomSvc.List(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if rooms == nil {
		rooms = []domain.Chatroom{}
	}
	ok(c, http.StatusOK, ListChatroomsResponse{Chatrooms: rooms, Cached: cached})
}

// GetChatroom godoc
// @ID          getChatroom
// @Summary     Get chatroom detail
// @Description Returns the chatroom and its full conversation history in chronological order. Use `limit` to cap the number of messages.
// @Tags        Chatrooms
// @Produce     json
// @Security    BearerAuth
//
// @Param       id     path   string  true  "Chatroom ID (UUID)"  format(uuid)
// @Param       limit  query  int     false "Max messages to return (0 = all)"  minimum(0)
//
// @Success     200  {object}  handlers.ChatroomDetailResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Chatroom not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chatroom/{id} [get]
func (h *Handlers) GetChatroom(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}

	limit := utils.AtoiDefault(c.Query("limit"), 0)
	if limit < 0 {
		limit = 0
	}

	room, msgs, err := h.roomSvc.Detail(c.Request.Context(), uid, c.Param("id"), limit)
	if err != nil {
		if err == services.ErrChatroomNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chatroom not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	ok(c, http.StatusOK, ChatroomDetailResponse{Chatroom: room, Messages: msgs})
}

// SendMessage godoc
// @ID          sendMessage
// @Summary     Send a message
// @Description Persists the user message and queues an assistant reply job; the reply is generated asynchronously.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Messages
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"
// @Param       id               path    string  true  "Chatroom ID (UUID)"  format(uuid)
// @Param       body             body    handlers.SendMessageRequest  true  "Message payload"
//
// @Success     202  {object}  handlers.SendMessageResponse  "Message accepted"
// @Failure     400  {object}  handlers.ErrorResponse        "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse        "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse        "Chatroom not found"
// @Failure     429  {object}  handlers.ErrorResponse        "Daily limit reached"
// @Failure     500  {object}  handlers.ErrorResponse        "Internal error"
// @Router      /chatroom/{id}/message [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	chatroomID := c.Param("id")

	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	if _, err := uuid.Parse(chatroomID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chatroom id must be a UUID")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	// Replay path: an Idempotency-Key already recorded returns the original
	// acknowledgement instead of enqueuing a second job.
	idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if idemKey != "" {
		if svc, okSvc := h.msgSvc.(*services.MessageService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, uid, chatroomID, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetMessage(svc.DB, rec.MessageID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					// A replay consumes no allowance, so there is no fresh
					// counter value to report. -1 marks it as not metered
					// rather than implying the sender has zero left.
					ok(c, http.StatusAccepted, SendMessageResponse{Message: prev, JobID: rec.JobID, Remaining: -1})
					return
				}
			}
		}
	}

	res, err := h.msgSvc.Send(ctx, uid, chatroomID, req.Content)
	if err != nil {
		switch {
		case err == services.ErrEmptyContent:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		case err == services.ErrContentTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content too long")
		case err == services.ErrChatroomNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chatroom not found")
		case err == services.ErrUserNotFound:
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "unknown user")
		case errors.Is(err, services.ErrRateLimited):
			fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, "daily message limit reached")
		case errors.Is(err, services.ErrGateUnavailable):
			// Fail-closed rejection during a counter-store outage. The user
			// is not over their limit, so this must not read as a 429.
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "message limit check unavailable")
		case errors.Is(err, services.ErrEnqueueFailed):
			fail(c, http.StatusInternalServerError, ErrCodeEnqueueFailed, "failed to queue reply")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSendFailed, err.Error())
		}
		return
	}

	// Store path: best effort. A lost record only costs a duplicate send on
	// client retry.
	if idemKey != "" {
		if svc, okSvc := h.msgSvc.(*services.MessageService); okSvc && svc.DB != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, svc.DB, uid, chatroomID, idemKey, res.Message.ID, res.JobID, http.StatusAccepted, ttl)
		}
	}

	ok(c, http.StatusAccepted, SendMessageResponse{
		Message:   res.Message,
		JobID:     res.JobID,
		Remaining: res.Remaining,
	})
}
