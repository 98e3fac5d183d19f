// Package services – MessageService
//
// This file implements MessageService, the application-level component that
// owns the send-message pipeline: validate input, enforce the daily message
// allowance, verify chatroom ownership, persist the user message, and hand
// the reply off to the durable job queue. Replies are produced out of band by
// the worker; Send returns as soon as the job is queued.
//
// The allowance check is fail-closed: if the rate gate cannot be evaluated the
// send is rejected rather than let traffic through unmetered.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// chatroom/user identifiers.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"chatroom-backend/internal/cache"
	"chatroom-backend/internal/domain"
	"chatroom-backend/internal/queue"
	"chatroom-backend/internal/ratelimit"
	"chatroom-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MessageService coordinates user-message persistence and reply job dispatch.
type MessageService struct {
	DB    *gorm.DB
	Gate  ratelimit.Gate
	Queue queue.Queue
	Cache cache.ChatroomCache

	// MaxContentRunes caps accepted message content by rune length.
	MaxContentRunes int

	// Now supplies the gate's clock; defaults to time.Now.
	Now func() time.Time
}

// SendResult carries the outcome of a successful Send: the persisted user
// message, the queued reply job's id, and the remaining daily allowance.
type SendResult struct {
	Message   *domain.Message
	JobID     string
	Remaining int
}

// Send validates content, checks the sender's daily allowance, verifies
// chatroom ownership, persists the user message, and enqueues a reply job.
//
// Error contract: ErrRateLimited when the allowance is exhausted;
// ErrGateUnavailable (wrapped) when the gate cannot be evaluated;
// ErrChatroomNotFound for missing or foreign rooms; ErrEnqueueFailed
// (wrapped) when the message persisted but the job could not be queued.
func (s *MessageService) Send(ctx context.Context, userID, chatroomID, content string) (*SendResult, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("chatroom.id", chatroomID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if s.MaxContentRunes > 0 && utf8.RuneCountInString(content) > s.MaxContentRunes {
		return nil, ErrContentTooLong
	}

	user, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	res, err := s.Gate.Allow(ctx, userID, user.Tier, s.now())
	if err != nil {
		// Fail closed. An unreachable limiter must not grant free sends,
		// but the rejection is an outage, not an exhausted allowance.
		log.Error().Err(err).Str("user_id", userID).Msg("rate gate unavailable, rejecting send")
		return nil, fmt.Errorf("%w: %v", ErrGateUnavailable, err)
	}
	if !res.Allowed {
		return nil, ErrRateLimited
	}

	if _, err := repo.GetChatroom(ctx, s.DB, chatroomID, userID); err != nil {
		if isNotFound(err) {
			return nil, ErrChatroomNotFound
		}
		return nil, err
	}

	var msg *domain.Message
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.CreateMessage(tx, chatroomID, userID, domain.RoleUser, content)
		if err != nil {
			return err
		}
		msg = m
		return repo.TouchChatroom(ctx, tx, chatroomID, m.CreatedAt)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateListing(ctx, userID)

	jobID, err := s.Queue.Enqueue(ctx, queue.Payload{
		ChatroomID: chatroomID,
		UserID:     userID,
		Content:    content,
	})
	if err != nil {
		// The user message is already committed; the reply will never arrive.
		// Surfacing the failure beats silently eating the job.
		log.Error().Err(err).Str("chatroom_id", chatroomID).Msg("reply job enqueue failed")
		return &SendResult{Message: msg, Remaining: res.Remaining}, fmt.Errorf("%w: %v", ErrEnqueueFailed, err)
	}

	span.SetAttributes(attribute.String("job.id", jobID))
	return &SendResult{Message: msg, JobID: jobID, Remaining: res.Remaining}, nil
}

func (s *MessageService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// invalidateListing drops the sender's cached chatroom listing; a new message
// changes the room ordering.
func (s *MessageService) invalidateListing(ctx context.Context, userID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("chatroom cache invalidation failed")
	}
}
