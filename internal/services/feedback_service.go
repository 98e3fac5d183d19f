// Package services – FeedbackService
//
// This file implements the FeedbackService, which governs how users leave
// feedback (-1 or +1) on assistant replies. It enforces business rules
// (message existence, chatroom ownership, assistant-only restriction,
// uniqueness) and persists feedback atomically. Service-level errors
// (e.g. ErrInvalidFeedback, ErrForbiddenFeedback) are returned for
// predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"chatroom-backend/internal/domain"
	"chatroom-backend/internal/repo"
)

// FeedbackService implements the use-cases around message feedback. Each call
// runs its own transaction so the ownership checks and the insert are atomic.
type FeedbackService struct {
	// DB is the database handle used for all feedback operations.
	DB *gorm.DB
}

// Leave records a feedback value for messageID on behalf of userID.
//
// Validation:
//   - value must be exactly -1 or 1; otherwise ErrInvalidFeedback.
//   - messageID must exist; otherwise ErrMessageNotFound.
//   - The message must live in a chatroom owned by userID and must be an
//     assistant reply; otherwise ErrForbiddenFeedback.
//   - At most one feedback per (message, user); repeats yield
//     ErrDuplicateFeedback.
func (s *FeedbackService) Leave(ctx context.Context, userID, messageID string, value int) error {
	if value != -1 && value != 1 {
		return ErrInvalidFeedback
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msg, err := repo.GetMessage(tx, messageID)
		if err != nil {
			if isNotFound(err) {
				return ErrMessageNotFound
			}
			return err
		}

		// Ownership is established through the enclosing chatroom.
		if _, err := repo.GetChatroom(ctx, tx, msg.ChatroomID, userID); err != nil {
			return ErrForbiddenFeedback
		}

		if msg.Role != domain.RoleAssistant {
			return ErrForbiddenFeedback
		}

		if err := repo.CreateFeedback(ctx, tx, messageID, userID, value); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicate(err) {
				return ErrDuplicateFeedback
			}
			return err
		}
		return nil
	})
}

// isDuplicate detects unique-constraint violations on drivers that do not map
// them to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
