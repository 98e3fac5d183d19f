// Package services – ChatroomService
//
// This file implements the ChatroomService, which manages chatroom lifecycle:
// creation, cached listing, and detail retrieval with message history. The
// listing path reads through the per-user cache and reports whether the result
// was served from it; write paths invalidate the owner's cache entry so
// listings reflect new rooms promptly rather than waiting out the TTL.
//
// Service-level errors (e.g., ErrChatroomNotFound) are returned for
// predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"chatroom-backend/internal/cache"
	"chatroom-backend/internal/domain"
)

// ChatroomRepo defines the repository contract required by ChatroomService.
type ChatroomRepo interface {
	// CreateChatroom inserts a new chatroom row for the given user.
	CreateChatroom(ctx context.Context, db *gorm.DB, userID, name string) (*domain.Chatroom, error)

	// ListChatrooms returns the user's chatrooms, most recently active first.
	ListChatrooms(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chatroom, error)

	// GetChatroom fetches a chatroom by ID ensuring it belongs to the user.
	GetChatroom(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chatroom, error)

	// ListMessages returns a chatroom's messages in chronological order.
	ListMessages(ctx context.Context, db *gorm.DB, chatroomID string, limit int) ([]domain.Message, error)
}

// ChatroomService provides chatroom-level operations: creating rooms,
// listing them through the read cache, and loading room detail together
// with conversation history. Ownership is enforced on every lookup.
type ChatroomService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the chatroom repository used by this service.
	Repo ChatroomRepo
	// Cache holds per-user listing snapshots.
	Cache cache.ChatroomCache

	// NameMaxLen caps stored chatroom names by rune length.
	NameMaxLen int
}

// NewChatroomService constructs a ChatroomService with default name limits.
func NewChatroomService(db *gorm.DB, r ChatroomRepo, c cache.ChatroomCache) *ChatroomService {
	return &ChatroomService{DB: db, Repo: r, Cache: c, NameMaxLen: 100}
}

// Create inserts a new chatroom owned by userID and invalidates the owner's
// cached listing. Names are trimmed and must be non-empty.
func (s *ChatroomService) Create(ctx context.Context, userID, name string) (*domain.Chatroom, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if s.NameMaxLen > 0 && utf8.RuneCountInString(name) > s.NameMaxLen {
		name = clipRunes(name, s.NameMaxLen)
	}

	room, err := s.Repo.CreateChatroom(ctx, s.DB, userID, name)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return room, nil
}

// List returns all chatrooms for a user ordered by recent activity.
// The boolean result reports whether the listing was served from cache.
func (s *ChatroomService) List(ctx context.Context, userID string) ([]domain.Chatroom, bool, error) {
	if s.Cache != nil {
		rooms, hit, err := s.Cache.Get(ctx, userID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("chatroom cache read failed")
		} else if hit {
			return rooms, true, nil
		}
	}

	rooms, err := s.Repo.ListChatrooms(ctx, s.DB, userID)
	if err != nil {
		return nil, false, err
	}
	if s.Cache != nil {
		if err := s.Cache.Set(ctx, userID, rooms); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("chatroom cache write failed")
		}
	}
	return rooms, false, nil
}

// Detail returns a chatroom and its message history in chronological order.
// limit <= 0 loads the full history. Returns ErrChatroomNotFound when the
// room does not exist or belongs to another user.
func (s *ChatroomService) Detail(ctx context.Context, userID, chatroomID string, limit int) (*domain.Chatroom, []domain.Message, error) {
	room, err := s.Repo.GetChatroom(ctx, s.DB, chatroomID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrChatroomNotFound
		}
		return nil, nil, err
	}

	msgs, err := s.Repo.ListMessages(ctx, s.DB, room.ID, limit)
	if err != nil {
		return nil, nil, err
	}
	return room, msgs, nil
}

// invalidate drops the user's cached listing, logging on failure. The TTL
// covers entries that survive a failed invalidation.
func (s *ChatroomService) invalidate(ctx context.Context, userID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("chatroom cache invalidation failed")
	}
}

// clipRunes truncates s to at most n runes.
func clipRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
