// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message model.
package repo

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chatroom-backend/internal/domain"
)

// CreateMessage inserts a new message row. The role must be one of
// domain.RoleUser or domain.RoleAssistant; the DB check constraint rejects
// anything else.
func CreateMessage(db *gorm.DB, chatroomID, userID, role, content string) (*domain.Message, error) {
	m := &domain.Message{
		ID:         uuid.NewString(),
		ChatroomID: chatroomID,
		UserID:     userID,
		Role:       role,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	return m, db.Create(m).Error
}

// ListMessages returns messages ordered deterministically (CreatedAt ASC, ID ASC).
// A limit <= 0 returns the full history.
func ListMessages(db *gorm.DB, chatroomID string, limit int) ([]domain.Message, error) {
	var out []domain.Message
	q := db.Where("chatroom_id = ?", chatroomID).Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(db *gorm.DB, chatroomID string) (int64, error) {
	var total int64
	err := db.Raw("SELECT COUNT(*) FROM messages WHERE chatroom_id = ?", chatroomID).Scan(&total).Error
	return total, err
}

// GetMessage fetches a message by ID.
func GetMessage(db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
