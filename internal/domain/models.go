// Package domain defines the persistence models for users, chatrooms, and
// messages. These types are mapped with GORM and form the core data layer
// of the chatroom application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Tier is a subscription level controlling rate-limit eligibility.
type Tier string

const (
	// TierBasic is the free tier, capped at a daily message quota.
	TierBasic Tier = "BASIC"
	// TierPro is the paid tier with no daily message cap.
	TierPro Tier = "PRO"
)

// Message author roles. AI-generated replies are stored with RoleAssistant so
// authorship is never conflated with the triggering human user.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// User represents a registered account identified by mobile number.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Mobile: unique login identifier.
//   - PasswordHash: bcrypt hash of the password; never serialized.
//   - Tier: subscription tier (BASIC | PRO), flipped by billing webhooks.
//   - StripeCustomerID / StripeSubscriptionID: optional external billing refs.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID                   string    `json:"id"     gorm:"type:char(36);primaryKey"`
	Mobile               string    `json:"mobile" gorm:"type:varchar(32);not null;uniqueIndex:ux_users_mobile"`
	PasswordHash         string    `json:"-"      gorm:"type:varchar(128);not null"`
	Tier                 Tier      `json:"tier"   gorm:"type:varchar(16);not null;default:'BASIC';check:tier IN ('BASIC','PRO')"`
	StripeCustomerID     *string   `json:"-"      gorm:"type:varchar(64);index"`
	StripeSubscriptionID *string   `json:"-"      gorm:"type:varchar(64);index"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Chatroom represents a conversation owned by exactly one user. Rooms are
// created on demand and never deleted in the current scope; UpdatedAt moves
// forward whenever a message is appended and drives listing order.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: identifier of the room owner; indexed for listing queries.
//   - Name: human-readable room name (required at creation).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Chatroom struct {
	ID        string    `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:char(36);not null;index:idx_user_chatrooms"`
	Name      string    `json:"name"    gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`
}

// TableName returns the database table name for Chatroom.
func (Chatroom) TableName() string { return "chatrooms" }

// Message represents a single utterance within a chatroom. Messages are
// append-only: never updated or deleted, ordered by creation time ascending.
// Each message is authored either by the "user" or by the "assistant"
// (the asynchronous AI reply).
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ChatroomID: foreign key to the owning room (indexed with CreatedAt).
//   - UserID: id of the human whose request produced this message; for
//     assistant messages this is the user the reply was generated for.
//   - Role: "user" or "assistant" (enforced by DB constraint).
//   - Content: full text content of the message.
//   - CreatedAt: append timestamp, part of the ordering index.
//   - Chatroom: FK association, ensures cascade delete/update.
type Message struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	ChatroomID string    `json:"chatroom_id" gorm:"type:char(36);not null;index:idx_room_msgs,priority:1"`
	UserID     string    `json:"user_id"     gorm:"type:char(36);not null;index"`
	Role       string    `json:"role"        gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content    string    `json:"content"     gorm:"type:text;not null"`
	CreatedAt  time.Time `json:"created_at"  gorm:"index:idx_room_msgs,priority:2"`

	// Chatroom is the parent conversation. Messages are cascade-deleted
	// if their room is ever removed.
	Chatroom Chatroom `json:"-" gorm:"foreignKey:ChatroomID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Feedback represents a user-provided rating on a specific assistant message.
// A user can only leave one feedback entry per message (enforced by unique index).
type Feedback struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	MessageID string         `json:"message_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_feedback_message_user"`
	UserID    string         `json:"user_id"    gorm:"type:char(36);not null;index;uniqueIndex:ux_feedback_message_user"`
	Value     int            `json:"value"      gorm:"not null;check:value IN (-1,1)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	// Message is the rated assistant message. Feedback is cascade-deleted
	// if the underlying message is removed.
	Message Message `json:"-" gorm:"foreignKey:MessageID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "feedback" }
