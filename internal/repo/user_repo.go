// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chatroom-backend/internal/domain"
)

// ErrDuplicateMobile indicates that a user with the given mobile number
// already exists (UNIQUE violation on users.mobile).
var ErrDuplicateMobile = errors.New("mobile already registered")

// CreateUser inserts a new BASIC-tier user. Returns ErrDuplicateMobile when
// the mobile number is already taken.
func CreateUser(ctx context.Context, db *gorm.DB, mobile, passwordHash string) (*domain.User, error) {
	u := &domain.User{
		ID:           uuid.NewString(),
		Mobile:       mobile,
		PasswordHash: passwordHash,
		Tier:         domain.TierBasic,
		CreatedAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return nil, ErrDuplicateMobile
		}
		return nil, err
	}
	return u, nil
}

// GetUser fetches a user by ID, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByMobile fetches a user by mobile number, or ErrNotFound.
func GetUserByMobile(ctx context.Context, db *gorm.DB, mobile string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("mobile = ?", mobile).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByStripeCustomer fetches a user by Stripe customer id, or ErrNotFound.
func GetUserByStripeCustomer(ctx context.Context, db *gorm.DB, customerID string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByStripeSubscription fetches a user by Stripe subscription id, or ErrNotFound.
func GetUserByStripeSubscription(ctx context.Context, db *gorm.DB, subscriptionID string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("stripe_subscription_id = ?", subscriptionID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUserPassword replaces the stored bcrypt hash. Returns ErrNotFound when
// no row matches.
func UpdateUserPassword(ctx context.Context, db *gorm.DB, id, passwordHash string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateUserStripeCustomer records the lazily created billing customer id.
func UpdateUserStripeCustomer(ctx context.Context, db *gorm.DB, id, customerID string) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("stripe_customer_id", customerID).Error
}

// UpdateUserTier sets the subscription tier and the external subscription
// reference (nil clears it). Used by the billing webhook handler.
func UpdateUserTier(ctx context.Context, db *gorm.DB, id string, tier domain.Tier, subscriptionID *string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"tier":                   tier,
			"stripe_subscription_id": subscriptionID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
