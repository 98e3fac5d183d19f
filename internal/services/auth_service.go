// Package services – AuthService
//
// This file implements AuthService: signup with a bcrypt-hashed password,
// login by password or by a short-lived one-time code, and password changes.
// Successful logins mint an HS256 JWT whose subject is the user id; the HTTP
// middleware validates it on protected routes.
//
// One-time codes live in the OTP store under the caller's mobile number and
// expire on their own; a code is consumed on first successful verification.
// There is no SMS gateway wired in, so SendOTP returns the code to the caller.
package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"chatroom-backend/internal/domain"
	"chatroom-backend/internal/repo"
)

var mobilePattern = regexp.MustCompile(`^\+?[0-9]{8,15}$`)

const minPasswordLen = 6

// OTPStore persists one-time login codes keyed by mobile number.
type OTPStore interface {
	// Set stores code under mobile with the given expiry, replacing any
	// previous code.
	Set(ctx context.Context, mobile, code string, ttl time.Duration) error
	// Get returns the unexpired code for mobile, or "" when none exists.
	Get(ctx context.Context, mobile string) (string, error)
	// Del removes the code for mobile, if any.
	Del(ctx context.Context, mobile string) error
}

// RedisOTPStore keeps one-time codes in Redis with a server-side TTL.
type RedisOTPStore struct {
	Client *redis.Client
}

func otpKey(mobile string) string { return "otp:" + mobile }

// Set stores the code with an expiry enforced by Redis.
func (s *RedisOTPStore) Set(ctx context.Context, mobile, code string, ttl time.Duration) error {
	return s.Client.Set(ctx, otpKey(mobile), code, ttl).Err()
}

// Get returns the stored code, or "" when the key is absent or expired.
func (s *RedisOTPStore) Get(ctx context.Context, mobile string) (string, error) {
	v, err := s.Client.Get(ctx, otpKey(mobile)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

// Del removes the stored code.
func (s *RedisOTPStore) Del(ctx context.Context, mobile string) error {
	return s.Client.Del(ctx, otpKey(mobile)).Err()
}

// AuthService provides account creation and authentication.
type AuthService struct {
	DB  *gorm.DB
	OTP OTPStore

	JWTSecret []byte
	JWTTTL    time.Duration
	OTPTTL    time.Duration

	// Now supplies token timestamps; defaults to time.Now.
	Now func() time.Time
}

// Signup registers a new account under a mobile number. The password is
// stored as a bcrypt hash; new accounts start on the BASIC tier.
func (s *AuthService) Signup(ctx context.Context, mobile, password string) (*domain.User, error) {
	mobile = strings.TrimSpace(mobile)
	if !mobilePattern.MatchString(mobile) {
		return nil, fmt.Errorf("%w: invalid mobile number", ErrInvalidCredentials)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password too short", ErrInvalidCredentials)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user, err := repo.CreateUser(ctx, s.DB, mobile, string(hash))
	if err != nil {
		if err == repo.ErrDuplicateMobile {
			return nil, ErrMobileTaken
		}
		return nil, err
	}
	return user, nil
}

// Login authenticates by mobile and password and returns a signed token.
func (s *AuthService) Login(ctx context.Context, mobile, password string) (string, *domain.User, error) {
	user, err := repo.GetUserByMobile(ctx, s.DB, strings.TrimSpace(mobile))
	if err != nil {
		if isNotFound(err) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.issueToken(user)
	return token, user, err
}

// SendOTP generates a one-time login code for a registered mobile number and
// stores it with the configured TTL. The code is returned for delivery.
func (s *AuthService) SendOTP(ctx context.Context, mobile string) (string, error) {
	mobile = strings.TrimSpace(mobile)
	if _, err := repo.GetUserByMobile(ctx, s.DB, mobile); err != nil {
		if isNotFound(err) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	code, err := randomCode(6)
	if err != nil {
		return "", err
	}
	if err := s.OTP.Set(ctx, mobile, code, s.OTPTTL); err != nil {
		return "", err
	}
	return code, nil
}

// VerifyOTP checks a one-time code and, on success, consumes it and returns
// a signed token for the account.
func (s *AuthService) VerifyOTP(ctx context.Context, mobile, code string) (string, *domain.User, error) {
	mobile = strings.TrimSpace(mobile)
	stored, err := s.OTP.Get(ctx, mobile)
	if err != nil {
		return "", nil, err
	}
	if stored == "" || stored != strings.TrimSpace(code) {
		return "", nil, ErrInvalidOTP
	}
	if err := s.OTP.Del(ctx, mobile); err != nil {
		return "", nil, err
	}

	user, err := repo.GetUserByMobile(ctx, s.DB, mobile)
	if err != nil {
		if isNotFound(err) {
			return "", nil, ErrUserNotFound
		}
		return "", nil, err
	}
	token, err := s.issueToken(user)
	return token, user, err
}

// ResetPassword sets a new password for mobile after verifying a one-time
// code. The code is consumed on success, so a stolen reset link cannot be
// replayed.
func (s *AuthService) ResetPassword(ctx context.Context, mobile, code, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return fmt.Errorf("%w: password too short", ErrInvalidCredentials)
	}
	mobile = strings.TrimSpace(mobile)
	stored, err := s.OTP.Get(ctx, mobile)
	if err != nil {
		return err
	}
	if stored == "" || stored != strings.TrimSpace(code) {
		return ErrInvalidOTP
	}
	if err := s.OTP.Del(ctx, mobile); err != nil {
		return err
	}

	user, err := repo.GetUserByMobile(ctx, s.DB, mobile)
	if err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return repo.UpdateUserPassword(ctx, s.DB, user.ID, string(hash))
}

// Me returns the account behind userID.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces the caller's password after verifying the old one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return fmt.Errorf("%w: password too short", ErrInvalidCredentials)
	}
	user, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return repo.UpdateUserPassword(ctx, s.DB, userID, string(hash))
}

// issueToken signs an HS256 JWT with the user id as subject.
func (s *AuthService) issueToken(user *domain.User) (string, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	t := now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(t),
		ExpiresAt: jwt.NewNumericDate(t.Add(s.JWTTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.JWTSecret)
}

// randomCode returns n decimal digits from a CSPRNG.
func randomCode(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%d", d.Int64())
	}
	return b.String(), nil
}
