package services

import (
	"errors"

	"gorm.io/gorm"

	"chatroom-backend/internal/repo"
)

// Sentinel errors shared by the service layer. HTTP handlers map these to
// stable status codes, so new sentinels need a corresponding handler case.
var (
	// ErrChatroomNotFound indicates the chatroom does not exist or is not
	// owned by the requesting user. The two cases are deliberately
	// indistinguishable to callers.
	ErrChatroomNotFound = errors.New("chatroom not found")

	// ErrUserNotFound indicates the authenticated user id has no backing row.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmptyContent indicates message content was empty after trimming.
	ErrEmptyContent = errors.New("message content must not be empty")

	// ErrContentTooLong indicates message content exceeded the maximum length.
	ErrContentTooLong = errors.New("message content too long")

	// ErrNameRequired indicates a chatroom name was empty after trimming.
	ErrNameRequired = errors.New("chatroom name must not be empty")

	// ErrRateLimited indicates the user exhausted the daily message allowance.
	ErrRateLimited = errors.New("daily message limit reached")

	// ErrGateUnavailable indicates the allowance could not be evaluated
	// because the counter store was unreachable. The send is rejected
	// (fail closed) but the user is not over their limit; handlers map
	// this to a server error, not 429.
	ErrGateUnavailable = errors.New("rate gate unavailable")

	// ErrMobileTaken indicates signup with an already registered mobile number.
	ErrMobileTaken = errors.New("mobile number already registered")

	// ErrInvalidCredentials indicates a failed password check.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidOTP indicates a missing, expired, or mismatched one-time code.
	ErrInvalidOTP = errors.New("invalid or expired verification code")

	// ErrMessageNotFound indicates the referenced message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrInvalidFeedback indicates a feedback value outside {-1, 1}.
	ErrInvalidFeedback = errors.New("feedback value must be -1 or 1")

	// ErrForbiddenFeedback indicates feedback on a message outside the
	// caller's chatrooms, or on a message that is not an assistant reply.
	ErrForbiddenFeedback = errors.New("feedback not allowed for this message")

	// ErrDuplicateFeedback indicates repeated feedback on the same message.
	ErrDuplicateFeedback = errors.New("feedback already recorded")

	// ErrEnqueueFailed indicates the reply job could not be queued. The user
	// message is already persisted when this is returned.
	ErrEnqueueFailed = errors.New("failed to enqueue reply job")
)

// isNotFound reports whether err is a row-missing error from the repository
// layer, in either its wrapped or raw GORM form.
func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
