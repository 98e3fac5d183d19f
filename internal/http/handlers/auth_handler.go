// Authentication HTTP handlers.
//
// This file exposes REST endpoints for account management:
//   - POST /auth/signup           (register with mobile + password)
//   - POST /auth/login            (password login)
//   - POST /auth/otp/send         (request one-time login code)
//   - POST /auth/otp/verify       (exchange code for a token)
//   - POST /auth/forgot-password  (reset password with a code)
//   - POST /auth/change-password  (authenticated password change)
//   - GET  /user/me               (current account)
//
// Successful logins return a bearer token; protected routes expect it in the
// Authorization header.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatroom-backend/internal/domain"
	"chatroom-backend/internal/services"
)

// AuthService defines account operations consumed by HTTP handlers.
type AuthService interface {
	Signup(ctx context.Context, mobile, password string) (*domain.User, error)
	Login(ctx context.Context, mobile, password string) (string, *domain.User, error)
	SendOTP(ctx context.Context, mobile string) (string, error)
	VerifyOTP(ctx context.Context, mobile, code string) (string, *domain.User, error)
	ResetPassword(ctx context.Context, mobile, code, newPassword string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	Me(ctx context.Context, userID string) (*domain.User, error)
}

// SignupRequest is the JSON payload for account registration.
type SignupRequest struct {
	Mobile   string `json:"mobile" binding:"required" example:"+15550001111"`
	Password string `json:"password" binding:"required,min=6" example:"hunter22"`
}

// LoginRequest is the JSON payload for password login.
type LoginRequest struct {
	Mobile   string `json:"mobile" binding:"required" example:"+15550001111"`
	Password string `json:"password" binding:"required" example:"hunter22"`
}

// SendOTPRequest asks for a one-time code for the given mobile number.
type SendOTPRequest struct {
	Mobile string `json:"mobile" binding:"required" example:"+15550001111"`
}

// VerifyOTPRequest exchanges a one-time code for a token.
type VerifyOTPRequest struct {
	Mobile string `json:"mobile" binding:"required" example:"+15550001111"`
	Code   string `json:"code" binding:"required" example:"482913"`
}

// ForgotPasswordRequest resets a password using a one-time code.
type ForgotPasswordRequest struct {
	Mobile      string `json:"mobile" binding:"required" example:"+15550001111"`
	Code        string `json:"code" binding:"required" example:"482913"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// ChangePasswordRequest is the JSON payload for a password change.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// TokenResponse carries a bearer token and the authenticated user.
type TokenResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// SendOTPResponse echoes the generated one-time code. With no SMS gateway
// configured the code is returned directly to the caller.
type SendOTPResponse struct {
	Code string `json:"code" example:"482913"`
}

// Signup godoc
// @ID          signup
// @Summary     Register a new account
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.SignupRequest  true  "Signup payload"
// @Success     201  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid payload"
// @Failure     409  {object}  handlers.ErrorResponse  "Mobile already registered"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/signup [post]
func (h *Handlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mobile and password required")
		return
	}

	user, err := h.authSvc.Signup(c.Request.Context(), req.Mobile, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMobileTaken):
			fail(c, http.StatusConflict, ErrCodeConflict, "mobile already registered")
		case errors.Is(err, services.ErrInvalidCredentials):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, user)
}

// Login godoc
// @ID          login
// @Summary     Log in with mobile and password
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.LoginRequest  true  "Login payload"
// @Success     200  {object}  handlers.TokenResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid payload"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid credentials"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mobile and password required")
		return
	}

	token, user, err := h.authSvc.Login(c.Request.Context(), req.Mobile, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, ErrCodeAuthFailed, "invalid credentials")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, TokenResponse{Token: token, User: user})
}

// SendOTP godoc
// @ID          sendOTP
// @Summary     Request a one-time login code
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.SendOTPRequest  true  "OTP request payload"
// @Success     200  {object}  handlers.SendOTPResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid payload"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown mobile"
// @Router      /auth/otp/send [post]
func (h *Handlers) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mobile required")
		return
	}

	code, err := h.authSvc.SendOTP(c.Request.Context(), req.Mobile)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "unknown mobile number")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, SendOTPResponse{Code: code})
}

// VerifyOTP godoc
// @ID          verifyOTP
// @Summary     Exchange a one-time code for a token
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.VerifyOTPRequest  true  "OTP verification payload"
// @Success     200  {object}  handlers.TokenResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid payload"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid or expired code"
// @Router      /auth/otp/verify [post]
func (h *Handlers) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mobile and code required")
		return
	}

	token, user, err := h.authSvc.VerifyOTP(c.Request.Context(), req.Mobile, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidOTP):
			fail(c, http.StatusUnauthorized, ErrCodeAuthFailed, "invalid or expired code")
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "unknown mobile number")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, TokenResponse{Token: token, User: user})
}

// ForgotPassword godoc
// @ID          forgotPassword
// @Summary     Reset password with a one-time code
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.ForgotPasswordRequest  true  "Reset payload"
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid payload"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid or expired code"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown mobile"
// @Router      /auth/forgot-password [post]
func (h *Handlers) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mobile, code and new password required")
		return
	}

	if err := h.authSvc.ResetPassword(c.Request.Context(), req.Mobile, req.Code, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidOTP):
			fail(c, http.StatusUnauthorized, ErrCodeAuthFailed, "invalid or expired code")
		case errors.Is(err, services.ErrInvalidCredentials):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "unknown mobile number")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

// Me godoc
// @ID          me
// @Summary     Get the current account
// @Tags        Auth
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  domain.User
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /user/me [get]
func (h *Handlers) Me(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}

	user, err := h.authSvc.Me(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "unknown user")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, user)
}

// ChangePassword godoc
// @ID          changePassword
// @Summary     Change the current user's password
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  handlers.ChangePasswordRequest  true  "Change password payload"
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid payload"
// @Failure     401  {object}  handlers.ErrorResponse  "Wrong old password"
// @Router      /auth/change-password [post]
func (h *Handlers) ChangePassword(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "old and new password required")
		return
	}

	if err := h.authSvc.ChangePassword(c.Request.Context(), uid, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			fail(c, http.StatusUnauthorized, ErrCodeAuthFailed, "invalid credentials")
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "unknown user")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}
