package password

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/tendant/simple-accounts/internal/http/features/common"
	"github.com/tendant/simple-accounts/internal/http/middleware"
	"github.com/tendant/simple-accounts/internal/httputil"
	"github.com/tendant/simple-accounts/internal/metrics"
	"github.com/tendant/simple-accounts/pkg/accounts"
	"github.com/tendant/simple-accounts/pkg/auth"
	"github.com/tendant/simple-accounts/pkg/domain"
	"github.com/tendant/simple-accounts/pkg/session"
)

// AccountStore is the part of accounts.Store the password endpoints use.
type AccountStore interface {
	Register(ctx context.Context, in accounts.RegisterInput) (*domain.Account, error)
	LoginWithLockout(ctx context.Context, sess *session.Session, email, password string) (accounts.LoginOutcome, error)
}

// Handler handles password registration and login.
type Handler struct {
	logger    *slog.Logger
	store     AccountStore
	policy    auth.PasswordPolicy
	validator *validator.Validate
}

// NewHandler creates a new password handler.
func NewHandler(logger *slog.Logger, store AccountStore, policy auth.PasswordPolicy) *Handler {
	return &Handler{
		logger:    logger,
		store:     store,
		policy:    policy,
		validator: common.NewValidator(),
	}
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	UserName   string `json:"user_name" validate:"required,max=100"`
	FamilyName string `json:"family_name" validate:"max=100"`
	FirstName  string `json:"first_name" validate:"max=100"`
	Email      string `json:"email" validate:"required,max=254"`
	Password   string `json:"password" validate:"required,max=256"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=256"`
}

// LoginResponse is returned on a successful login.
type LoginResponse struct {
	Account *domain.Account `json:"account"`
}

// Register handles account registration.
// POST /v1/accounts/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.DecodeJSON(w, r, &req) {
		metrics.RecordRegistration("invalid")
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		metrics.RecordRegistration("invalid")
		httputil.ValidationError(w, common.ValidationMessages(err))
		return
	}
	if err := auth.ValidateEmail(req.Email); err != nil {
		metrics.RecordRegistration("invalid")
		httputil.Error(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if err := h.policy.Validate(req.Password); err != nil {
		metrics.RecordRegistration("invalid")
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := h.store.Register(r.Context(), accounts.RegisterInput{
		UserName:   req.UserName,
		FamilyName: req.FamilyName,
		FirstName:  req.FirstName,
		Email:      req.Email,
		Password:   req.Password,
	})
	if errors.Is(err, domain.ErrPasswordTooLong) {
		metrics.RecordRegistration("invalid")
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		metrics.RecordRegistration("error")
		httputil.Error(w, http.StatusInternalServerError, "registration failed")
		return
	}
	if account == nil {
		metrics.RecordRegistration("duplicate")
		httputil.Error(w, http.StatusConflict, "account already exists")
		return
	}

	metrics.RecordRegistration("created")
	httputil.JSON(w, http.StatusCreated, account)
}

// Login handles password login with lockout.
// POST /v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		httputil.ValidationError(w, common.ValidationMessages(err))
		return
	}

	sess := middleware.GetSession(r.Context())
	if sess == nil {
		h.logger.ErrorContext(r.Context(), "login without session middleware")
		httputil.Error(w, http.StatusInternalServerError, "login failed")
		return
	}

	outcome, err := h.store.LoginWithLockout(r.Context(), sess, req.Email, req.Password)
	if err != nil {
		var se *accounts.StorageError
		if !errors.As(err, &se) {
			h.logger.ErrorContext(r.Context(), "login failed", "error", err)
		}
		metrics.RecordLogin("error")
		httputil.Error(w, http.StatusInternalServerError, "login failed")
		return
	}
	metrics.RecordLogin(outcome.String())

	switch outcome {
	case accounts.LoginSucceeded:
		sess.Renew()
		account, _ := accounts.CurrentAccount(sess)
		httputil.JSON(w, http.StatusOK, LoginResponse{Account: account})
	case accounts.LoginLocked, accounts.LoginNowLocked:
		msg := sess.ErrorMessage()
		sess.Unset(session.KeyError)
		httputil.Error(w, http.StatusLocked, msg)
	default:
		httputil.Error(w, http.StatusUnauthorized, "invalid email or password")
	}
}
