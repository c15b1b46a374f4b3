package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-verify-api/internal/domain"
	"github.com/go-verify-api/internal/pkg/keylock"
	"github.com/go-verify-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

type SignupRequest struct {
	ID       string `json:"id" validate:"required"`
	Password string `json:"password"`
	// State correlates the signup with a prior OAuth callback; taken from the query string.
	State string `json:"-"`
}

// SignupResult reports the verification outcome of a signup. SilentAttempted is
// true when the network check was tried, whatever its result.
type SignupResult struct {
	Verified        bool
	SilentAttempted bool
}

type ConfirmRequest struct {
	ID   string `json:"id" validate:"required,phone_or_email"`
	Code string `json:"code" validate:"required,digits"`
}

type CallbackRequest struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

type AuthorizeRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
	State string `json:"state" validate:"required"`
}

type Service interface {
	Signup(ctx context.Context, req SignupRequest) (*SignupResult, error)
	Confirm(ctx context.Context, req ConfirmRequest) (bool, error)
	Callback(ctx context.Context, req CallbackRequest) error
	Authorize(ctx context.Context, req AuthorizeRequest) (string, error)
	// Wait blocks until every background code dispatch has finished.
	Wait()
}

// UserStore is the credential store. FindByID and Insert compare ids
// case-insensitively; Insert fails with domain.ErrConflict on duplicates.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Insert(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
}

// TokenCache holds provider access tokens keyed by OAuth state until they expire.
type TokenCache interface {
	Put(ctx context.Context, state, token string) error
	Take(ctx context.Context, state string) (string, error)
}

// CodeVerifier delivers and checks one-time codes.
type CodeVerifier interface {
	DispatchCode(ctx context.Context, to string, ch domain.Channel) (string, error)
	ConfirmCode(ctx context.Context, requestID, code string) bool
}

// TokenExchanger completes an OAuth2 authorization-code grant.
type TokenExchanger interface {
	ExchangeAuthorizationCode(ctx context.Context, code, redirectURI string) (string, error)
}

// NetworkVerifier performs the silent carrier-based number check and starts
// the authorization flow that precedes it.
type NetworkVerifier interface {
	CheckNetworkVerification(ctx context.Context, accessToken, phone string) bool
	Authorize(ctx context.Context, phone, state string) (string, error)
}

type ServiceDeps struct {
	Users           UserStore
	Tokens          TokenCache
	Codes           CodeVerifier
	Exchanger       TokenExchanger
	Network         NetworkVerifier
	RedirectURI     string
	DispatchTimeout time.Duration
	BcryptCost      int
}

type service struct {
	users           UserStore
	tokens          TokenCache
	codes           CodeVerifier
	exchanger       TokenExchanger
	network         NetworkVerifier
	redirectURI     string
	dispatchTimeout time.Duration
	bcryptCost      int
	locks           *keylock.Locker
	inflight        sync.WaitGroup
	now             func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		users:           deps.Users,
		tokens:          deps.Tokens,
		codes:           deps.Codes,
		exchanger:       deps.Exchanger,
		network:         deps.Network,
		redirectURI:     deps.RedirectURI,
		dispatchTimeout: deps.DispatchTimeout,
		bcryptCost:      deps.BcryptCost,
		locks:           keylock.New(),
		now:             func() time.Time { return time.Now().UTC() },
	}
	if s.dispatchTimeout <= 0 {
		s.dispatchTimeout = 30 * time.Second
	}
	if s.bcryptCost == 0 {
		s.bcryptCost = bcrypt.DefaultCost
	}
	return s
}

func (s *service) Signup(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("phone number or email is required: %w", domain.ErrBadRequest)
	}
	isEmail := validate.IsEmail(req.ID)
	if isEmail && req.Password == "" {
		return nil, fmt.Errorf("password is required for email signup: %w", domain.ErrBadRequest)
	}

	unlock := s.locks.Lock(domain.NormalizeID(req.ID))
	defer unlock()

	if _, err := s.users.FindByID(ctx, req.ID); err == nil {
		return nil, fmt.Errorf("user already exists: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	u := &domain.User{
		ID:            req.ID,
		IsPhoneNumber: validate.IsPhone(req.ID),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = string(hash)
	}

	res := &SignupResult{}
	channel := domain.ChannelSMS
	if isEmail {
		channel = domain.ChannelEmail
	} else if req.State != "" {
		res.SilentAttempted = true
		u.Verified = s.silentVerify(ctx, req.State, req.ID)
	}

	if err := s.users.Insert(ctx, u); err != nil {
		return nil, err
	}
	res.Verified = u.Verified
	if !u.Verified {
		s.dispatch(ctx, u.ID, channel)
	}
	return res, nil
}

// silentVerify reports whether the carrier confirms phone for the session that
// produced the access token cached under state. Any failure falls back to false.
func (s *service) silentVerify(ctx context.Context, state, phone string) bool {
	token, err := s.tokens.Take(ctx, state)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("token cache lookup failed", "err", err)
		}
		return false
	}
	return s.network.CheckNetworkVerification(ctx, token, phone)
}

// dispatch sends a code in the background. The signup response does not wait
// for it; on success the provider request id is attached to the stored user.
func (s *service) dispatch(ctx context.Context, id string, ch domain.Channel) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.dispatchTimeout)
		defer cancel()

		requestID, err := s.codes.DispatchCode(ctx, id, ch)
		if err != nil {
			slog.Error("failed to send verification code", "id", id, "channel", ch, "err", err)
			return
		}
		if err := s.attachRequestID(ctx, id, requestID); err != nil {
			slog.Error("failed to record verification request", "id", id, "err", err)
		}
	}()
}

func (s *service) attachRequestID(ctx context.Context, id, requestID string) error {
	unlock := s.locks.Lock(domain.NormalizeID(id))
	defer unlock()

	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	u.VerificationRequestID = requestID
	u.UpdatedAt = s.now()
	return s.users.Update(ctx, u)
}

func (s *service) Confirm(ctx context.Context, req ConfirmRequest) (bool, error) {
	if err := validate.Struct(req); err != nil {
		return false, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}

	unlock := s.locks.Lock(domain.NormalizeID(req.ID))
	defer unlock()

	u, err := s.users.FindByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		return false, err
	}
	if u.Verified {
		return true, domain.ErrNotModified
	}

	// An empty request id means the dispatch has not completed yet; the
	// verifier fails closed and the client may retry.
	u.Verified = s.codes.ConfirmCode(ctx, u.VerificationRequestID, req.Code)
	u.UpdatedAt = s.now()
	if err := s.users.Update(ctx, u); err != nil {
		return false, err
	}
	return u.Verified, nil
}

func (s *service) Callback(ctx context.Context, req CallbackRequest) error {
	if req.Error != "" {
		msg := req.Error
		if req.ErrorDescription != "" {
			msg = req.ErrorDescription
		}
		if domain.IsUnknownSubscriber(msg) {
			return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
		}
		return fmt.Errorf("%s: %w", msg, domain.ErrBadRequest)
	}
	if req.Code == "" || req.State == "" {
		return fmt.Errorf("code and state are required: %w", domain.ErrBadRequest)
	}

	token, err := s.exchanger.ExchangeAuthorizationCode(ctx, req.Code, s.redirectURI)
	if err != nil {
		return err
	}
	return s.tokens.Put(ctx, req.State, token)
}

func (s *service) Authorize(ctx context.Context, req AuthorizeRequest) (string, error) {
	if err := validate.Struct(req); err != nil {
		return "", fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	return s.network.Authorize(ctx, req.Phone, req.State)
}

func (s *service) Wait() { s.inflight.Wait() }
