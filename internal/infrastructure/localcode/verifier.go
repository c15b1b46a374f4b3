// Package localcode issues and checks one-time codes without a remote
// verification provider. Codes go out over SNS (sms) or SMTP (email).
package localcode

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-verify-api/internal/domain"
	"github.com/go-verify-api/internal/infrastructure/smtp"
	"github.com/go-verify-api/internal/infrastructure/sns"
	"github.com/go-verify-api/internal/pkg/id"
	"github.com/go-verify-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

// MaxAttempts is how many wrong codes a request tolerates before it is dropped.
const MaxAttempts = 5

type pending struct {
	codeHash  []byte
	expiresAt time.Time
	attempts  int
}

type Verifier struct {
	mu      sync.Mutex
	pending map[string]*pending
	sms     sns.SMSSender
	mail    smtp.Mailer
	brand   string
	ttl     time.Duration
	cost    int
	nowF    func() time.Time
}

func NewVerifier(sms sns.SMSSender, mail smtp.Mailer, brand string, ttl time.Duration) *Verifier {
	return &Verifier{
		pending: make(map[string]*pending),
		sms:     sms,
		mail:    mail,
		brand:   brand,
		ttl:     ttl,
		cost:    bcrypt.DefaultCost,
		nowF:    time.Now,
	}
}

func (v *Verifier) DispatchCode(ctx context.Context, to string, ch domain.Channel) (string, error) {
	code, err := token.NewNumericCode()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), v.cost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}

	text := fmt.Sprintf("Your %s verification code is %s", v.brand, code)
	switch ch {
	case domain.ChannelEmail:
		err = v.mail.SendEmail(to, v.brand+" verification code", text)
	case domain.ChannelSMS:
		err = v.sms.SendSMS(ctx, to, text)
	default:
		err = fmt.Errorf("unsupported channel %q", ch)
	}
	if err != nil {
		return "", &domain.ProviderError{Op: "send code", Message: err.Error()}
	}

	requestID := strings.ToLower(id.New())
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sweepLocked()
	v.pending[requestID] = &pending{codeHash: hash, expiresAt: v.nowF().Add(v.ttl)}
	return requestID, nil
}

// ConfirmCode reports whether code matches the one sent for requestID.
// A match consumes the request; unknown or expired ids never match.
// The hash comparison runs without the lock; only one concurrent caller can
// consume a request.
func (v *Verifier) ConfirmCode(_ context.Context, requestID, code string) bool {
	// An empty id was never issued.
	if requestID == "" {
		return false
	}
	v.mu.Lock()
	p, ok := v.pending[requestID]
	if ok && !v.nowF().Before(p.expiresAt) {
		delete(v.pending, requestID)
		ok = false
	}
	var hash []byte
	if ok {
		hash = p.codeHash
	}
	v.mu.Unlock()
	if !ok {
		return false
	}

	match := bcrypt.CompareHashAndPassword(hash, []byte(code)) == nil

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pending[requestID] != p {
		// Consumed or dropped while comparing.
		return false
	}
	if !match {
		p.attempts++
		if p.attempts >= MaxAttempts {
			slog.Info("verification request exhausted", "request_id", requestID)
			delete(v.pending, requestID)
		}
		return false
	}
	delete(v.pending, requestID)
	return true
}

// Len returns the number of outstanding requests.
func (v *Verifier) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.pending)
}

func (v *Verifier) sweepLocked() {
	now := v.nowF()
	for k, p := range v.pending {
		if !now.Before(p.expiresAt) {
			delete(v.pending, k)
		}
	}
}
