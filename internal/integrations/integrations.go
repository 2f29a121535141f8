// Package integrations acknowledges pushes to third-party marketing platforms. The external
// call is not made; each accepted push gets a signed receipt describing what would be sent.
package integrations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/HanTheDev/content-automation-api/internal/auth"
	"github.com/HanTheDev/content-automation-api/internal/validation"
)

const (
	Mailchimp       = "mailchimp"
	Social          = "social"
	AnalyticsImport = "analytics-import"
)

const StatusAccepted = "accepted"

type Receipt struct {
	ID          string    `json:"receiptId"`
	Integration string    `json:"integration"`
	Target      string    `json:"target"`
	Items       int       `json:"items"`
	Status      string    `json:"status"`
	Token       string    `json:"token"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// ErrInvalidReceipt is returned for tokens that are forged, expired or not receipts at all.
var ErrInvalidReceipt = errors.New("invalid receipt")

// Publisher hands a payload to an external platform and returns a receipt. Verify checks a
// receipt token handed back by a caller.
type Publisher interface {
	Publish(ctx context.Context, integration, target string, items int) (Receipt, error)
	Verify(ctx context.Context, token string) (Receipt, error)
}

// AckPublisher signs receipts without contacting the platform.
type AckPublisher struct {
	signer *auth.ReceiptSigner
	now    func() time.Time
	log    zerolog.Logger
}

func NewAckPublisher(signer *auth.ReceiptSigner, log zerolog.Logger) *AckPublisher {
	return &AckPublisher{signer: signer, now: time.Now, log: log.With().Str("component", "integrations").Logger()}
}

func (p *AckPublisher) WithClock(now func() time.Time) *AckPublisher {
	p.now = now
	p.signer.WithClock(now)
	return p
}

func (p *AckPublisher) Publish(ctx context.Context, integration, target string, items int) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	id, token, err := p.signer.Sign(auth.ReceiptClaims{Integration: integration, Target: target, Items: items})
	if err != nil {
		return Receipt{}, fmt.Errorf("sign %s receipt: %w", integration, err)
	}
	p.log.Info().Str("integration", integration).Str("target", target).Int("items", items).
		Str("receipt_id", id).Msg("push acknowledged")
	return Receipt{
		ID:          id,
		Integration: integration,
		Target:      target,
		Items:       items,
		Status:      StatusAccepted,
		Token:       token,
		IssuedAt:    p.now(),
	}, nil
}

func (p *AckPublisher) Verify(ctx context.Context, token string) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	claims, err := p.signer.Verify(token)
	if err != nil {
		p.log.Debug().Err(err).Msg("receipt rejected")
		return Receipt{}, fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}
	return Receipt{
		ID:          claims.ID,
		Integration: claims.Integration,
		Target:      claims.Target,
		Items:       claims.Items,
		Status:      StatusAccepted,
		IssuedAt:    claims.IssuedAt.UTC(),
	}, nil
}

type Contact struct {
	Email     string   `json:"email"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

type RejectedContact struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// NormalizeContacts lowercases emails, drops invalid addresses and keeps the first
// occurrence of each address.
func NormalizeContacts(contacts []Contact) (accepted []Contact, rejected []RejectedContact, duplicates int) {
	accepted = []Contact{}
	rejected = []RejectedContact{}
	seen := map[string]bool{}
	for _, c := range contacts {
		email := strings.ToLower(strings.TrimSpace(c.Email))
		if validation.Var(email, "required,email") != nil {
			rejected = append(rejected, RejectedContact{Email: c.Email, Reason: "invalid email"})
			continue
		}
		if seen[email] {
			duplicates++
			continue
		}
		seen[email] = true
		c.Email = email
		accepted = append(accepted, c)
	}
	return accepted, rejected, duplicates
}

// PlatformLimits are post length limits in characters.
var PlatformLimits = map[string]int{
	"twitter":   280,
	"linkedin":  3000,
	"facebook":  63206,
	"instagram": 2200,
}

// SupportedPlatforms lists PlatformLimits keys in order.
func SupportedPlatforms() []string {
	out := make([]string, 0, len(PlatformLimits))
	for p := range PlatformLimits {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

type PlatformCheck struct {
	Platform    string `json:"platform"`
	Length      int    `json:"length"`
	Limit       int    `json:"limit"`
	WithinLimit bool   `json:"withinLimit"`
}

// CheckPost measures content against the platform limit. ok is false for unknown platforms.
func CheckPost(platform, content string) (PlatformCheck, bool) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	limit, ok := PlatformLimits[platform]
	if !ok {
		return PlatformCheck{Platform: platform}, false
	}
	n := utf8.RuneCountInString(content)
	return PlatformCheck{Platform: platform, Length: n, Limit: limit, WithinLimit: n <= limit}, true
}
