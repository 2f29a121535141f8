package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const receiptIssuer = "content-automation-api"

// ReceiptClaims describe an acknowledged integration push.
type ReceiptClaims struct {
	Integration string `json:"integration"`
	Target      string `json:"target"`
	Items       int    `json:"items"`
	jwt.RegisteredClaims
}

// ReceiptSigner issues HS256 receipts that callers can present later to prove what was
// accepted for delivery.
type ReceiptSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewReceiptSigner(secret string, ttl time.Duration) *ReceiptSigner {
	return &ReceiptSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *ReceiptSigner) WithClock(now func() time.Time) *ReceiptSigner {
	s.now = now
	return s
}

// Sign fills in the id, issuer and timestamps and returns the receipt id with the token.
func (s *ReceiptSigner) Sign(claims ReceiptClaims) (string, string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    receiptIssuer,
		Subject:   claims.Integration,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", "", err
	}
	return claims.ID, signed, nil
}

func (s *ReceiptSigner) Verify(tokenString string) (*ReceiptClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ReceiptClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(receiptIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*ReceiptClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid receipt")
}
