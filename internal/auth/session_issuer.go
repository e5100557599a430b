package auth

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultSessionIssuer is stamped on every session token.
	DefaultSessionIssuer = "seoaudit"

	defaultSessionTTL = time.Hour
)

var (
	errMissingSecret      = errors.New("auth: signing secret required")
	errMissingCookieName  = errors.New("auth: cookie name required")
	errInvalidSessionUser = errors.New("auth: user id must be positive")
)

// SessionIssuerConfig configures the demo session issuer.
type SessionIssuerConfig struct {
	SigningSecret []byte
	Issuer        string
	CookieName    string
	TTL           time.Duration
	Clock         func() time.Time
}

// SessionIssuer signs HS256 session tokens for the demo login flow.
type SessionIssuer struct {
	signingSecret []byte
	issuer        string
	cookieName    string
	ttl           time.Duration
	clock         func() time.Time
}

// NewSessionIssuer validates the configuration and applies defaults.
func NewSessionIssuer(cfg SessionIssuerConfig) (*SessionIssuer, error) {
	secret, cookieName, issuer, err := sessionSettings(cfg.SigningSecret, cfg.CookieName, cfg.Issuer)
	if err != nil {
		return nil, err
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SessionIssuer{
		signingSecret: secret,
		issuer:        issuer,
		cookieName:    cookieName,
		ttl:           ttl,
		clock:         clock,
	}, nil
}

// sessionSettings validates the values shared by the issuer and the validator.
func sessionSettings(secret []byte, cookieName, issuer string) ([]byte, string, string, error) {
	if len(secret) == 0 {
		return nil, "", "", errMissingSecret
	}
	cookieName = strings.TrimSpace(cookieName)
	if cookieName == "" {
		return nil, "", "", errMissingCookieName
	}
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		issuer = DefaultSessionIssuer
	}
	return append([]byte(nil), secret...), cookieName, issuer, nil
}

// Issue returns a signed token for the user and its expiry.
func (i *SessionIssuer) Issue(userID int64) (string, time.Time, error) {
	if userID <= 0 {
		return "", time.Time{}, errInvalidSessionUser
	}

	now := i.clock().UTC()
	expiresAt := now.Add(i.ttl)
	claims := SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signingSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// SessionCookie wraps a token into the session cookie.
func (i *SessionIssuer) SessionCookie(token string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     i.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(expiresAt.Sub(i.clock()).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearedCookie returns a cookie that removes the session on the client.
func (i *SessionIssuer) ClearedCookie() *http.Cookie {
	return &http.Cookie{
		Name:     i.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
