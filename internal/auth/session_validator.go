package auth

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoSession means the request carries no session cookie.
	ErrNoSession = errors.New("auth: no session")
	// ErrSessionExpired means the session cookie outlived its TTL.
	ErrSessionExpired = errors.New("auth: session expired")
	// ErrSessionInvalid covers tampered, foreign or malformed session cookies.
	ErrSessionInvalid = errors.New("auth: session invalid")
)

// SessionClaims is the JWT payload of a demo session.
type SessionClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// SessionValidatorConfig mirrors SessionIssuerConfig for the reading side.
type SessionValidatorConfig struct {
	SigningSecret []byte
	Issuer        string
	CookieName    string
	Clock         func() time.Time
}

// SessionValidator resolves session cookies minted by SessionIssuer.
type SessionValidator struct {
	secret     []byte
	cookieName string
	parser     *jwt.Parser
}

func NewSessionValidator(cfg SessionValidatorConfig) (*SessionValidator, error) {
	secret, cookieName, issuer, err := sessionSettings(cfg.SigningSecret, cfg.CookieName, cfg.Issuer)
	if err != nil {
		return nil, err
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SessionValidator{
		secret:     secret,
		cookieName: cookieName,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithTimeFunc(clock),
		),
	}, nil
}

// Parse verifies a session token. The subject must name the same user as
// the user_id claim.
func (v *SessionValidator) Parse(token string) (SessionClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return SessionClaims{}, ErrNoSession
	}

	var claims SessionClaims
	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return SessionClaims{}, ErrSessionExpired
	case err != nil:
		return SessionClaims{}, errors.Join(ErrSessionInvalid, err)
	}

	if subject, err := strconv.ParseInt(claims.Subject, 10, 64); err != nil || subject <= 0 || subject != claims.UserID {
		return SessionClaims{}, ErrSessionInvalid
	}
	return claims, nil
}

// Authenticate reads the session cookie of r.
func (v *SessionValidator) Authenticate(r *http.Request) (SessionClaims, error) {
	cookie, err := r.Cookie(v.cookieName)
	if err != nil {
		return SessionClaims{}, ErrNoSession
	}
	return v.Parse(cookie.Value)
}
