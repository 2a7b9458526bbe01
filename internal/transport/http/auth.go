package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"evolv/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const callerKey = "evolv.caller"

// Claims identify the caller; the subject is the user id.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens minted by the identity provider
// (or the token command for local use).
type Authenticator struct {
	secret []byte
	issuer string
}

func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

// Issue signs a token for caller valid for ttl.
func (a *Authenticator) Issue(caller domain.Caller, ttl time.Duration) (string, error) {
	if caller.UserID == "" {
		return "", errors.New("user id is required")
	}
	now := time.Now()
	claims := Claims{
		Name: caller.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.UserID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse validates raw and returns the caller it identifies.
func (a *Authenticator) Parse(raw string) (domain.Caller, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return domain.Caller{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return domain.Caller{}, domain.ErrUnauthorized
	}
	return domain.Caller{UserID: claims.Subject, Name: claims.Name}, nil
}

// Require rejects requests without a valid bearer token.
func (a *Authenticator) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := a.fromRequest(c.Request, false)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// Optional attaches the caller when a valid token is present.
func (a *Authenticator) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if caller, err := a.fromRequest(c.Request, false); err == nil {
			c.Set(callerKey, caller)
		}
		c.Next()
	}
}

// fromRequest reads the bearer token; browsers cannot set headers on
// websocket upgrades, so those may pass it as the token query parameter.
func (a *Authenticator) fromRequest(r *http.Request, allowQuery bool) (domain.Caller, error) {
	raw := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		raw = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if raw == "" && allowQuery {
		raw = r.URL.Query().Get("token")
	}
	if raw == "" {
		return domain.Caller{}, domain.ErrUnauthorized
	}
	return a.Parse(raw)
}

func callerFrom(c *gin.Context) domain.Caller {
	if v, ok := c.Get(callerKey); ok {
		return v.(domain.Caller)
	}
	return domain.Caller{}
}
