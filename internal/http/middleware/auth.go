package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleDealer   = "dealer"
	RoleOperator = "operator"

	principalKey = "principal"
)

var ErrInvalidToken = errors.New("invalid token")

// Principal is the authenticated caller: a dealer or an operator.
type Principal struct {
	ID   string
	Role string
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ParseToken validates an HS256 token signed with secret and returns its
// subject and role.
func ParseToken(secret, raw string) (Principal, error) {
	var cl claims
	tok, err := jwt.ParseWithClaims(raw, &cl, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return Principal{}, ErrInvalidToken
	}
	if cl.Subject == "" {
		return Principal{}, ErrInvalidToken
	}
	switch cl.Role {
	case RoleDealer, RoleOperator:
	default:
		return Principal{}, ErrInvalidToken
	}
	return Principal{ID: cl.Subject, Role: cl.Role}, nil
}

// IssueToken signs a token for id with the given role. A zero ttl issues a
// token without expiry.
func IssueToken(secret, id, role string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	cl := claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  id,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		cl.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString([]byte(secret))
}

// JWTAuth validates the Bearer token and stores the Principal on the gin
// context.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		p, err := ParseToken(secret, strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not one of roles. It must run
// after JWTAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role " + p.Role + " not allowed"})
	}
}

func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
