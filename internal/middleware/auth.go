package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"salesdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// AccessTokenCookie carries the session token for browser clients.
	AccessTokenCookie = "access_token"

	ctxUserID   = "userID"
	ctxUserRole = "userRole"
	ctxUserName = "userName"
)

var errMissingToken = errors.New("authorization is missing")

// Claims is the session token payload.
type Claims struct {
	Role string `json:"role"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Actor is the authenticated caller resolved from a session token.
type Actor struct {
	ID   uuid.UUID
	Role string
	Name string
}

// Authenticator signs and verifies HS256 session tokens.
type Authenticator struct {
	secret        []byte
	ttl           time.Duration
	secureCookies bool
	now           func() time.Time
}

func NewAuthenticator(secret string, ttl time.Duration, secureCookies bool) *Authenticator {
	return &Authenticator{secret: []byte(secret), ttl: ttl, secureCookies: secureCookies, now: time.Now}
}

// Issue signs a token for the user; it satisfies service.TokenIssuer.
func (a *Authenticator) Issue(userID uuid.UUID, role, name string) (string, error) {
	now := a.now()
	claims := Claims{
		Role: role,
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse verifies tokenString and resolves the actor it names.
func (a *Authenticator) Parse(tokenString string) (Actor, error) {
	if tokenString == "" {
		return Actor{}, errMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return Actor{}, errors.New("invalid token")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Actor{}, errors.New("invalid token subject")
	}
	if claims.Role == "" {
		return Actor{}, errors.New("role not found in token")
	}

	return Actor{ID: id, Role: claims.Role, Name: claims.Name}, nil
}

// SetTokenCookie stores the session token as an HttpOnly cookie
func (a *Authenticator) SetTokenCookie(c *gin.Context, token string) {
	// Cross-origin deployments need SameSite=None, which browsers only accept with Secure
	sameSite := http.SameSiteLaxMode
	if a.secureCookies {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(AccessTokenCookie, token, int(a.ttl.Seconds()), "/", "", a.secureCookies, true)
}

// ClearTokenCookie removes the session cookie
func (a *Authenticator) ClearTokenCookie(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	if a.secureCookies {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", a.secureCookies, true)
}

// RequireRole validates the session token and checks the caller's role is in allowedRoles
func (a *Authenticator) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie(AccessTokenCookie)
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		actor, err := a.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token: "+err.Error()))
			return
		}

		roleAllowed := false
		for _, role := range allowedRoles {
			if actor.Role == role {
				roleAllowed = true
				break
			}
		}

		if !roleAllowed {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set(ctxUserID, actor.ID)
		c.Set(ctxUserRole, actor.Role)
		c.Set(ctxUserName, actor.Name)

		c.Next()
	}
}

// CurrentActor returns the actor stored by RequireRole.
func CurrentActor(c *gin.Context) (Actor, bool) {
	id, ok := c.Get(ctxUserID)
	if !ok {
		return Actor{}, false
	}
	uid, ok := id.(uuid.UUID)
	if !ok {
		return Actor{}, false
	}
	return Actor{ID: uid, Role: c.GetString(ctxUserRole), Name: c.GetString(ctxUserName)}, true
}
