package middleware

import (
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vinieshwan/parking-system/internal/apperr"
	"github.com/vinieshwan/parking-system/internal/service"
)

const (
	AuthorizationHeaderKey  = "Authorization"
	AuthorizationTypeBearer = "Bearer"
	UserIDKey               = "userID"
	UserRoleKey             = "userRole"
	UsernameKey             = "username"
)

type AuthMiddleware struct {
	authService *service.AuthService
}

func NewAuthMiddleware(authService *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

func abort(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), gin.H{
		"ok":    false,
		"error": gin.H{"kind": kind.String(), "message": apperr.MessageOf(err)},
	})
}

func (m *AuthMiddleware) claims(c *gin.Context) (*service.Claims, error) {
	fields := strings.Fields(c.GetHeader(AuthorizationHeaderKey))
	if len(fields) != 2 || !strings.EqualFold(fields[0], AuthorizationTypeBearer) {
		return nil, apperr.Unauthorized("invalid authorization header format")
	}
	claims, err := m.authService.ValidateToken(fields[1])
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired token")
	}
	return claims, nil
}

func setUser(c *gin.Context, claims *service.Claims) {
	c.Set(UserIDKey, claims.Subject)
	c.Set(UserRoleKey, claims.Role)
	c.Set(UsernameKey, claims.Username)
}

// Authenticate rejects requests without a valid bearer token.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(AuthorizationHeaderKey) == "" {
			abort(c, apperr.Unauthorized("missing authorization header"))
			return
		}
		claims, err := m.claims(c)
		if err != nil {
			abort(c, err)
			return
		}
		setUser(c, claims)
		c.Next()
	}
}

// OptionalAuthenticate sets the user when a token is present but lets
// anonymous requests through. A present but invalid token is still rejected.
func (m *AuthMiddleware) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(AuthorizationHeaderKey) == "" {
			c.Next()
			return
		}
		claims, err := m.claims(c)
		if err != nil {
			abort(c, err)
			return
		}
		setUser(c, claims)
		c.Next()
	}
}

// AuthorizeRole must run after Authenticate.
func (m *AuthMiddleware) AuthorizeRole(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(UserRoleKey)
		if role == "" {
			abort(c, apperr.Forbidden("access denied"))
			return
		}
		if !slices.Contains(requiredRoles, role) {
			abort(c, apperr.Forbidden("role "+role+" is not allowed here"))
			return
		}
		c.Next()
	}
}
