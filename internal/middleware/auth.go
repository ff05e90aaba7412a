package middleware

import (
	"errors"
	"net/http"
	"strings"

	"shopdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Context keys set by RequireRole
const (
	UserIDKey   = "userID"
	UserRoleKey = "userRole"
	OwnerIDKey  = "ownerID"
)

var errInvalidClaims = errors.New("invalid token claims")

// Identity is what a valid token says about its bearer
type Identity struct {
	UserID  uuid.UUID
	OwnerID uuid.UUID
	Role    string
}

// ParseToken validates an HS256 token and extracts the sub, owner and role claims.
func ParseToken(secret []byte, tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errInvalidClaims
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return Identity{}, errInvalidClaims
	}
	role, _ := claims["role"].(string)
	if role == "" {
		return Identity{}, errInvalidClaims
	}

	// tokens issued to admins may omit the owner claim
	ownerID := userID
	if owner, ok := claims["owner"].(string); ok && owner != "" {
		if ownerID, err = uuid.Parse(owner); err != nil {
			return Identity{}, errInvalidClaims
		}
	}

	return Identity{UserID: userID, OwnerID: ownerID, Role: role}, nil
}

// bearerToken reads "Authorization: Bearer <token>", falling back to the x-auth-token header
func bearerToken(c *gin.Context) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", false
		}
		return parts[1], true
	}
	if token := c.GetHeader("x-auth-token"); token != "" {
		return token, true
	}
	return "", false
}

// RequireRole validates the JWT token and checks that the bearer's role is in allowedRoles.
// With no roles given any authenticated user passes.
func RequireRole(secret []byte, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing or malformed. Expected 'Bearer <token>'"))
			return
		}

		identity, err := ParseToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token: "+err.Error()))
			return
		}

		if len(allowedRoles) > 0 {
			roleAllowed := false
			for _, role := range allowedRoles {
				if identity.Role == role {
					roleAllowed = true
					break
				}
			}
			if !roleAllowed {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
				return
			}
		}

		c.Set(UserIDKey, identity.UserID)
		c.Set(OwnerIDKey, identity.OwnerID)
		c.Set(UserRoleKey, identity.Role)

		c.Next()
	}
}

// GetIdentity returns the identity stored by RequireRole
func GetIdentity(c *gin.Context) (Identity, bool) {
	userID, ok := c.Get(UserIDKey)
	if !ok {
		return Identity{}, false
	}
	ownerID, _ := c.Get(OwnerIDKey)
	role, _ := c.Get(UserRoleKey)

	var id Identity
	id.Role, _ = role.(string)
	id.UserID, _ = userID.(uuid.UUID)
	id.OwnerID, _ = ownerID.(uuid.UUID)
	return id, true
}
