package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/careplane/careplane/internal/application/dto"
	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/pkg/constants"
	"github.com/careplane/careplane/pkg/errors"
)

// principalClaims is the verified token payload a principal presents.
type principalClaims struct {
	TenantID    string   `json:"tenant_id"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// PrincipalAuth authenticates the bearer token on every protected route. A
// request without a verifiable principal is rejected with 401 before any
// tenant or isolation work happens.
func PrincipalAuth(jwtSecret string) gin.HandlerFunc {
	secret := []byte(jwtSecret)
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			dto.SendError(c, errors.ErrUnauthenticated("missing bearer token"))
			return
		}

		claims := &principalClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !parsed.Valid {
			dto.SendError(c, errors.ErrUnauthenticated("invalid bearer token").WithCause(err))
			return
		}
		if claims.Subject == "" || claims.TenantID == "" {
			dto.SendError(c, errors.ErrUnauthenticated("token carries no principal identity"))
			return
		}

		principal := &models.Principal{
			TenantID:    claims.TenantID,
			UserID:      claims.Subject,
			Roles:       claims.Roles,
			Permissions: claims.Permissions,
		}
		c.Set(string(constants.ContextKeyPrincipal), principal)
		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyUserID, principal.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
