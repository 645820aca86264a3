package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/notewise/notewise-backend/internal/data/repos"
	types "github.com/notewise/notewise-backend/internal/domain"
	"github.com/notewise/notewise-backend/internal/pkg/dbctx"
	"github.com/notewise/notewise-backend/internal/pkg/logger"
)

const accountKey = "account"

type AuthMiddleware struct {
	log       *logger.Logger
	db        *gorm.DB
	users     repos.UserRepo
	secretKey []byte
}

func NewAuthMiddleware(log *logger.Logger, db *gorm.DB, users repos.UserRepo, secretKey string) *AuthMiddleware {
	return &AuthMiddleware{
		log:       log.With("component", "AuthMiddleware"),
		db:        db,
		users:     users,
		secretKey: []byte(secretKey),
	}
}

// RequireAuth validates the Bearer token and resolves the account's tier
// from storage, so a stale tier claim in an old token never widens access.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if raw == "" || !strings.HasPrefix(raw, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "missing bearer token"}})
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return m.secretKey, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "invalid or expired token"}})
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "invalid subject in token"}})
			return
		}

		u, err := m.users.GetByID(dbctx.Context{Ctx: c.Request.Context(), Tx: m.db}, userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "unknown account"}})
			return
		}

		c.Set(accountKey, types.AccountContext{AccountID: u.ID, Tier: u.Tier})
		c.Next()
	}
}

// Account returns the authenticated account stored by RequireAuth.
func Account(c *gin.Context) (types.AccountContext, bool) {
	v, ok := c.Get(accountKey)
	if !ok {
		return types.AccountContext{}, false
	}
	account, ok := v.(types.AccountContext)
	return account, ok
}
