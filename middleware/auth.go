package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkpost/inkpost/models"
	"github.com/inkpost/inkpost/utils"
)

const (
	// ContextUserIDKey is the key used to store the authenticated user ID in the Gin context.
	ContextUserIDKey = "user_id"
	// ContextRoleKey stores the requester's role inside the Gin context.
	ContextRoleKey = "role"
)

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, errMsg := claimsFromHeader(ctx)
		if claims == nil {
			utils.Error(ctx, http.StatusUnauthorized, errMsg)
			ctx.Abort()
			return
		}
		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextRoleKey, claims.Role)
		ctx.Next()
	}
}

// AuthOptional resolves the requester identity when a valid bearer token is
// present and silently continues as anonymous otherwise. Used by endpoints
// open to both visitors and authenticated users, such as comment creation.
func AuthOptional() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if claims, _ := claimsFromHeader(ctx); claims != nil {
			ctx.Set(ContextUserIDKey, claims.UserID)
			ctx.Set(ContextRoleKey, claims.Role)
		}
		ctx.Next()
	}
}

// RequireRoles gates a route group to the listed roles. It must run after
// AuthRequired. The role claim inside the token is only a login-time
// snapshot, so the account is reloaded here; demotion or deactivation takes
// effect on the next request, not at token expiry. The live role replaces
// the claim in the context for downstream handlers.
func RequireRoles(db *gorm.DB, roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(ctx *gin.Context) {
		value, exists := ctx.Get(ContextUserIDKey)
		uid, ok := value.(uint)
		if !exists || !ok {
			utils.Error(ctx, http.StatusUnauthorized, "authentication required")
			ctx.Abort()
			return
		}

		var user models.User
		if err := db.First(&user, uid).Error; err != nil {
			utils.Error(ctx, http.StatusUnauthorized, "account not found")
			ctx.Abort()
			return
		}
		if !user.IsActive {
			utils.Error(ctx, http.StatusForbidden, "account is deactivated")
			ctx.Abort()
			return
		}
		if !allowed[user.Role] {
			utils.Error(ctx, http.StatusForbidden, "insufficient role for this operation")
			ctx.Abort()
			return
		}

		ctx.Set(ContextRoleKey, user.Role)
		ctx.Next()
	}
}

func claimsFromHeader(ctx *gin.Context) (*utils.Claims, string) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return nil, "authorization header missing"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, "invalid authorization header format"
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return nil, "empty bearer token"
	}

	if utils.IsTokenBlacklisted(tokenString) {
		return nil, "token revoked"
	}

	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		return nil, "invalid token"
	}
	return claims, ""
}
