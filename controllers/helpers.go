package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkpost/inkpost/middleware"
	"github.com/inkpost/inkpost/models"
	"github.com/inkpost/inkpost/utils"
)

// requesterID extracts the authenticated user ID placed by the auth middleware.
func requesterID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

// loadRequester fetches the requesting account from the database. The role
// column is authoritative for permission checks; the JWT role claim is only a
// routing hint. Writes the error response itself when the lookup fails.
func loadRequester(ctx *gin.Context, db *gorm.DB) (*models.User, bool) {
	uid, ok := requesterID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	var user models.User
	if err := db.First(&user, uid).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, "account not found")
		return nil, false
	}
	if !user.IsActive {
		utils.Error(ctx, http.StatusForbidden, "account is deactivated")
		return nil, false
	}
	return &user, true
}

// liveRole resolves the requester's current role from the database. The role
// claim in the token is a login-time snapshot; visibility decisions use the
// live value so demotion takes effect immediately. Anonymous requesters and
// stale or deactivated accounts come back with an empty role.
func liveRole(ctx *gin.Context, db *gorm.DB) (uint, string) {
	uid, ok := requesterID(ctx)
	if !ok {
		return 0, ""
	}
	var user models.User
	if err := db.First(&user, uid).Error; err != nil || !user.IsActive {
		return uid, ""
	}
	return uid, user.Role
}

// parsePagination reads page/limit query parameters with bounds.
func parsePagination(ctx *gin.Context, defaultLimit int) (int, int) {
	page := 1
	limit := defaultLimit
	if p, err := strconv.Atoi(ctx.Query("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(ctx.Query("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	return page, limit
}

// parseSort maps an API sort parameter ("name", "-createdAt") onto an ORDER BY
// clause. Only allowlisted fields are accepted to keep user input out of SQL.
func parseSort(raw string, allowed map[string]string, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	desc := strings.HasPrefix(raw, "-")
	field := strings.TrimPrefix(raw, "-")
	column, ok := allowed[field]
	if !ok {
		return fallback
	}
	if desc {
		return column + " DESC"
	}
	return column + " ASC"
}

// isNumericID reports whether s looks like a numeric primary key. Lookup
// endpoints accept either an ID or a slug and disambiguate with this check.
func isNumericID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
