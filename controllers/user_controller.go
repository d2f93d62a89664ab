package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkpost/inkpost/models"
	"github.com/inkpost/inkpost/utils"
)

// UserController manages account administration and profile self-service.
type UserController struct {
	db *gorm.DB
}

// NewUserController creates a new UserController instance.
func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db}
}

// ListUsers returns paginated accounts with optional role filter and
// name/email search. Admin only.
func (u *UserController) ListUsers(ctx *gin.Context) {
	page, limit := parsePagination(ctx, 20)

	q := u.db.Model(&models.User{})
	if role := strings.TrimSpace(ctx.Query("role")); role != "" {
		q = q.Where("role = ?", role)
	}
	if search := strings.TrimSpace(ctx.Query("search")); search != "" {
		like := "%" + search + "%"
		q = q.Where("name LIKE ? OR email LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		u.fail(ctx, "failed to count users", err)
		return
	}

	var users []models.User
	if err := q.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&users).Error; err != nil {
		u.fail(ctx, "failed to list users", err)
		return
	}

	utils.Page(ctx, users, len(users), utils.NewPagination(total, page, limit))
}

// GetUser returns an account with its posts. Admins may fetch anyone;
// everyone else only themselves.
func (u *UserController) GetUser(ctx *gin.Context) {
	requester, ok := loadRequester(ctx, u.db)
	if !ok {
		return
	}

	targetID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid user id")
		return
	}
	if !requester.IsAdmin() && requester.ID != uint(targetID) {
		utils.Error(ctx, http.StatusForbidden, "not authorized to view this user")
		return
	}

	var user models.User
	if err := u.db.Preload("Posts").First(&user, targetID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, "user not found")
			return
		}
		u.fail(ctx, "failed to load user", err)
		return
	}

	utils.Success(ctx, gin.H{"user": user, "posts": user.Posts})
}

// UpdateUser applies a partial profile merge. Admins may edit anyone
// including the role; others edit only themselves, and a role change attempt
// is rejected rather than stripped.
func (u *UserController) UpdateUser(ctx *gin.Context) {
	var req struct {
		Name     *string             `json:"name"`
		Email    *string             `json:"email"`
		Password *string             `json:"password"`
		Bio      *string             `json:"bio"`
		Avatar   *string             `json:"avatar"`
		Social   *models.SocialLinks `json:"social"`
		Role     *string             `json:"role"`
		IsActive *bool               `json:"isActive"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	requester, ok := loadRequester(ctx, u.db)
	if !ok {
		return
	}

	var user models.User
	if err := u.db.First(&user, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, "user not found")
			return
		}
		u.fail(ctx, "failed to load user", err)
		return
	}

	if !requester.IsAdmin() && requester.ID != user.ID {
		utils.Error(ctx, http.StatusForbidden, "not authorized to update this user")
		return
	}
	if !requester.IsAdmin() && (req.Role != nil || req.IsActive != nil) {
		utils.Error(ctx, http.StatusForbidden, "only admins may change role or account status")
		return
	}

	if req.Name != nil {
		name := utils.SanitizePlain(strings.TrimSpace(*req.Name))
		if name == "" {
			utils.ValidationErrors(ctx, []utils.FieldError{{Field: "name", Message: "name cannot be empty"}})
			return
		}
		user.Name = name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" || !strings.Contains(email, "@") {
			utils.ValidationErrors(ctx, []utils.FieldError{{Field: "email", Message: "a valid email is required"}})
			return
		}
		if email != user.Email {
			var existing int64
			u.db.Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&existing)
			if existing > 0 {
				utils.ValidationErrors(ctx, []utils.FieldError{{Field: "email", Message: "email is already registered"}})
				return
			}
			user.Email = email
			user.EmailVerified = false
		}
	}
	if req.Password != nil {
		if len(*req.Password) < 6 {
			utils.ValidationErrors(ctx, []utils.FieldError{{Field: "password", Message: "password must be at least 6 characters"}})
			return
		}
		hash, err := utils.HashPassword(*req.Password)
		if err != nil {
			u.fail(ctx, "failed to hash password", err)
			return
		}
		user.PasswordHash = hash
	}
	if req.Bio != nil {
		user.Bio = utils.SanitizePlain(strings.TrimSpace(*req.Bio))
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}
	if req.Social != nil {
		user.Social = *req.Social
	}
	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			utils.ValidationErrors(ctx, []utils.FieldError{{Field: "role", Message: "invalid role value"}})
			return
		}
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := u.db.Save(&user).Error; err != nil {
		u.fail(ctx, "failed to update user", err)
		return
	}

	utils.Success(ctx, user)
}

// UpdateUserRole changes a single account's role. Admin only.
func (u *UserController) UpdateUserRole(ctx *gin.Context) {
	var req struct {
		Role string `json:"role"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}
	if !models.ValidRole(req.Role) {
		utils.ValidationErrors(ctx, []utils.FieldError{{Field: "role", Message: "invalid role value"}})
		return
	}

	var user models.User
	if err := u.db.First(&user, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, "user not found")
		return
	}

	user.Role = req.Role
	if err := u.db.Save(&user).Error; err != nil {
		u.fail(ctx, "failed to update role", err)
		return
	}

	utils.Success(ctx, user)
}

// DeleteUser soft-deletes an account. Admin only; self-deletion is blocked so
// the last admin cannot lock everyone out by accident.
func (u *UserController) DeleteUser(ctx *gin.Context) {
	requester, ok := loadRequester(ctx, u.db)
	if !ok {
		return
	}

	var user models.User
	if err := u.db.First(&user, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, "user not found")
		return
	}
	if user.ID == requester.ID {
		utils.Error(ctx, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	if err := u.db.Delete(&user).Error; err != nil {
		u.fail(ctx, "failed to delete user", err)
		return
	}

	utils.Success(ctx, gin.H{})
}

func (u *UserController) fail(ctx *gin.Context, msg string, err error) {
	utils.Sugar.Errorf("%s: %v", msg, err)
	utils.Error(ctx, http.StatusInternalServerError, msg)
}
