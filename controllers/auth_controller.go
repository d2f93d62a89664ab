package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/inkpost/inkpost/config"
	"github.com/inkpost/inkpost/models"
	"github.com/inkpost/inkpost/utils"
)

// AuthController handles registration, login, logout and Google federated login.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Register creates a new account with the base user role and signs it in.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	name := utils.SanitizePlain(strings.TrimSpace(req.Name))
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var errs []utils.FieldError
	if name == "" {
		errs = append(errs, utils.FieldError{Field: "name", Message: "name is required"})
	}
	if email == "" || !strings.Contains(email, "@") {
		errs = append(errs, utils.FieldError{Field: "email", Message: "a valid email is required"})
	}
	if len(req.Password) < 6 {
		errs = append(errs, utils.FieldError{Field: "password", Message: "password must be at least 6 characters"})
	}
	if len(errs) > 0 {
		utils.ValidationErrors(ctx, errs)
		return
	}

	var existing int64
	a.db.Model(&models.User{}).Where("email = ?", email).Count(&existing)
	if existing > 0 {
		utils.ValidationErrors(ctx, []utils.FieldError{{Field: "email", Message: "email is already registered"}})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		a.fail(ctx, "failed to hash password", err)
		return
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := a.db.Create(&user).Error; err != nil {
		a.fail(ctx, "failed to create account", err)
		return
	}

	token, err := a.issueToken(&user)
	if err != nil {
		a.fail(ctx, "failed to issue token", err)
		return
	}

	utils.Created(ctx, gin.H{"token": token, "user": user})
}

// Login authenticates by email and password.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.IsActive {
		utils.Error(ctx, http.StatusForbidden, "account is deactivated")
		return
	}

	token, err := a.issueToken(&user)
	if err != nil {
		a.fail(ctx, "failed to issue token", err)
		return
	}

	utils.Success(ctx, gin.H{"token": token, "user": user})
}

// Me returns the authenticated account.
func (a *AuthController) Me(ctx *gin.Context) {
	user, ok := loadRequester(ctx, a.db)
	if !ok {
		return
	}
	utils.Success(ctx, user)
}

// Logout revokes the presented token until its natural expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusBadRequest, "missing bearer token")
		return
	}
	tokenStr := strings.TrimSpace(parts[1])

	expiresAt := time.Now().Add(time.Duration(config.Get().JWTExpireHours) * time.Hour)
	if claims, err := utils.ParseToken(tokenStr); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(tokenStr, expiresAt)

	utils.Success(ctx, gin.H{})
}

// GoogleLogin redirects the browser to Google's consent screen with a
// single-use state token.
func (a *AuthController) GoogleLogin(ctx *gin.Context) {
	oc := a.googleOAuthConfig()
	if oc.ClientID == "" || oc.ClientSecret == "" {
		utils.Error(ctx, http.StatusServiceUnavailable, "google login is not configured")
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)

	ctx.Redirect(http.StatusTemporaryRedirect, oc.AuthCodeURL(state))
}

// googleUserInfo is the subset of the userinfo endpoint response we consume.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleCallback exchanges the authorization code, links or creates the local
// account and redirects back to the frontend with a session token.
func (a *AuthController) GoogleCallback(ctx *gin.Context) {
	state := ctx.Query("state")
	code := ctx.Query("code")
	if state == "" || code == "" {
		utils.Error(ctx, http.StatusBadRequest, "missing state or code")
		return
	}
	if !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, "invalid or expired state")
		return
	}

	oc := a.googleOAuthConfig()
	exchangeCtx, cancel := context.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()

	token, err := oc.Exchange(exchangeCtx, code)
	if err != nil {
		utils.Sugar.Warnf("google code exchange failed: %v", err)
		utils.Error(ctx, http.StatusUnauthorized, "google authentication failed")
		return
	}

	resp, err := oc.Client(exchangeCtx, token).Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		a.fail(ctx, "failed to fetch google profile", err)
		return
	}
	defer resp.Body.Close()

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil || info.ID == "" || info.Email == "" {
		utils.Error(ctx, http.StatusUnauthorized, "google profile is incomplete")
		return
	}

	user, err := a.findOrCreateGoogleUser(&info)
	if err != nil {
		a.fail(ctx, "failed to resolve google account", err)
		return
	}
	if !user.IsActive {
		utils.Error(ctx, http.StatusForbidden, "account is deactivated")
		return
	}

	jwtToken, err := a.issueToken(user)
	if err != nil {
		a.fail(ctx, "failed to issue token", err)
		return
	}

	redirect := strings.TrimRight(config.Get().SiteURL, "/") + "/auth/success?token=" + jwtToken
	ctx.Redirect(http.StatusTemporaryRedirect, redirect)
}

// findOrCreateGoogleUser resolves the local account for a Google identity.
// Match order: google_id, then email (which links the identity), then create.
func (a *AuthController) findOrCreateGoogleUser(info *googleUserInfo) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(info.Email))

	var user models.User
	err := a.db.Where("google_id = ?", info.ID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	err = a.db.Where("email = ?", email).First(&user).Error
	if err == nil {
		user.GoogleID = info.ID
		if info.VerifiedEmail {
			user.EmailVerified = true
		}
		if err := a.db.Save(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	user = models.User{
		Name:          utils.SanitizePlain(info.Name),
		Email:         email,
		GoogleID:      info.ID,
		Role:          models.RoleUser,
		Avatar:        info.Picture,
		EmailVerified: info.VerifiedEmail,
	}
	if user.Name == "" {
		user.Name = strings.SplitN(email, "@", 2)[0]
	}
	if err := a.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *AuthController) googleOAuthConfig() *oauth2.Config {
	cfg := config.Get()
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  strings.TrimRight(cfg.OAuthRedirectBase, "/") + "/api/auth/google/callback",
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

func (a *AuthController) issueToken(user *models.User) (string, error) {
	duration := time.Duration(config.Get().JWTExpireHours) * time.Hour
	return utils.GenerateToken(user.ID, user.Role, duration)
}

func (a *AuthController) fail(ctx *gin.Context, msg string, err error) {
	utils.Sugar.Errorf("%s: %v", msg, err)
	utils.Error(ctx, http.StatusInternalServerError, msg)
}
