package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkpost/inkpost/config"
	"github.com/inkpost/inkpost/models"
	"github.com/inkpost/inkpost/utils"
)

// SiteController hosts the endpoints that do not belong to a single resource:
// health, the admin dashboard stats, the sitemap and the contact relay.
type SiteController struct {
	db *gorm.DB
}

// NewSiteController creates a new SiteController instance.
func NewSiteController(db *gorm.DB) *SiteController {
	return &SiteController{db: db}
}

// Health reports process liveness and database reachability.
func (s *SiteController) Health(ctx *gin.Context) {
	status := "ok"
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		status = "degraded"
	}
	ctx.JSON(http.StatusOK, gin.H{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Stats aggregates the dashboard counters. Admin only.
func (s *SiteController) Stats(ctx *gin.Context) {
	var (
		users           int64
		writers         int64
		admins          int64
		posts           int64
		published       int64
		drafts          int64
		comments        int64
		pendingComments int64
		categories      int64
		totalViews      int64
	)

	s.db.Model(&models.User{}).Count(&users)
	s.db.Model(&models.User{}).Where("role = ?", models.RoleWriter).Count(&writers)
	s.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins)
	s.db.Model(&models.Post{}).Count(&posts)
	s.db.Model(&models.Post{}).Where("status = ?", models.PostStatusPublished).Count(&published)
	s.db.Model(&models.Post{}).Where("status = ?", models.PostStatusDraft).Count(&drafts)
	s.db.Model(&models.Comment{}).Count(&comments)
	s.db.Model(&models.Comment{}).Where("status = ?", models.CommentStatusPending).Count(&pendingComments)
	s.db.Model(&models.Category{}).Count(&categories)
	s.db.Model(&models.Post{}).Select("COALESCE(SUM(views), 0)").Scan(&totalViews)

	utils.Success(ctx, gin.H{
		"users":           users,
		"writers":         writers,
		"admins":          admins,
		"posts":           posts,
		"publishedPosts":  published,
		"draftPosts":      drafts,
		"comments":        comments,
		"pendingComments": pendingComments,
		"categories":      categories,
		"totalViews":      totalViews,
	})
}

// Sitemap renders an XML sitemap of the published posts and categories.
func (s *SiteController) Sitemap(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes("cache:sitemap"); ok {
		ctx.Data(http.StatusOK, "application/xml", b)
		return
	}

	base := strings.TrimRight(config.Get().SiteURL, "/")

	var posts []models.Post
	if err := s.db.Select("slug, updated_at").
		Where("status = ?", models.PostStatusPublished).
		Order("updated_at DESC").Find(&posts).Error; err != nil {
		s.fail(ctx, "failed to load sitemap posts", err)
		return
	}
	var categories []models.Category
	if err := s.db.Select("slug, updated_at").Find(&categories).Error; err != nil {
		s.fail(ctx, "failed to load sitemap categories", err)
		return
	}

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	writeURL := func(loc string, mod time.Time) {
		sb.WriteString("  <url><loc>")
		sb.WriteString(loc)
		sb.WriteString("</loc><lastmod>")
		sb.WriteString(mod.UTC().Format("2006-01-02"))
		sb.WriteString("</lastmod></url>\n")
	}
	writeURL(base+"/", time.Now())
	for _, p := range posts {
		writeURL(base+"/posts/"+p.Slug, p.UpdatedAt)
	}
	for _, c := range categories {
		writeURL(base+"/categories/"+c.Slug, c.UpdatedAt)
	}
	sb.WriteString("</urlset>\n")

	body := []byte(sb.String())
	utils.CacheSetBytes("cache:sitemap", body, time.Hour)
	ctx.Data(http.StatusOK, "application/xml", body)
}

// Contact relays a visitor message to the configured contact mailbox.
// Rate limited at the route level since it triggers outbound mail.
func (s *SiteController) Contact(ctx *gin.Context) {
	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	name := utils.SanitizePlain(strings.TrimSpace(req.Name))
	email := strings.TrimSpace(req.Email)
	message := utils.SanitizePlain(strings.TrimSpace(req.Message))

	var errs []utils.FieldError
	if name == "" {
		errs = append(errs, utils.FieldError{Field: "name", Message: "name is required"})
	}
	if email == "" || !strings.Contains(email, "@") {
		errs = append(errs, utils.FieldError{Field: "email", Message: "a valid email is required"})
	}
	if message == "" {
		errs = append(errs, utils.FieldError{Field: "message", Message: "message is required"})
	}
	if len(errs) > 0 {
		utils.ValidationErrors(ctx, errs)
		return
	}

	cfg := config.Get()
	if cfg.ContactEmail == "" || cfg.SMTPHost == "" {
		utils.Error(ctx, http.StatusServiceUnavailable, "contact form is not configured")
		return
	}

	subject := utils.SanitizePlain(strings.TrimSpace(req.Subject))
	if subject == "" {
		subject = "New contact form message"
	}
	body := fmt.Sprintf("From: %s <%s>\n\n%s", name, email, message)
	if err := utils.SendMail(cfg.ContactEmail, subject, body); err != nil {
		s.fail(ctx, "failed to send contact message", err)
		return
	}

	utils.Success(ctx, gin.H{})
}

func (s *SiteController) fail(ctx *gin.Context, msg string, err error) {
	utils.Sugar.Errorf("%s: %v", msg, err)
	utils.Error(ctx, http.StatusInternalServerError, msg)
}
