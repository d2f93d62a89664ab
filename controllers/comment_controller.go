package controllers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkpost/inkpost/models"
	"github.com/inkpost/inkpost/utils"
)

// CommentController manages comment submission, threading, moderation and likes.
type CommentController struct {
	db *gorm.DB
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

// ListComments is the moderation queue: every comment in any state,
// filterable by status and post. Admin only.
func (c *CommentController) ListComments(ctx *gin.Context) {
	page, limit := parsePagination(ctx, 20)

	q := c.db.Model(&models.Comment{})
	if status := strings.TrimSpace(ctx.Query("status")); status != "" {
		q = q.Where("status = ?", status)
	}
	if post := strings.TrimSpace(ctx.Query("post")); post != "" && isNumericID(post) {
		q = q.Where("post_id = ?", post)
	}
	if author := strings.TrimSpace(ctx.Query("author")); author != "" && isNumericID(author) {
		q = q.Where("author_id = ?", author)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.fail(ctx, "failed to count comments", err)
		return
	}

	var comments []models.Comment
	if err := q.Preload("Author").Preload("Post").
		Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).
		Find(&comments).Error; err != nil {
		c.fail(ctx, "failed to list comments", err)
		return
	}

	utils.Page(ctx, comments, len(comments), utils.NewPagination(total, page, limit))
}

// ListPostComments returns the approved comments of a post. Top-level
// comments come back with their approved replies nested; pass ?parent=<id>
// to page through one thread instead.
func (c *CommentController) ListPostComments(ctx *gin.Context) {
	page, limit := parsePagination(ctx, 20)
	postID := ctx.Param("id")

	var post models.Post
	if err := c.db.First(&post, postID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, "post not found")
		return
	}
	// Comments follow the post's visibility: once a post leaves the
	// published state its thread disappears with it.
	if post.Status != models.PostStatusPublished {
		uid, role := liveRole(ctx, c.db)
		if role != models.RoleAdmin && (role == "" || post.AuthorID != uid) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
	}

	q := c.db.Model(&models.Comment{}).
		Where("post_id = ? AND status = ?", post.ID, models.CommentStatusApproved)
	if parent := strings.TrimSpace(ctx.Query("parent")); parent != "" && isNumericID(parent) {
		q = q.Where("parent_id = ?", parent)
	} else {
		q = q.Where("parent_id IS NULL")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.fail(ctx, "failed to count comments", err)
		return
	}

	var comments []models.Comment
	if err := q.Preload("Author").
		Preload("Replies", "status = ?", models.CommentStatusApproved).
		Preload("Replies.Author").
		Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).
		Find(&comments).Error; err != nil {
		c.fail(ctx, "failed to list comments", err)
		return
	}
	c.fillLikeCounts(comments)

	utils.Page(ctx, comments, len(comments), utils.NewPagination(total, page, limit))
}

// CreateComment accepts both authenticated and guest submissions on a post.
// Guests must identify themselves and are throttled per IP. Replies are one
// level deep: the parent must be a top-level comment on the same post.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	var req struct {
		Content     string `json:"content"`
		ParentID    *uint  `json:"parentId"`
		IsAnonymous bool   `json:"isAnonymous"`
		Guest       struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"guestInfo"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	var post models.Post
	if err := c.db.First(&post, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, "post not found")
		return
	}
	if post.Status != models.PostStatusPublished {
		utils.Error(ctx, http.StatusNotFound, "post not found")
		return
	}

	content := utils.SanitizePlain(strings.TrimSpace(req.Content))
	var errs []utils.FieldError
	if content == "" {
		errs = append(errs, utils.FieldError{Field: "content", Message: "content is required"})
	}
	if utf8.RuneCountInString(content) > 1000 {
		errs = append(errs, utils.FieldError{Field: "content", Message: "content exceeds 1000 characters"})
	}

	comment := models.Comment{
		Content: content,
		PostID:  post.ID,
	}

	_, authenticated := requesterID(ctx)
	if authenticated {
		user, ok := loadRequester(ctx, c.db)
		if !ok {
			return
		}
		comment.AuthorID = &user.ID
		comment.IsAnonymous = req.IsAnonymous
		if user.IsAdmin() {
			comment.Status = models.CommentStatusApproved
		}
	} else {
		name := utils.SanitizePlain(strings.TrimSpace(req.Guest.Name))
		email := strings.TrimSpace(req.Guest.Email)
		if name == "" {
			errs = append(errs, utils.FieldError{Field: "guestInfo.name", Message: "name is required for guest comments"})
		}
		if email == "" || !strings.Contains(email, "@") {
			errs = append(errs, utils.FieldError{Field: "guestInfo.email", Message: "a valid email is required for guest comments"})
		}
		comment.Guest = models.GuestInfo{Name: name, Email: email}
		comment.IsAnonymous = true
	}

	if len(errs) > 0 {
		utils.ValidationErrors(ctx, errs)
		return
	}

	if !authenticated && !utils.GuestCommentAllow(ctx.ClientIP()) {
		utils.Error(ctx, http.StatusTooManyRequests, "too many comments, try again later")
		return
	}

	if req.ParentID != nil {
		var parent models.Comment
		if err := c.db.First(&parent, *req.ParentID).Error; err != nil {
			utils.ValidationErrors(ctx, []utils.FieldError{{Field: "parentId", Message: "parent comment does not exist"}})
			return
		}
		if parent.PostID != post.ID {
			utils.ValidationErrors(ctx, []utils.FieldError{{Field: "parentId", Message: "parent comment belongs to another post"}})
			return
		}
		if parent.ParentID != nil {
			utils.ValidationErrors(ctx, []utils.FieldError{{Field: "parentId", Message: "replies cannot be nested further"}})
			return
		}
		comment.ParentID = &parent.ID
	}

	if err := c.db.Create(&comment).Error; err != nil {
		c.fail(ctx, "failed to create comment", err)
		return
	}
	if comment.AuthorID != nil {
		c.db.Preload("Author").First(&comment, comment.ID)
	}

	utils.Created(ctx, comment)
}

// UpdateComment lets the author or an admin edit the comment body.
func (c *CommentController) UpdateComment(ctx *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	comment, user, ok := c.loadCommentForWrite(ctx)
	if !ok {
		return
	}
	if !user.IsAdmin() && (comment.AuthorID == nil || *comment.AuthorID != user.ID) {
		utils.Error(ctx, http.StatusForbidden, "not authorized to update this comment")
		return
	}

	content := utils.SanitizePlain(strings.TrimSpace(req.Content))
	if content == "" || utf8.RuneCountInString(content) > 1000 {
		utils.ValidationErrors(ctx, []utils.FieldError{{Field: "content", Message: "content must be between 1 and 1000 characters"}})
		return
	}

	comment.Content = content
	if err := c.db.Save(comment).Error; err != nil {
		c.fail(ctx, "failed to update comment", err)
		return
	}

	utils.Success(ctx, comment)
}

// UpdateCommentStatus moves a comment through moderation states. Admin only.
func (c *CommentController) UpdateCommentStatus(ctx *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}
	if !models.ValidCommentStatus(req.Status) {
		utils.ValidationErrors(ctx, []utils.FieldError{{Field: "status", Message: "invalid status value"}})
		return
	}

	var comment models.Comment
	if err := c.db.First(&comment, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, "comment not found")
		return
	}

	comment.Status = req.Status
	if err := c.db.Save(&comment).Error; err != nil {
		c.fail(ctx, "failed to update comment status", err)
		return
	}

	utils.Success(ctx, comment)
}

// ToggleLike flips the requester's like on a comment.
func (c *CommentController) ToggleLike(ctx *gin.Context) {
	uid, ok := requesterID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "authentication required")
		return
	}

	var comment models.Comment
	if err := c.db.First(&comment, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, "comment not found")
		return
	}

	var liked int64
	if err := c.db.Table("comment_likes").
		Where("comment_id = ? AND user_id = ?", comment.ID, uid).
		Count(&liked).Error; err != nil {
		c.fail(ctx, "failed to check like state", err)
		return
	}

	user := models.User{ID: uid}
	action := "liked"
	if liked > 0 {
		if err := c.db.Model(&comment).Association("Likes").Delete(&user); err != nil {
			c.fail(ctx, "failed to remove like", err)
			return
		}
		action = "unliked"
	} else {
		if err := c.db.Model(&comment).Association("Likes").Append(&user); err != nil {
			c.fail(ctx, "failed to add like", err)
			return
		}
	}

	var count int64
	c.db.Table("comment_likes").Where("comment_id = ?", comment.ID).Count(&count)

	utils.Success(ctx, gin.H{"action": action, "likesCount": count})
}

// DeleteComment removes a comment and its replies. Author or admin.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	comment, user, ok := c.loadCommentForWrite(ctx)
	if !ok {
		return
	}
	if !user.IsAdmin() && (comment.AuthorID == nil || *comment.AuthorID != user.ID) {
		utils.Error(ctx, http.StatusForbidden, "not authorized to delete this comment")
		return
	}

	err := c.db.Transaction(func(tx *gorm.DB) error {
		var replyIDs []uint
		if err := tx.Model(&models.Comment{}).Where("parent_id = ?", comment.ID).
			Pluck("id", &replyIDs).Error; err != nil {
			return err
		}
		ids := append(replyIDs, comment.ID)
		if err := tx.Exec("DELETE FROM comment_likes WHERE comment_id IN ?", ids).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Comment{}, ids).Error
	})
	if err != nil {
		c.fail(ctx, "failed to delete comment", err)
		return
	}

	utils.Success(ctx, gin.H{})
}

func (c *CommentController) loadCommentForWrite(ctx *gin.Context) (*models.Comment, *models.User, bool) {
	var comment models.Comment
	if err := c.db.First(&comment, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, "comment not found")
		return nil, nil, false
	}
	user, ok := loadRequester(ctx, c.db)
	if !ok {
		return nil, nil, false
	}
	return &comment, user, true
}

func (c *CommentController) fillLikeCounts(comments []models.Comment) {
	if len(comments) == 0 {
		return
	}
	ids := make([]uint, 0, len(comments))
	for i := range comments {
		ids = append(ids, comments[i].ID)
		for j := range comments[i].Replies {
			ids = append(ids, comments[i].Replies[j].ID)
		}
	}
	var rows []struct {
		CommentID uint
		N         int64
	}
	if err := c.db.Table("comment_likes").Select("comment_id, COUNT(*) AS n").
		Where("comment_id IN ?", ids).Group("comment_id").Scan(&rows).Error; err != nil {
		utils.Sugar.Warnf("comment like counts query failed: %v", err)
		return
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.CommentID] = r.N
	}
	for i := range comments {
		comments[i].LikesCount = counts[comments[i].ID]
		for j := range comments[i].Replies {
			comments[i].Replies[j].LikesCount = counts[comments[i].Replies[j].ID]
		}
	}
}

func (c *CommentController) fail(ctx *gin.Context, msg string, err error) {
	utils.Sugar.Errorf("%s: %v", msg, err)
	utils.Error(ctx, http.StatusInternalServerError, msg)
}
