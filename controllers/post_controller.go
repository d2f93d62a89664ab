package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkpost/inkpost/models"
	"github.com/inkpost/inkpost/utils"
)

// PostController manages the post lifecycle: CRUD, listing with filters,
// slug/id lookup, view counting and like toggling.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

var postSortFields = map[string]string{
	"createdAt": "posts.created_at",
	"updatedAt": "posts.updated_at",
	"title":     "posts.title",
	"views":     "posts.views",
}

// ListPosts returns paginated posts with author and category information.
// Filters: status, category (id or slug), tag, author, search, featured.
// Visitors and plain users only ever see published posts; writers may widen
// the status filter for their own posts; admins are unrestricted.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, limit := parsePagination(ctx, 10)
	sort := parseSort(ctx.Query("sort"), postSortFields, "posts.created_at DESC")
	search := strings.TrimSpace(ctx.Query("search"))
	status := strings.TrimSpace(ctx.Query("status"))
	category := strings.TrimSpace(ctx.Query("category"))
	tag := strings.TrimSpace(ctx.Query("tag"))
	author := strings.TrimSpace(ctx.Query("author"))
	featured := ctx.Query("featured") == "true"

	uid, authenticated := requesterID(ctx)
	roleStr := ""
	if authenticated {
		_, roleStr = liveRole(ctx, p.db)
	}

	// Cache anonymous listings without a search term to avoid key explosion.
	cacheKey := ""
	if !authenticated && search == "" {
		cacheKey = fmt.Sprintf("cache:posts:list:st=%s:cat=%s:tag=%s:au=%s:f=%t:page=%d:limit=%d:sort=%s",
			status, category, tag, author, featured, page, limit, sort)
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json", b)
			return
		}
	}

	q := p.db.Model(&models.Post{})

	switch roleStr {
	case models.RoleAdmin:
		if status != "" {
			q = q.Where("posts.status = ?", status)
		}
	case models.RoleWriter:
		if status == "" || status == models.PostStatusPublished {
			q = q.Where("posts.status = ?", models.PostStatusPublished)
		} else {
			// Non-published states are only visible to their author.
			q = q.Where("posts.status = ? AND posts.author_id = ?", status, uid)
		}
	default:
		q = q.Where("posts.status = ?", models.PostStatusPublished)
	}

	if category != "" {
		cat, err := p.findCategory(category)
		if err != nil {
			utils.Page(ctx, []models.Post{}, 0, utils.NewPagination(0, page, limit))
			return
		}
		q = q.Joins("JOIN post_categories pc ON pc.post_id = posts.id").Where("pc.category_id = ?", cat.ID)
	}
	if tag != "" {
		q = q.Where("posts.tags LIKE ?", `%"`+tag+`"%`)
	}
	if author != "" && isNumericID(author) {
		q = q.Where("posts.author_id = ?", author)
	}
	if featured {
		q = q.Where("posts.featured = ?", true)
	}
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("posts.title LIKE ? OR posts.excerpt LIKE ? OR posts.content LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		p.fail(ctx, "failed to count posts", err)
		return
	}

	var posts []models.Post
	if err := q.Preload("Author").Preload("Categories").
		Order(sort).Offset((page - 1) * limit).Limit(limit).
		Find(&posts).Error; err != nil {
		p.fail(ctx, "failed to list posts", err)
		return
	}
	p.fillLikeCounts(posts)

	pag := utils.NewPagination(total, page, limit)
	if cacheKey != "" {
		utils.CacheSetJSON(cacheKey, gin.H{
			"success": true, "count": len(posts), "pagination": pag, "data": posts,
		}, time.Hour)
	}
	utils.Page(ctx, posts, len(posts), pag)
}

// FeaturedPosts returns published posts promoted by an admin.
func (p *PostController) FeaturedPosts(ctx *gin.Context) {
	_, limit := parsePagination(ctx, 5)

	cacheKey := fmt.Sprintf("cache:posts:featured:limit=%d", limit)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var posts []models.Post
	if err := p.db.Where("status = ? AND featured = ?", models.PostStatusPublished, true).
		Preload("Author").Preload("Categories").
		Order("created_at DESC").Limit(limit).
		Find(&posts).Error; err != nil {
		p.fail(ctx, "failed to list featured posts", err)
		return
	}
	p.fillLikeCounts(posts)

	utils.CacheSetJSON(cacheKey, gin.H{"success": true, "data": posts}, time.Hour)
	utils.Success(ctx, posts)
}

// GetPost returns a single post by numeric ID or slug, with its author,
// categories, approved comment thread and like count. Every successful fetch
// increments the view counter; the increment runs as a single SQL expression
// so concurrent fetches do not lose updates.
func (p *PostController) GetPost(ctx *gin.Context) {
	idOrSlug := strings.TrimSpace(ctx.Param("id"))

	var post models.Post
	var err error
	if isNumericID(idOrSlug) {
		err = p.db.Preload("Author").Preload("Categories").First(&post, idOrSlug).Error
	} else {
		err = p.db.Preload("Author").Preload("Categories").Where("slug = ?", idOrSlug).First(&post).Error
	}
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		p.fail(ctx, "failed to load post", err)
		return
	}

	if post.Status != models.PostStatusPublished && !p.canSeeUnpublished(ctx, &post) {
		utils.Error(ctx, http.StatusNotFound, "post not found")
		return
	}

	if err := p.db.Model(&models.Post{}).Where("id = ?", post.ID).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error; err != nil {
		utils.Sugar.Warnf("view counter update failed for post %d: %v", post.ID, err)
	} else {
		post.Views++
	}

	var comments []models.Comment
	if err := p.db.Where("post_id = ? AND status = ? AND parent_id IS NULL", post.ID, models.CommentStatusApproved).
		Preload("Author").
		Preload("Replies", "status = ?", models.CommentStatusApproved).
		Preload("Replies.Author").
		Order("created_at DESC").
		Find(&comments).Error; err != nil {
		utils.Sugar.Warnf("failed to load comments for post %d: %v", post.ID, err)
	} else {
		post.Comments = comments
	}

	post.LikesCount = p.likeCount(post.ID)

	utils.Success(ctx, post)
}

// CreatePost allows writers and admins to create posts. A writer's post
// defaults to draft, an admin's to published; only admins may set featured.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Title         string         `json:"title"`
		Content       string         `json:"content"`
		Excerpt       string         `json:"excerpt"`
		FeaturedImage string         `json:"featuredImage"`
		Categories    []uint         `json:"categories"`
		Tags          []string       `json:"tags"`
		Status        string         `json:"status"`
		SEO           models.SEOMeta `json:"seo"`
		Featured      bool           `json:"featured"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	user, ok := loadRequester(ctx, p.db)
	if !ok {
		return
	}
	if !user.CanPublish() {
		utils.Error(ctx, http.StatusForbidden, "not authorized to create posts")
		return
	}

	title := utils.SanitizePlain(strings.TrimSpace(req.Title))
	content := utils.Sanitize(req.Content)

	var errs []utils.FieldError
	if title == "" {
		errs = append(errs, utils.FieldError{Field: "title", Message: "title is required"})
	}
	if strings.TrimSpace(content) == "" {
		errs = append(errs, utils.FieldError{Field: "content", Message: "content is required"})
	}
	if len(req.Categories) == 0 {
		errs = append(errs, utils.FieldError{Field: "categories", Message: "at least one category is required"})
	}
	if req.Status != "" && !models.ValidPostStatus(req.Status) {
		errs = append(errs, utils.FieldError{Field: "status", Message: "invalid status value"})
	}
	if len(errs) > 0 {
		utils.ValidationErrors(ctx, errs)
		return
	}

	cats, err := p.resolveCategories(req.Categories)
	if err != nil {
		utils.ValidationErrors(ctx, []utils.FieldError{{Field: "categories", Message: err.Error()}})
		return
	}

	status := req.Status
	if status == "" {
		if user.IsAdmin() {
			status = models.PostStatusPublished
		} else {
			status = models.PostStatusDraft
		}
	}

	slugVal, err := models.UniqueSlug(p.db, &models.Post{}, title, 0)
	if err != nil {
		p.fail(ctx, "failed to derive slug", err)
		return
	}

	post := models.Post{
		Title:         title,
		Slug:          slugVal,
		Content:       content,
		Excerpt:       strings.TrimSpace(req.Excerpt),
		FeaturedImage: req.FeaturedImage,
		Status:        status,
		Tags:          req.Tags,
		AuthorID:      user.ID,
		SEO:           req.SEO,
		Featured:      user.IsAdmin() && req.Featured,
		Categories:    cats,
	}

	if err := p.db.Create(&post).Error; err != nil {
		p.fail(ctx, "failed to create post", err)
		return
	}
	post.Author = *user

	utils.InvalidateByPrefix("cache:posts:")
	utils.Created(ctx, post)
}

// UpdatePost applies a partial merge. Only the author or an admin may edit;
// the featured flag is silently stripped for non-admins rather than rejected.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	var req struct {
		Title         *string         `json:"title"`
		Content       *string         `json:"content"`
		Excerpt       *string         `json:"excerpt"`
		FeaturedImage *string         `json:"featuredImage"`
		Categories    *[]uint         `json:"categories"`
		Tags          *[]string       `json:"tags"`
		Status        *string         `json:"status"`
		SEO           *models.SEOMeta `json:"seo"`
		Featured      *bool           `json:"featured"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	var post models.Post
	if err := p.db.First(&post, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		p.fail(ctx, "failed to load post", err)
		return
	}

	user, ok := loadRequester(ctx, p.db)
	if !ok {
		return
	}
	if !user.IsAdmin() && post.AuthorID != user.ID {
		utils.Error(ctx, http.StatusForbidden, "not authorized to update this post")
		return
	}

	if req.Title != nil {
		title := utils.SanitizePlain(strings.TrimSpace(*req.Title))
		if title == "" {
			utils.ValidationErrors(ctx, []utils.FieldError{{Field: "title", Message: "title cannot be empty"}})
			return
		}
		if title != post.Title {
			slugVal, err := models.UniqueSlug(p.db, &models.Post{}, title, post.ID)
			if err != nil {
				p.fail(ctx, "failed to derive slug", err)
				return
			}
			post.Slug = slugVal
		}
		post.Title = title
	}
	if req.Content != nil {
		content := utils.Sanitize(*req.Content)
		if strings.TrimSpace(content) == "" {
			utils.ValidationErrors(ctx, []utils.FieldError{{Field: "content", Message: "content cannot be empty"}})
			return
		}
		post.Content = content
	}
	if req.Excerpt != nil {
		post.Excerpt = strings.TrimSpace(*req.Excerpt)
	}
	if req.FeaturedImage != nil {
		post.FeaturedImage = *req.FeaturedImage
	}
	if req.Tags != nil {
		post.Tags = *req.Tags
	}
	if req.Status != nil {
		if !models.ValidPostStatus(*req.Status) {
			utils.ValidationErrors(ctx, []utils.FieldError{{Field: "status", Message: "invalid status value"}})
			return
		}
		post.Status = *req.Status
	}
	if req.SEO != nil {
		post.SEO = *req.SEO
	}
	if req.Featured != nil && user.IsAdmin() {
		post.Featured = *req.Featured
	}

	var cats []models.Category
	if req.Categories != nil {
		if len(*req.Categories) == 0 {
			utils.ValidationErrors(ctx, []utils.FieldError{{Field: "categories", Message: "at least one category is required"}})
			return
		}
		var err error
		cats, err = p.resolveCategories(*req.Categories)
		if err != nil {
			utils.ValidationErrors(ctx, []utils.FieldError{{Field: "categories", Message: err.Error()}})
			return
		}
	}

	if err := p.db.Save(&post).Error; err != nil {
		p.fail(ctx, "failed to update post", err)
		return
	}
	if req.Categories != nil {
		if err := p.db.Model(&post).Association("Categories").Replace(cats); err != nil {
			p.fail(ctx, "failed to update post categories", err)
			return
		}
		post.Categories = cats
	}

	utils.InvalidateByPrefix("cache:posts:")
	utils.Success(ctx, post)
}

// DeletePost removes a post and its category/like join rows. Comments are
// intentionally left in place; see the moderation listing for cleanup.
func (p *PostController) DeletePost(ctx *gin.Context) {
	var post models.Post
	if err := p.db.First(&post, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		p.fail(ctx, "failed to load post", err)
		return
	}

	user, ok := loadRequester(ctx, p.db)
	if !ok {
		return
	}
	if !user.IsAdmin() && post.AuthorID != user.ID {
		utils.Error(ctx, http.StatusForbidden, "not authorized to delete this post")
		return
	}

	if err := p.db.Model(&post).Association("Categories").Clear(); err != nil {
		p.fail(ctx, "failed to detach categories", err)
		return
	}
	if err := p.db.Model(&post).Association("Likes").Clear(); err != nil {
		p.fail(ctx, "failed to clear likes", err)
		return
	}
	if err := p.db.Delete(&post).Error; err != nil {
		p.fail(ctx, "failed to delete post", err)
		return
	}

	utils.InvalidateByPrefix("cache:posts:")
	utils.Success(ctx, gin.H{})
}

// ToggleLike flips the requester's membership in the post's like set and
// returns the resulting action plus the new count. The membership check and
// the write are two steps; concurrent toggles by the same user can race,
// which we accept for this workload.
func (p *PostController) ToggleLike(ctx *gin.Context) {
	uid, ok := requesterID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "authentication required")
		return
	}

	var post models.Post
	if err := p.db.First(&post, ctx.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		p.fail(ctx, "failed to load post", err)
		return
	}

	var liked int64
	if err := p.db.Table("post_likes").
		Where("post_id = ? AND user_id = ?", post.ID, uid).
		Count(&liked).Error; err != nil {
		p.fail(ctx, "failed to check like state", err)
		return
	}

	user := models.User{ID: uid}
	action := "liked"
	if liked > 0 {
		if err := p.db.Model(&post).Association("Likes").Delete(&user); err != nil {
			p.fail(ctx, "failed to remove like", err)
			return
		}
		action = "unliked"
	} else {
		if err := p.db.Model(&post).Association("Likes").Append(&user); err != nil {
			p.fail(ctx, "failed to add like", err)
			return
		}
	}

	utils.Success(ctx, gin.H{"action": action, "likesCount": p.likeCount(post.ID)})
}

func (p *PostController) canSeeUnpublished(ctx *gin.Context, post *models.Post) bool {
	uid, role := liveRole(ctx, p.db)
	if role == models.RoleAdmin {
		return true
	}
	return role != "" && post.AuthorID == uid
}

func (p *PostController) findCategory(idOrSlug string) (*models.Category, error) {
	var cat models.Category
	var err error
	if isNumericID(idOrSlug) {
		err = p.db.First(&cat, idOrSlug).Error
	} else {
		err = p.db.Where("slug = ?", idOrSlug).First(&cat).Error
	}
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// resolveCategories loads the referenced categories and fails when any are missing.
func (p *PostController) resolveCategories(ids []uint) ([]models.Category, error) {
	ids = utils.UniqueUint(ids)
	var cats []models.Category
	if err := p.db.Find(&cats, ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load categories")
	}
	if len(cats) != len(ids) {
		return nil, fmt.Errorf("one or more categories do not exist")
	}
	return cats, nil
}

func (p *PostController) likeCount(postID uint) int64 {
	var n int64
	if err := p.db.Table("post_likes").Where("post_id = ?", postID).Count(&n).Error; err != nil {
		utils.Sugar.Warnf("like count failed for post %d: %v", postID, err)
	}
	return n
}

// fillLikeCounts populates the LikesCount field for a page of posts in one query.
func (p *PostController) fillLikeCounts(posts []models.Post) {
	if len(posts) == 0 {
		return
	}
	ids := make([]uint, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.ID)
	}
	var rows []struct {
		PostID uint
		N      int64
	}
	if err := p.db.Table("post_likes").Select("post_id, COUNT(*) AS n").
		Where("post_id IN ?", ids).Group("post_id").Scan(&rows).Error; err != nil {
		utils.Sugar.Warnf("like counts query failed: %v", err)
		return
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.PostID] = r.N
	}
	for i := range posts {
		posts[i].LikesCount = counts[posts[i].ID]
	}
}

func (p *PostController) fail(ctx *gin.Context, msg string, err error) {
	utils.Sugar.Errorf("%s: %v", msg, err)
	utils.Error(ctx, http.StatusInternalServerError, msg)
}
