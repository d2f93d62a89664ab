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

// CategoryController manages the post taxonomy. Reads are public and cached;
// writes are admin only.
type CategoryController struct {
	db *gorm.DB
}

// NewCategoryController creates a new CategoryController instance.
func NewCategoryController(db *gorm.DB) *CategoryController {
	return &CategoryController{db: db}
}

var categorySortFields = map[string]string{
	"name":      "name",
	"createdAt": "created_at",
	"order":     "display_order",
}

// ListCategories returns all categories, optionally restricted to featured
// ones, ordered by the display order by default.
func (c *CategoryController) ListCategories(ctx *gin.Context) {
	sort := parseSort(ctx.Query("sort"), categorySortFields, "display_order ASC, name ASC")
	featured := ctx.Query("featured") == "true"

	cacheKey := fmt.Sprintf("cache:categories:list:f=%t:sort=%s", featured, sort)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	q := c.db.Model(&models.Category{})
	if featured {
		q = q.Where("featured = ?", true)
	}

	var categories []models.Category
	if err := q.Order(sort).Find(&categories).Error; err != nil {
		c.fail(ctx, "failed to list categories", err)
		return
	}

	utils.CacheSetJSON(cacheKey, gin.H{"success": true, "data": categories}, time.Hour)
	utils.Success(ctx, categories)
}

// GetCategory returns a single category by numeric ID or slug.
func (c *CategoryController) GetCategory(ctx *gin.Context) {
	idOrSlug := strings.TrimSpace(ctx.Param("id"))

	var category models.Category
	var err error
	if isNumericID(idOrSlug) {
		err = c.db.First(&category, idOrSlug).Error
	} else {
		err = c.db.Where("slug = ?", idOrSlug).First(&category).Error
	}
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, "category not found")
			return
		}
		c.fail(ctx, "failed to load category", err)
		return
	}

	utils.Success(ctx, category)
}

// CreateCategory adds a taxonomy node. Admin only.
func (c *CategoryController) CreateCategory(ctx *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Image       string `json:"image"`
		Featured    bool   `json:"featured"`
		ParentID    *uint  `json:"parentId"`
		Order       int    `json:"order"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	name := utils.SanitizePlain(strings.TrimSpace(req.Name))
	if name == "" {
		utils.ValidationErrors(ctx, []utils.FieldError{{Field: "name", Message: "name is required"}})
		return
	}

	var existing int64
	c.db.Model(&models.Category{}).Where("name = ?", name).Count(&existing)
	if existing > 0 {
		utils.ValidationErrors(ctx, []utils.FieldError{{Field: "name", Message: "a category with this name already exists"}})
		return
	}

	if req.ParentID != nil {
		var parent models.Category
		if err := c.db.First(&parent, *req.ParentID).Error; err != nil {
			utils.ValidationErrors(ctx, []utils.FieldError{{Field: "parentId", Message: "parent category does not exist"}})
			return
		}
	}

	slugVal, err := models.UniqueSlug(c.db, &models.Category{}, name, 0)
	if err != nil {
		c.fail(ctx, "failed to derive slug", err)
		return
	}

	category := models.Category{
		Name:        name,
		Slug:        slugVal,
		Description: strings.TrimSpace(req.Description),
		Image:       req.Image,
		Featured:    req.Featured,
		ParentID:    req.ParentID,
		Order:       req.Order,
	}
	if err := c.db.Create(&category).Error; err != nil {
		c.fail(ctx, "failed to create category", err)
		return
	}

	utils.InvalidateByPrefix("cache:categories:")
	utils.InvalidateByPrefix("cache:posts:")
	utils.Created(ctx, category)
}

// UpdateCategory applies a partial merge to a category. Admin only. A name
// change re-derives the slug, so external links through the old slug break.
func (c *CategoryController) UpdateCategory(ctx *gin.Context) {
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Image       *string `json:"image"`
		Featured    *bool   `json:"featured"`
		ParentID    *uint   `json:"parentId"`
		Order       *int    `json:"order"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	var category models.Category
	if err := c.db.First(&category, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, "category not found")
		return
	}

	if req.Name != nil {
		name := utils.SanitizePlain(strings.TrimSpace(*req.Name))
		if name == "" {
			utils.ValidationErrors(ctx, []utils.FieldError{{Field: "name", Message: "name cannot be empty"}})
			return
		}
		if name != category.Name {
			var existing int64
			c.db.Model(&models.Category{}).Where("name = ? AND id <> ?", name, category.ID).Count(&existing)
			if existing > 0 {
				utils.ValidationErrors(ctx, []utils.FieldError{{Field: "name", Message: "a category with this name already exists"}})
				return
			}
			slugVal, err := models.UniqueSlug(c.db, &models.Category{}, name, category.ID)
			if err != nil {
				c.fail(ctx, "failed to derive slug", err)
				return
			}
			category.Slug = slugVal
		}
		category.Name = name
	}
	if req.Description != nil {
		category.Description = strings.TrimSpace(*req.Description)
	}
	if req.Image != nil {
		category.Image = *req.Image
	}
	if req.Featured != nil {
		category.Featured = *req.Featured
	}
	if req.ParentID != nil {
		if *req.ParentID == category.ID {
			utils.ValidationErrors(ctx, []utils.FieldError{{Field: "parentId", Message: "a category cannot be its own parent"}})
			return
		}
		var parent models.Category
		if err := c.db.First(&parent, *req.ParentID).Error; err != nil {
			utils.ValidationErrors(ctx, []utils.FieldError{{Field: "parentId", Message: "parent category does not exist"}})
			return
		}
		category.ParentID = req.ParentID
	}
	if req.Order != nil {
		category.Order = *req.Order
	}

	if err := c.db.Save(&category).Error; err != nil {
		c.fail(ctx, "failed to update category", err)
		return
	}

	utils.InvalidateByPrefix("cache:categories:")
	utils.InvalidateByPrefix("cache:posts:")
	utils.Success(ctx, category)
}

// DeleteCategory removes a category and detaches it from posts. Posts that
// end up with no category are left as-is; the minimum applies on writes only.
func (c *CategoryController) DeleteCategory(ctx *gin.Context) {
	var category models.Category
	if err := c.db.First(&category, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, "category not found")
		return
	}

	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM post_categories WHERE category_id = ?", category.ID).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Category{}).Where("parent_id = ?", category.ID).
			Update("parent_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	})
	if err != nil {
		c.fail(ctx, "failed to delete category", err)
		return
	}

	utils.InvalidateByPrefix("cache:categories:")
	utils.InvalidateByPrefix("cache:posts:")
	utils.Success(ctx, gin.H{})
}

func (c *CategoryController) fail(ctx *gin.Context, msg string, err error) {
	utils.Sugar.Errorf("%s: %v", msg, err)
	utils.Error(ctx, http.StatusInternalServerError, msg)
}
