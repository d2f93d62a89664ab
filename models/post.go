package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Post lifecycle states. Transitions are not constrained; any permitted
// writer can move a post to any state directly.
const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
	PostStatusArchived  = "archived"
)

// ValidPostStatus reports whether s is one of the known post states.
func ValidPostStatus(s string) bool {
	return s == PostStatusDraft || s == PostStatusPublished || s == PostStatusArchived
}

// readingWordsPerMinute is the fixed speed used for the read-time estimate.
const readingWordsPerMinute = 200

// excerptLength is the number of leading content characters used when no
// explicit excerpt is supplied.
const excerptLength = 160

// SEOMeta carries optional per-post SEO metadata.
type SEOMeta struct {
	MetaTitle       string   `gorm:"size:255" json:"metaTitle,omitempty"`
	MetaDescription string   `gorm:"size:500" json:"metaDescription,omitempty"`
	Keywords        []string `gorm:"serializer:json;type:text" json:"keywords,omitempty"`
	CanonicalURL    string   `gorm:"size:512" json:"canonicalUrl,omitempty"`
	OGImage         string   `gorm:"size:512" json:"ogImage,omitempty"`
}

// Post represents an article written by a writer or admin.
type Post struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Title         string     `gorm:"size:200;not null" json:"title"`
	Slug          string     `gorm:"size:220;uniqueIndex;not null" json:"slug"`
	Content       string     `gorm:"type:longtext;not null" json:"content"`
	Excerpt       string     `gorm:"size:500" json:"excerpt"`
	FeaturedImage string     `gorm:"size:512;default:'no-image.jpg'" json:"featuredImage"`
	Status        string     `gorm:"size:16;index;not null;default:'draft'" json:"status"`
	Tags          []string   `gorm:"serializer:json;type:text" json:"tags"`
	AuthorID      uint       `gorm:"index;not null" json:"authorId"`
	Author        User       `json:"author"`
	ReadTime      int        `gorm:"default:1" json:"readTime"`
	Views         int64      `gorm:"default:0" json:"views"`
	SEO           SEOMeta    `gorm:"embedded;embeddedPrefix:seo_" json:"seo"`
	Featured      bool       `gorm:"index;default:false" json:"featured"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	Categories    []Category `gorm:"many2many:post_categories" json:"categories"`
	Comments      []Comment  `json:"comments,omitempty"`
	Likes         []User     `gorm:"many2many:post_likes" json:"-"`

	// Filled by handlers after loading, not persisted.
	LikesCount int64 `gorm:"-" json:"likesCount"`
}

// BeforeSave keeps the derived fields consistent with the content body.
func (p *Post) BeforeSave(tx *gorm.DB) error {
	p.ReadTime = EstimateReadTime(p.Content)
	if strings.TrimSpace(p.Excerpt) == "" {
		p.Excerpt = DeriveExcerpt(p.Content)
	}
	return nil
}

// EstimateReadTime returns the reading estimate in whole minutes for the
// given content at a fixed 200 words/minute, never below one minute.
func EstimateReadTime(content string) int {
	words := len(strings.Fields(content))
	minutes := (words + readingWordsPerMinute - 1) / readingWordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// DeriveExcerpt builds the default excerpt from the leading content characters.
func DeriveExcerpt(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= excerptLength {
		return string(runes)
	}
	return string(runes[:excerptLength]) + "..."
}
