package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Comment moderation states. Only the approved state is publicly visible.
const (
	CommentStatusPending  = "pending"
	CommentStatusApproved = "approved"
	CommentStatusRejected = "rejected"
	CommentStatusSpam     = "spam"
)

// ValidCommentStatus reports whether s is one of the known moderation states.
func ValidCommentStatus(s string) bool {
	switch s {
	case CommentStatusPending, CommentStatusApproved, CommentStatusRejected, CommentStatusSpam:
		return true
	}
	return false
}

// ErrCommentIdentity is returned when a comment carries neither an author
// reference nor guest info.
var ErrCommentIdentity = errors.New("comment requires an author or guest info")

// GuestInfo identifies a non-authenticated comment author.
type GuestInfo struct {
	Name  string `gorm:"size:100" json:"name,omitempty"`
	Email string `gorm:"size:255" json:"email,omitempty"`
}

// Comment is a reply to a post, optionally threaded one level under a parent.
type Comment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Content     string    `gorm:"size:1000;not null" json:"content"`
	PostID      uint      `gorm:"index;not null" json:"postId"`
	Post        *Post     `json:"post,omitempty"`
	AuthorID    *uint     `gorm:"index" json:"authorId"`
	Author      *User     `json:"author,omitempty"`
	ParentID    *uint     `gorm:"index" json:"parentId"`
	Status      string    `gorm:"size:16;index;not null;default:'pending'" json:"status"`
	IsAnonymous bool      `gorm:"default:false" json:"isAnonymous"`
	Guest       GuestInfo `gorm:"embedded;embeddedPrefix:guest_" json:"guestInfo"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Replies     []Comment `gorm:"foreignKey:ParentID" json:"replies,omitempty"`
	Likes       []User    `gorm:"many2many:comment_likes" json:"-"`

	// Filled by handlers after loading, not persisted.
	LikesCount int64 `gorm:"-" json:"likesCount"`
}

// BeforeCreate enforces the identity invariant: every comment belongs to an
// authenticated author or carries guest info.
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.AuthorID == nil && c.Guest.Name == "" && c.Guest.Email == "" {
		return ErrCommentIdentity
	}
	if c.Status == "" {
		c.Status = CommentStatusPending
	}
	return nil
}
