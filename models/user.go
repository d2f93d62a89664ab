package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles used by every permission check. The role column is authoritative.
const (
	RoleAdmin  = "admin"
	RoleWriter = "writer"
	RoleUser   = "user"
)

// DefaultAvatar is assigned to accounts created without a profile image.
const DefaultAvatar = "https://images.pexels.com/photos/771742/pexels-photo-771742.jpeg?auto=compress&cs=tinysrgb&dpr=1&w=500"

// ValidRole reports whether s is one of the known roles.
func ValidRole(s string) bool {
	return s == RoleAdmin || s == RoleWriter || s == RoleUser
}

// SocialLinks groups the optional profile links shown on author pages.
type SocialLinks struct {
	Twitter   string `gorm:"size:255" json:"twitter,omitempty"`
	Facebook  string `gorm:"size:255" json:"facebook,omitempty"`
	LinkedIn  string `gorm:"size:255" json:"linkedin,omitempty"`
	Instagram string `gorm:"size:255" json:"instagram,omitempty"`
	Website   string `gorm:"size:255" json:"website,omitempty"`
}

// User represents a platform account. Passwords are stored as bcrypt hashes only;
// federated accounts carry a GoogleID and may have no password at all.
type User struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"size:50;not null" json:"name"`
	Email         string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash  string         `gorm:"size:255" json:"-"`
	GoogleID      string         `gorm:"size:255;index" json:"-"`
	Role          string         `gorm:"size:16;not null;default:'user'" json:"role"`
	Avatar        string         `gorm:"size:512" json:"avatar"`
	Bio           string         `gorm:"size:500" json:"bio"`
	Social        SocialLinks    `gorm:"embedded;embeddedPrefix:social_" json:"social"`
	IsActive      bool           `gorm:"default:true" json:"isActive"`
	EmailVerified bool           `gorm:"default:false" json:"emailVerified"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	Posts      []Post    `gorm:"foreignKey:AuthorID" json:"-"`
	Comments   []Comment `gorm:"foreignKey:AuthorID" json:"-"`
	LikedPosts []Post    `gorm:"many2many:post_likes;joinForeignKey:UserID;joinReferences:PostID" json:"-"`
}

// BeforeCreate fills defaults that the column tags cannot express.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Avatar == "" {
		u.Avatar = DefaultAvatar
	}
	return nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanPublish reports whether the user may create posts.
func (u *User) CanPublish() bool {
	return u.Role == RoleAdmin || u.Role == RoleWriter
}
