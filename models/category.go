package models

import "time"

// Category is a taxonomy node used to classify posts. The parent reference
// allows a shallow hierarchy; depth and cycles are not validated here.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug        string    `gorm:"size:120;uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"size:500" json:"description"`
	Image       string    `gorm:"size:512" json:"image"`
	Featured    bool      `gorm:"default:false" json:"featured"`
	ParentID    *uint     `gorm:"index" json:"parentId"`
	Order       int       `gorm:"column:display_order;default:0" json:"order"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
