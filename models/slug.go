package models

import (
	"fmt"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// UniqueSlug derives a URL slug from source and guarantees uniqueness within
// the table of model. Collisions resolve deterministically by appending an
// increasing counter: "hello-world", "hello-world-2", "hello-world-3", ...
// excludeID skips the row being updated so a record keeps its own slug.
func UniqueSlug(tx *gorm.DB, model interface{}, source string, excludeID uint) (string, error) {
	base := slug.Make(source)
	if base == "" {
		base = "untitled"
	}

	candidate := base
	for i := 2; ; i++ {
		var count int64
		q := tx.Model(model).Where("slug = ?", candidate)
		if excludeID != 0 {
			q = q.Where("id <> ?", excludeID)
		}
		if err := q.Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
