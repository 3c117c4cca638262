package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlogLikeModel is a (user, blog) join record; its existence means "liked".
// It is the source of truth for a blog's like counter, which is always
// recomputed from a COUNT of these rows. Hard-deleted (no DeletedAt) so the
// composite unique index stays authoritative across like/unlike cycles.
type BlogLikeModel struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"not null;uniqueIndex:idx_blog_likes_user_blog"`
	BlogID    string    `json:"blog_id"    gorm:"not null;uniqueIndex:idx_blog_likes_user_blog;index"`
	CreatedAt time.Time `json:"created"`
}

func (m *BlogLikeModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

func (BlogLikeModel) TableName() string { return "blog_likes" }
