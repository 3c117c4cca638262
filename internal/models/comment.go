package models

import "time"

// CommentModel is a comment on a blog post. A reply is a comment whose
// ParentID is non-nil; the parent's Replies list is derived from that
// back-reference at read time, so the two can never disagree.
type CommentModel struct {
	Base
	BlogID    string         `json:"blog_id"   gorm:"not null;index"`
	ParentID  *string        `json:"parent_id" gorm:"index"`
	Replies   []CommentModel `json:"replies,omitempty" gorm:"foreignKey:ParentID"`
	Author    string         `json:"author"    gorm:"not null"`
	Mail      string         `json:"mail"      gorm:"not null"`
	UserID    string         `json:"user_id"   gorm:"index"`
	Text      string         `json:"text"      gorm:"type:text;not null"`
	LikeCount int            `json:"likes"     gorm:"column:like_count;default:0"`
	LikedBy   StringSlice    `json:"liked_by"  gorm:"type:json;serializer:json"`
	EditedAt  *time.Time     `json:"edited_at"`
}

func (CommentModel) TableName() string { return "comments" }

// IsReply reports whether the comment is attached to another comment
// rather than directly to the blog post.
func (c *CommentModel) IsReply() bool { return c.ParentID != nil }
