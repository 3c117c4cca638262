package models

// BlogStatus is the publication state of a blog post.
type BlogStatus string

const (
	BlogDraft     BlogStatus = "draft"
	BlogPublished BlogStatus = "published"
)

// BlogModel is a blog post.
type BlogModel struct {
	Base
	Title        string      `json:"title"         gorm:"not null"`
	Text         string      `json:"text"          gorm:"type:longtext"`
	Category     string      `json:"category"      gorm:"index"`
	Tags         StringSlice `json:"tags"          gorm:"type:json;serializer:json"`
	CoverImage   string      `json:"cover_image"`
	AllowComment bool        `json:"allow_comment" gorm:"default:true"`
	Status       BlogStatus  `json:"status"        gorm:"default:draft;index"`
	ReadTime     int         `json:"read_time"     gorm:"default:1"`
	ReadCount    int         `json:"read"          gorm:"column:read_count;default:0"`
	LikeCount    int         `json:"like"          gorm:"column:like_count;default:0"`
	UserID       string      `json:"user_id"       gorm:"index;not null"`
	User         *UserModel  `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (BlogModel) TableName() string { return "blogs" }

// Count returns the embedded read/like counts expected by the API.
func (b BlogModel) GetCount() Count {
	return Count{Read: b.ReadCount, Like: b.LikeCount}
}

// Count tracks read and like counts for content.
type Count struct {
	Read int `json:"read"`
	Like int `json:"like"`
}
