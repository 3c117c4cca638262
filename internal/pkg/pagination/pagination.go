package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hamxasajid/blogsite-core/internal/pkg/response"
)

const (
	DefaultPage = 1
	DefaultSize = 10
	MaxSize     = 100
)

// Query holds parsed pagination parameters.
type Query struct {
	Page int
	Size int
}

// FromContext reads page and size from the query string, falling back to
// defaults and clamping size to MaxSize.
func FromContext(c *gin.Context) Query {
	q := Query{
		Page: atoiDefault(c.Query("page"), DefaultPage),
		Size: atoiDefault(c.Query("size"), DefaultSize),
	}
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Size < 1 {
		q.Size = DefaultSize
	} else if q.Size > MaxSize {
		q.Size = MaxSize
	}
	return q
}

// Paginate runs a count plus a limit/offset find on the given query and
// returns the page metadata alongside the results.
func Paginate[T any](db *gorm.DB, q Query, dest *[]T) (response.Pagination, error) {
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return response.Pagination{}, err
	}
	if err := db.Offset((q.Page - 1) * q.Size).Limit(q.Size).Find(dest).Error; err != nil {
		return response.Pagination{}, err
	}
	return Meta(total, q), nil
}

// Meta builds pagination metadata for a known total.
func Meta(total int64, q Query) response.Pagination {
	pages := int((total + int64(q.Size) - 1) / int64(q.Size))
	return response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   pages,
		Size:        q.Size,
		HasNextPage: q.Page < pages,
	}
}

func atoiDefault(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
