package blog

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hamxasajid/blogsite-core/internal/middleware"
	"github.com/hamxasajid/blogsite-core/internal/models"
	"github.com/hamxasajid/blogsite-core/internal/pkg/pagination"
	"github.com/hamxasajid/blogsite-core/internal/pkg/readtime"
	"github.com/hamxasajid/blogsite-core/internal/pkg/response"
)

var (
	errBlogNotFound = errors.New("blog not found")
	errNotOwner     = errors.New("not the blog owner")
)

type CreateBlogDTO struct {
	Title        string             `json:"title" binding:"required,max=200"`
	Text         string             `json:"text"  binding:"required"`
	Category     string             `json:"category"`
	Tags         models.StringSlice `json:"tags"`
	CoverImage   string             `json:"cover_image"`
	AllowComment *bool              `json:"allow_comment"`
	Status       models.BlogStatus  `json:"status"`
}

type UpdateBlogDTO struct {
	Title        *string             `json:"title"`
	Text         *string             `json:"text"`
	Category     *string             `json:"category"`
	Tags         *models.StringSlice `json:"tags"`
	CoverImage   *string             `json:"cover_image"`
	AllowComment *bool               `json:"allow_comment"`
	Status       *models.BlogStatus  `json:"status"`
}

type authorSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
}

type blogResponse struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	Text         string             `json:"text"`
	Category     string             `json:"category"`
	Tags         models.StringSlice `json:"tags"`
	CoverImage   string             `json:"cover_image"`
	AllowComment bool               `json:"allow_comment"`
	Status       models.BlogStatus  `json:"status"`
	ReadTime     int                `json:"read_time"`
	Count        models.Count       `json:"count"`
	UserID       string             `json:"user_id"`
	Author       *authorSummary     `json:"author,omitempty"`
	Created      time.Time          `json:"created"`
	Modified     time.Time          `json:"modified"`
}

func toResponse(b *models.BlogModel) blogResponse {
	r := blogResponse{
		ID: b.ID, Title: b.Title, Text: b.Text,
		Category: b.Category, Tags: b.Tags, CoverImage: b.CoverImage,
		AllowComment: b.AllowComment, Status: b.Status,
		ReadTime: b.ReadTime, Count: b.GetCount(),
		UserID: b.UserID, Created: b.CreatedAt, Modified: b.UpdatedAt,
	}
	if b.User != nil {
		r.Author = &authorSummary{
			ID: b.User.ID, Username: b.User.Username,
			Name: b.User.Name, Avatar: b.User.Avatar,
		}
	}
	return r
}

type ListOptions struct {
	Category string
	Tag      string
	Status   *models.BlogStatus
	UserID   string
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) List(q pagination.Query, opts ListOptions) ([]models.BlogModel, response.Pagination, error) {
	tx := s.db.Model(&models.BlogModel{}).
		Preload("User").
		Order("created_at DESC")

	if opts.Status != nil {
		tx = tx.Where("status = ?", *opts.Status)
	}
	if opts.Category != "" {
		tx = tx.Where("category = ?", opts.Category)
	}
	if opts.Tag != "" {
		tx = tx.Where("tags LIKE ?", "%\""+opts.Tag+"\"%")
	}
	if opts.UserID != "" {
		tx = tx.Where("user_id = ?", opts.UserID)
	}

	var blogs []models.BlogModel
	pag, err := pagination.Paginate(tx, q, &blogs)
	return blogs, pag, err
}

func (s *Service) GetByID(id string) (*models.BlogModel, error) {
	var b models.BlogModel
	if err := s.db.Preload("User").First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// IncrementRead bumps the read counter. Callers fire it in a goroutine so
// reads never wait on the write.
func (s *Service) IncrementRead(id string) {
	s.db.Model(&models.BlogModel{}).
		Where("id = ?", id).
		Update("read_count", gorm.Expr("read_count + 1"))
}

func (s *Service) Create(userID string, dto *CreateBlogDTO) (*models.BlogModel, error) {
	status := dto.Status
	if status == "" {
		status = models.BlogDraft
	}
	allowComment := true
	if dto.AllowComment != nil {
		allowComment = *dto.AllowComment
	}

	b := models.BlogModel{
		Title:        strings.TrimSpace(dto.Title),
		Text:         dto.Text,
		Category:     strings.TrimSpace(dto.Category),
		Tags:         dto.Tags,
		CoverImage:   dto.CoverImage,
		AllowComment: allowComment,
		Status:       status,
		ReadTime:     readtime.Minutes(dto.Text),
		UserID:       userID,
	}
	if err := s.db.Create(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// Update applies a partial edit. Only the owner may edit; admins can delete
// a blog but not rewrite it. Read time is recomputed whenever the text
// changes.
func (s *Service) Update(id, userID string, dto *UpdateBlogDTO) (*models.BlogModel, error) {
	b, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, errBlogNotFound
	}
	if b.UserID != userID {
		return nil, errNotOwner
	}

	updates := map[string]interface{}{}
	if dto.Title != nil {
		updates["title"] = strings.TrimSpace(*dto.Title)
		b.Title = strings.TrimSpace(*dto.Title)
	}
	if dto.Text != nil {
		rt := readtime.Minutes(*dto.Text)
		updates["text"] = *dto.Text
		updates["read_time"] = rt
		b.Text = *dto.Text
		b.ReadTime = rt
	}
	if dto.Category != nil {
		updates["category"] = strings.TrimSpace(*dto.Category)
		b.Category = strings.TrimSpace(*dto.Category)
	}
	if dto.Tags != nil {
		updates["tags"] = *dto.Tags
		b.Tags = *dto.Tags
	}
	if dto.CoverImage != nil {
		updates["cover_image"] = *dto.CoverImage
		b.CoverImage = *dto.CoverImage
	}
	if dto.AllowComment != nil {
		updates["allow_comment"] = *dto.AllowComment
		b.AllowComment = *dto.AllowComment
	}
	if dto.Status != nil {
		updates["status"] = *dto.Status
		b.Status = *dto.Status
	}
	if len(updates) == 0 {
		return b, nil
	}
	return b, s.db.Model(b).Updates(updates).Error
}

// Delete removes a blog with its comments and like rows in one transaction.
func (s *Service) Delete(id, userID string, role models.Role) error {
	b, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if b == nil {
		return errBlogNotFound
	}
	if b.UserID != userID && role != models.RoleAdmin {
		return errNotOwner
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("blog_id = ?", id).Delete(&models.CommentModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("blog_id = ?", id).Delete(&models.BlogLikeModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(b).Error
	})
}

// ToggleLike flips the caller's like on a blog. The counter is always set to
// the count of join rows inside the same transaction, so it cannot drift
// from the rows that back it.
func (s *Service) ToggleLike(blogID, userID string) (likes int64, liked bool, err error) {
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.BlogModel{}).Where("id = ?", blogID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return errBlogNotFound
		}

		var like models.BlogLikeModel
		err := tx.Where("user_id = ? AND blog_id = ?", userID, blogID).First(&like).Error
		switch {
		case err == nil:
			if err := tx.Delete(&like).Error; err != nil {
				return err
			}
			liked = false
		case errors.Is(err, gorm.ErrRecordNotFound):
			like = models.BlogLikeModel{UserID: userID, BlogID: blogID}
			if err := tx.Create(&like).Error; err != nil {
				return err
			}
			liked = true
		default:
			return err
		}

		if err := tx.Model(&models.BlogLikeModel{}).
			Where("blog_id = ?", blogID).
			Count(&likes).Error; err != nil {
			return err
		}
		return tx.Model(&models.BlogModel{}).
			Where("id = ?", blogID).
			Update("like_count", likes).Error
	})
	return likes, liked, err
}

// HasLiked reports whether the user currently likes the blog.
func (s *Service) HasLiked(blogID, userID string) bool {
	if userID == "" {
		return false
	}
	var count int64
	s.db.Model(&models.BlogLikeModel{}).
		Where("user_id = ? AND blog_id = ?", userID, blogID).
		Count(&count)
	return count > 0
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/blogs")

	g.GET("", h.list)
	g.GET("/:id", h.get)

	a := g.Group("", authMW)
	a.POST("", middleware.RequireRole(models.RoleAuthor, models.RoleAdmin), h.create)
	a.PATCH("/:id", h.update)
	a.DELETE("/:id", h.delete)
	a.POST("/:id/like", h.toggleLike)
}

func (h *Handler) canSeeUnpublished(c *gin.Context, ownerID string) bool {
	if !middleware.IsAuthenticated(c) {
		return false
	}
	if middleware.CurrentRole(c) == models.RoleAdmin {
		return true
	}
	return ownerID != "" && middleware.CurrentUserID(c) == ownerID
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)

	opts := ListOptions{
		Category: c.Query("category"),
		Tag:      c.Query("tag"),
		UserID:   c.Query("user_id"),
	}

	published := models.BlogPublished
	opts.Status = &published
	if raw := c.Query("status"); raw != "" {
		status := models.BlogStatus(raw)
		// drafts are only listable by their owner or an admin
		if status == models.BlogDraft && !h.canSeeUnpublished(c, opts.UserID) {
			response.Forbidden(c)
			return
		}
		opts.Status = &status
	}

	blogs, pag, err := h.svc.List(q, opts)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]blogResponse, len(blogs))
	for i := range blogs {
		items[i] = toResponse(&blogs[i])
	}
	response.Paged(c, items, pag)
}

func (h *Handler) get(c *gin.Context) {
	b, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if b == nil || (b.Status != models.BlogPublished && !h.canSeeUnpublished(c, b.UserID)) {
		response.NotFound(c)
		return
	}

	go h.svc.IncrementRead(b.ID)

	item := toResponse(b)
	item.Count.Read++
	response.OK(c, gin.H{
		"data":  item,
		"liked": h.svc.HasLiked(b.ID, middleware.CurrentUserID(c)),
	})
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateBlogDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if dto.Status != "" && dto.Status != models.BlogDraft && dto.Status != models.BlogPublished {
		response.BadRequest(c, "unknown status")
		return
	}
	b, err := h.svc.Create(middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, toResponse(b))
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateBlogDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if dto.Status != nil && *dto.Status != models.BlogDraft && *dto.Status != models.BlogPublished {
		response.BadRequest(c, "unknown status")
		return
	}
	b, err := h.svc.Update(c.Param("id"), middleware.CurrentUserID(c), &dto)
	if err != nil {
		switch {
		case errors.Is(err, errBlogNotFound):
			response.NotFound(c)
		case errors.Is(err, errNotOwner):
			response.Forbidden(c)
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, toResponse(b))
}

func (h *Handler) delete(c *gin.Context) {
	err := h.svc.Delete(c.Param("id"), middleware.CurrentUserID(c), middleware.CurrentRole(c))
	if err != nil {
		switch {
		case errors.Is(err, errBlogNotFound):
			response.NotFound(c)
		case errors.Is(err, errNotOwner):
			response.Forbidden(c)
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.NoContent(c)
}

func (h *Handler) toggleLike(c *gin.Context) {
	likes, liked, err := h.svc.ToggleLike(c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		if errors.Is(err, errBlogNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"likes": likes, "liked": liked})
}
