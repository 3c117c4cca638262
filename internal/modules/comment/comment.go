package comment

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hamxasajid/blogsite-core/internal/database"
	"github.com/hamxasajid/blogsite-core/internal/middleware"
	"github.com/hamxasajid/blogsite-core/internal/models"
	"github.com/hamxasajid/blogsite-core/internal/pkg/pagination"
	"github.com/hamxasajid/blogsite-core/internal/pkg/response"
)

const maxCommentLength = 500

var (
	errCommentNotFound  = errors.New("comment not found")
	errCommentTextEmpty = errors.New("comment text is required")
	errBlogNotFound     = errors.New("blog not found")
	errCommentsDisabled = errors.New("comments are disabled on this blog")
	errCommentTooLong   = errors.New("comment exceeds 500 characters")
	errReplyTooDeep     = errors.New("replies to replies are not allowed")
	errNotCommentAuthor = errors.New("not the comment author")
)

type CreateCommentDTO struct {
	BlogID string `json:"blog_id" binding:"required"`
	Text   string `json:"text"    binding:"required"`
}

type ReplyCommentDTO struct {
	Text string `json:"text" binding:"required"`
}

type EditCommentDTO struct {
	Text string `json:"text" binding:"required"`
}

type commentResponse struct {
	ID       string             `json:"id"`
	BlogID   string             `json:"blog_id"`
	ParentID *string            `json:"parent_id"`
	Author   string             `json:"author"`
	UserID   string             `json:"user_id"`
	Text     string             `json:"text"`
	Likes    int                `json:"likes"`
	LikedBy  models.StringSlice `json:"liked_by"`
	Replies  []commentResponse  `json:"replies"`
	EditedAt *time.Time         `json:"edited_at"`
	Created  time.Time          `json:"created"`
	Modified time.Time          `json:"modified"`
}

func toResponse(cm *models.CommentModel) commentResponse {
	replies := make([]commentResponse, len(cm.Replies))
	for i := range cm.Replies {
		replies[i] = toResponse(&cm.Replies[i])
	}
	likedBy := cm.LikedBy
	if likedBy == nil {
		likedBy = models.StringSlice{}
	}
	return commentResponse{
		ID: cm.ID, BlogID: cm.BlogID, ParentID: cm.ParentID,
		Author: cm.Author, UserID: cm.UserID, Text: cm.Text,
		Likes: cm.LikeCount, LikedBy: likedBy, Replies: replies,
		EditedAt: cm.EditedAt, Created: cm.CreatedAt, Modified: cm.UpdatedAt,
	}
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// ListByBlog returns top-level comments newest first, each with its replies
// also newest first. Pagination applies to top-level comments only.
func (s *Service) ListByBlog(blogID string, q pagination.Query) ([]models.CommentModel, response.Pagination, error) {
	tx := s.db.Model(&models.CommentModel{}).
		Where("blog_id = ? AND parent_id IS NULL", blogID).
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Order("created_at DESC")

	var comments []models.CommentModel
	pag, err := pagination.Paginate(tx, q, &comments)
	return comments, pag, err
}

func (s *Service) GetByID(id string) (*models.CommentModel, error) {
	var cm models.CommentModel
	if err := s.db.Preload("Replies").First(&cm, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cm, nil
}

func validateText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", errCommentTextEmpty
	}
	if len([]rune(trimmed)) > maxCommentLength {
		return "", errCommentTooLong
	}
	return trimmed, nil
}

func (s *Service) lookupAuthor(tx *gorm.DB, userID string) (*models.UserModel, error) {
	var u models.UserModel
	if err := tx.Select("id, name, username, email").First(&u, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	if u.Name == "" {
		u.Name = u.Username
	}
	return &u, nil
}

// Create adds a top-level comment on a blog that exists and accepts comments.
func (s *Service) Create(userID string, dto *CreateCommentDTO) (*models.CommentModel, error) {
	text, err := validateText(dto.Text)
	if err != nil {
		return nil, err
	}

	var cm models.CommentModel
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var b models.BlogModel
		if err := tx.Select("id, allow_comment").First(&b, "id = ?", dto.BlogID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errBlogNotFound
			}
			return err
		}
		if !b.AllowComment {
			return errCommentsDisabled
		}

		u, err := s.lookupAuthor(tx, userID)
		if err != nil {
			return err
		}
		cm = models.CommentModel{
			BlogID:  dto.BlogID,
			Author:  u.Name,
			Mail:    u.Email,
			UserID:  userID,
			Text:    text,
			LikedBy: models.StringSlice{},
		}
		return tx.Create(&cm).Error
	})
	if err != nil {
		return nil, err
	}
	return &cm, nil
}

// Reply adds a reply under a top-level comment. The parent lookup and the
// insert share one transaction so a parent deleted mid-flight can never gain
// an orphaned reply.
func (s *Service) Reply(parentID, userID string, dto *ReplyCommentDTO) (*models.CommentModel, error) {
	text, err := validateText(dto.Text)
	if err != nil {
		return nil, err
	}

	var cm models.CommentModel
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var parent models.CommentModel
		if err := tx.First(&parent, "id = ?", parentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errCommentNotFound
			}
			return err
		}
		if parent.IsReply() {
			return errReplyTooDeep
		}

		var b models.BlogModel
		if err := tx.Select("id, allow_comment").First(&b, "id = ?", parent.BlogID).Error; err != nil {
			return err
		}
		if !b.AllowComment {
			return errCommentsDisabled
		}

		u, err := s.lookupAuthor(tx, userID)
		if err != nil {
			return err
		}
		cm = models.CommentModel{
			BlogID:   parent.BlogID,
			ParentID: &parent.ID,
			Author:   u.Name,
			Mail:     u.Email,
			UserID:   userID,
			Text:     text,
			LikedBy:  models.StringSlice{},
		}
		return tx.Create(&cm).Error
	})
	if err != nil {
		return nil, err
	}
	return &cm, nil
}

// ToggleLike flips the caller's membership in the comment's liked-by set.
// The count is always the size of the set, so double submits settle on the
// same state they started from. The row is locked for the whole flip;
// otherwise two concurrent togglers would both read the same set and the
// later write would erase the earlier one.
func (s *Service) ToggleLike(commentID, userID string) (*models.CommentModel, error) {
	var cm models.CommentModel
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := database.LockForUpdate(tx).First(&cm, "id = ?", commentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errCommentNotFound
			}
			return err
		}

		if cm.LikedBy.Contains(userID) {
			cm.LikedBy = cm.LikedBy.Without(userID)
		} else {
			cm.LikedBy = append(cm.LikedBy, userID)
		}
		cm.LikeCount = len(cm.LikedBy)

		return tx.Model(&cm).Updates(map[string]interface{}{
			"liked_by":   cm.LikedBy,
			"like_count": cm.LikeCount,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &cm, nil
}

// Edit rewrites the text of the caller's own comment and stamps edited_at.
// Identity is strict: even admins cannot rewrite someone else's words.
func (s *Service) Edit(commentID, userID string, text string) (*models.CommentModel, error) {
	trimmed, err := validateText(text)
	if err != nil {
		return nil, err
	}

	cm, err := s.GetByID(commentID)
	if err != nil {
		return nil, err
	}
	if cm == nil {
		return nil, errCommentNotFound
	}
	if cm.UserID != userID {
		return nil, errNotCommentAuthor
	}

	now := time.Now()
	cm.Text = trimmed
	cm.EditedAt = &now
	return cm, s.db.Model(cm).Updates(map[string]interface{}{
		"text":      trimmed,
		"edited_at": &now,
	}).Error
}

// Delete removes a comment together with its replies. Admins may delete
// any comment for moderation; everyone else only their own.
func (s *Service) Delete(commentID, userID string, role models.Role) error {
	cm, err := s.GetByID(commentID)
	if err != nil {
		return err
	}
	if cm == nil {
		return errCommentNotFound
	}
	if cm.UserID != userID && role != models.RoleAdmin {
		return errNotCommentAuthor
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_id = ?", commentID).Delete(&models.CommentModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.CommentModel{}, "id = ?", commentID).Error
	})
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/comments")

	g.GET("/blog/:blogId", h.listByBlog)

	a := g.Group("", authMW)
	a.POST("", h.create)
	a.POST("/reply/:id", h.reply)
	a.POST("/:id/like", h.toggleLike)
	a.PATCH("/:id", h.edit)
	a.DELETE("/:id", h.delete)
}

func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errCommentNotFound), errors.Is(err, errBlogNotFound):
		response.NotFoundMsg(c, err.Error())
	case errors.Is(err, errCommentsDisabled), errors.Is(err, errReplyTooDeep):
		response.UnprocessableEntity(c, err.Error())
	case errors.Is(err, errCommentTooLong), errors.Is(err, errCommentTextEmpty):
		response.BadRequest(c, err.Error())
	case errors.Is(err, errNotCommentAuthor):
		response.Forbidden(c)
	default:
		response.InternalError(c, err)
	}
}

func (h *Handler) listByBlog(c *gin.Context) {
	q := pagination.FromContext(c)
	comments, pag, err := h.svc.ListByBlog(c.Param("blogId"), q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]commentResponse, len(comments))
	for i := range comments {
		items[i] = toResponse(&comments[i])
	}
	response.Paged(c, items, pag)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateCommentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	cm, err := h.svc.Create(middleware.CurrentUserID(c), &dto)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Created(c, toResponse(cm))
}

func (h *Handler) reply(c *gin.Context) {
	var dto ReplyCommentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	cm, err := h.svc.Reply(c.Param("id"), middleware.CurrentUserID(c), &dto)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Created(c, toResponse(cm))
}

func (h *Handler) toggleLike(c *gin.Context) {
	cm, err := h.svc.ToggleLike(c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.OK(c, gin.H{"likes": cm.LikeCount, "liked_by": cm.LikedBy})
}

func (h *Handler) edit(c *gin.Context) {
	var dto EditCommentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	cm, err := h.svc.Edit(c.Param("id"), middleware.CurrentUserID(c), dto.Text)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.OK(c, toResponse(cm))
}

func (h *Handler) delete(c *gin.Context) {
	err := h.svc.Delete(c.Param("id"), middleware.CurrentUserID(c), middleware.CurrentRole(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.NoContent(c)
}
