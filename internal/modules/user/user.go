package user

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hamxasajid/blogsite-core/internal/middleware"
	"github.com/hamxasajid/blogsite-core/internal/models"
	"github.com/hamxasajid/blogsite-core/internal/pkg/pagination"
	"github.com/hamxasajid/blogsite-core/internal/pkg/redis"
	"github.com/hamxasajid/blogsite-core/internal/pkg/response"
)

// heartbeatWindow throttles how often a heartbeat touches the database; the
// redis key absorbs the rest.
const heartbeatWindow = 60 * time.Second

var (
	errUserNotFound      = errors.New("user not found")
	errInvalidRoleUpdate = errors.New("invalid role update")
)

type UpdateRoleDTO struct {
	Role models.Role `json:"role" binding:"required"`
}

type userResponse struct {
	ID            string      `json:"id"`
	Username      string      `json:"username"`
	Email         string      `json:"email"`
	Name          string      `json:"name"`
	Avatar        string      `json:"avatar"`
	Bio           string      `json:"bio"`
	Role          models.Role `json:"role"`
	EmailVerified bool        `json:"email_verified"`
	LastActiveAt  *time.Time  `json:"last_active_at"`
	Created       time.Time   `json:"created"`
}

type publicUserResponse struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Name     string      `json:"name"`
	Avatar   string      `json:"avatar"`
	Bio      string      `json:"bio"`
	Role     models.Role `json:"role"`
	Created  time.Time   `json:"created"`
}

func toResponse(u *models.UserModel) userResponse {
	return userResponse{
		ID: u.ID, Username: u.Username, Email: u.Email,
		Name: u.Name, Avatar: u.Avatar, Bio: u.Bio,
		Role: u.Role, EmailVerified: u.EmailVerified,
		LastActiveAt: u.LastActiveAt, Created: u.CreatedAt,
	}
}

func toPublicResponse(u *models.UserModel) publicUserResponse {
	return publicUserResponse{
		ID: u.ID, Username: u.Username, Name: u.Name,
		Avatar: u.Avatar, Bio: u.Bio, Role: u.Role, Created: u.CreatedAt,
	}
}

type Service struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{db: db, rdb: rdb}
}

func (s *Service) List(q pagination.Query, role *models.Role) ([]models.UserModel, response.Pagination, error) {
	tx := s.db.Model(&models.UserModel{}).Order("created_at DESC")
	if role != nil {
		tx = tx.Where("role = ?", *role)
	}
	var users []models.UserModel
	pag, err := pagination.Paginate(tx, q, &users)
	return users, pag, err
}

func (s *Service) GetByID(id string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// UpdateRole promotes a pending account to author. Every other transition is
// rejected, including promoting an account that is already an author.
func (s *Service) UpdateRole(id string, role models.Role) (*models.UserModel, error) {
	if !models.ValidRole(role) {
		return nil, errInvalidRoleUpdate
	}
	u, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errUserNotFound
	}
	if u.Role != models.RolePending || role != models.RoleAuthor {
		return nil, errInvalidRoleUpdate
	}
	u.Role = role
	return u, s.db.Model(u).Update("role", role).Error
}

func (s *Service) Delete(id string) error {
	u, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if u == nil {
		return errUserNotFound
	}
	return s.db.Delete(u).Error
}

// Heartbeat marks the user as recently active. The database row is only
// touched when the redis throttle key is absent, so a chatty client costs a
// single UPDATE per window.
func (s *Service) Heartbeat(userID string) (time.Time, error) {
	now := time.Now()
	fresh := true
	if s.rdb != nil {
		set, err := s.rdb.SetNX(context.Background(), "blogsite:heartbeat:"+userID, "1", heartbeatWindow)
		if err == nil {
			fresh = set
		}
	}
	if !fresh {
		return now, nil
	}
	err := s.db.Model(&models.UserModel{}).
		Where("id = ?", userID).
		Update("last_active_at", now).Error
	return now, err
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/users")

	g.GET("/:id", h.get)

	a := g.Group("", authMW)
	a.POST("/heartbeat", h.heartbeat)

	admin := a.Group("", middleware.RequireRole(models.RoleAdmin))
	admin.GET("", h.list)
	admin.PATCH("/:id/role", h.updateRole)
	admin.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)

	var rolePtr *models.Role
	if raw := c.Query("role"); raw != "" {
		role := models.Role(raw)
		if !models.ValidRole(role) {
			response.BadRequest(c, "unknown role filter")
			return
		}
		rolePtr = &role
	}

	users, pag, err := h.svc.List(q, rolePtr)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]userResponse, len(users))
	for i := range users {
		items[i] = toResponse(&users[i])
	}
	response.Paged(c, items, pag)
}

func (h *Handler) get(c *gin.Context) {
	u, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toPublicResponse(u))
}

func (h *Handler) updateRole(c *gin.Context) {
	var dto UpdateRoleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.UpdateRole(c.Param("id"), dto.Role)
	if err != nil {
		switch {
		case errors.Is(err, errUserNotFound):
			response.NotFound(c)
		case errors.Is(err, errInvalidRoleUpdate):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		if errors.Is(err, errUserNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) heartbeat(c *gin.Context) {
	at, err := h.svc.Heartbeat(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"last_active_at": at})
}
