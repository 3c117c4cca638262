package contact

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hamxasajid/blogsite-core/internal/middleware"
	"github.com/hamxasajid/blogsite-core/internal/models"
	"github.com/hamxasajid/blogsite-core/internal/pkg/mail"
	"github.com/hamxasajid/blogsite-core/internal/pkg/pagination"
	"github.com/hamxasajid/blogsite-core/internal/pkg/response"
)

var errMessageNotFound = errors.New("contact message not found")

type CreateMessageDTO struct {
	Name    string `json:"name"    binding:"required,max=100"`
	Email   string `json:"email"   binding:"required,email"`
	Subject string `json:"subject" binding:"required,max=200"`
	Message string `json:"message" binding:"required,max=5000"`
}

type UpdateStatusDTO struct {
	Status models.ContactStatus `json:"status" binding:"required"`
}

type messageResponse struct {
	ID       string               `json:"id"`
	Name     string               `json:"name"`
	Email    string               `json:"email"`
	Subject  string               `json:"subject"`
	Message  string               `json:"message"`
	Status   models.ContactStatus `json:"status"`
	Created  time.Time            `json:"created"`
	Modified time.Time            `json:"modified"`
}

func toResponse(m *models.ContactMessageModel) messageResponse {
	return messageResponse{
		ID: m.ID, Name: m.Name, Email: m.Email,
		Subject: m.Subject, Message: m.Message, Status: m.Status,
		Created: m.CreatedAt, Modified: m.UpdatedAt,
	}
}

type Service struct {
	db         *gorm.DB
	mailer     *mail.Sender
	adminEmail string
	log        *zap.Logger
}

func NewService(db *gorm.DB, mailer *mail.Sender, adminEmail string, log *zap.Logger) *Service {
	return &Service{db: db, mailer: mailer, adminEmail: adminEmail, log: log}
}

// Create stores an inbound message and notifies the site owner by mail in
// the background.
func (s *Service) Create(dto *CreateMessageDTO) (*models.ContactMessageModel, error) {
	m := models.ContactMessageModel{
		Name:    strings.TrimSpace(dto.Name),
		Email:   strings.ToLower(strings.TrimSpace(dto.Email)),
		Subject: strings.TrimSpace(dto.Subject),
		Message: strings.TrimSpace(dto.Message),
		Status:  models.ContactNew,
	}
	if err := s.db.Create(&m).Error; err != nil {
		return nil, err
	}

	if s.adminEmail != "" {
		go s.notify(&m)
	}
	return &m, nil
}

func (s *Service) notify(m *models.ContactMessageModel) {
	msg, err := mail.ContactNotification(s.adminEmail, m.Name, m.Email, m.Subject, m.Message)
	if err == nil {
		err = s.mailer.Send(msg)
	}
	if err != nil {
		s.log.Warn("send contact notification failed",
			zap.String("message", m.ID), zap.Error(err))
	}
}

func (s *Service) List(q pagination.Query, status *models.ContactStatus) ([]models.ContactMessageModel, response.Pagination, error) {
	tx := s.db.Model(&models.ContactMessageModel{}).Order("created_at DESC")
	if status != nil {
		tx = tx.Where("status = ?", *status)
	}
	var messages []models.ContactMessageModel
	pag, err := pagination.Paginate(tx, q, &messages)
	return messages, pag, err
}

func (s *Service) GetByID(id string) (*models.ContactMessageModel, error) {
	var m models.ContactMessageModel
	if err := s.db.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (s *Service) UpdateStatus(id string, status models.ContactStatus) (*models.ContactMessageModel, error) {
	m, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errMessageNotFound
	}
	m.Status = status
	return m, s.db.Model(m).Update("status", status).Error
}

func (s *Service) Delete(id string) error {
	m, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if m == nil {
		return errMessageNotFound
	}
	return s.db.Delete(m).Error
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/contact")

	g.POST("", h.create)

	admin := g.Group("", authMW, middleware.RequireRole(models.RoleAdmin))
	admin.GET("", h.list)
	admin.PATCH("/:id/status", h.updateStatus)
	admin.DELETE("/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateMessageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	m, err := h.svc.Create(&dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, toResponse(m))
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)

	var statusPtr *models.ContactStatus
	if raw := c.Query("status"); raw != "" {
		status := models.ContactStatus(raw)
		if !models.ValidContactStatus(status) {
			response.BadRequest(c, "unknown status filter")
			return
		}
		statusPtr = &status
	}

	messages, pag, err := h.svc.List(q, statusPtr)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]messageResponse, len(messages))
	for i := range messages {
		items[i] = toResponse(&messages[i])
	}
	response.Paged(c, items, pag)
}

func (h *Handler) updateStatus(c *gin.Context) {
	var dto UpdateStatusDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if !models.ValidContactStatus(dto.Status) {
		response.BadRequest(c, "unknown status")
		return
	}
	m, err := h.svc.UpdateStatus(c.Param("id"), dto.Status)
	if err != nil {
		if errors.Is(err, errMessageNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, toResponse(m))
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		if errors.Is(err, errMessageNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
