package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/hamxasajid/blogsite-core/internal/middleware"
	"github.com/hamxasajid/blogsite-core/internal/models"
	"github.com/hamxasajid/blogsite-core/internal/pkg/jwt"
	"github.com/hamxasajid/blogsite-core/internal/pkg/mail"
	"github.com/hamxasajid/blogsite-core/internal/pkg/response"
)

const (
	tokenTTL          = 30 * 24 * time.Hour
	verificationTTL   = 24 * time.Hour
	maxPasswordLength = 72 // bcrypt limit
)

var (
	errUsernameTaken      = errors.New("username already taken")
	errEmailTaken         = errors.New("email already registered")
	errInvalidCredentials = errors.New("invalid username or password")
	errTokenNotFound      = errors.New("verification token not found")
	errTokenUsed          = errors.New("verification token already used")
	errTokenExpired       = errors.New("verification token expired")
)

type RegisterDTO struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name"`
}

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileDTO struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
	Bio    *string `json:"bio"`
}

type ChangePasswordDTO struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
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
	LastLoginTime *time.Time  `json:"last_login_time"`
	LastActiveAt  *time.Time  `json:"last_active_at"`
	Created       time.Time   `json:"created"`
}

type loginResponse struct {
	Token string        `json:"token"`
	User  *userResponse `json:"user"`
}

func toResponse(u *models.UserModel) *userResponse {
	return &userResponse{
		ID: u.ID, Username: u.Username, Email: u.Email,
		Name: u.Name, Avatar: u.Avatar, Bio: u.Bio,
		Role: u.Role, EmailVerified: u.EmailVerified,
		LastLoginTime: u.LastLoginTime, LastActiveAt: u.LastActiveAt,
		Created: u.CreatedAt,
	}
}

type Service struct {
	db      *gorm.DB
	mailer  *mail.Sender
	siteURL string
	log     *zap.Logger
}

func NewService(db *gorm.DB, mailer *mail.Sender, siteURL string, log *zap.Logger) *Service {
	return &Service{db: db, mailer: mailer, siteURL: siteURL, log: log}
}

// Register creates a new account with the pending role and issues an email
// verification token. The verification mail is sent in the background.
func (s *Service) Register(dto *RegisterDTO) (*models.UserModel, error) {
	if len(dto.Password) > maxPasswordLength {
		return nil, fmt.Errorf("password too long")
	}

	username := strings.TrimSpace(dto.Username)
	email := strings.ToLower(strings.TrimSpace(dto.Email))

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(dto.Name)
	if name == "" {
		name = username
	}

	u := models.UserModel{
		Username: username,
		Email:    email,
		Password: string(hash),
		Name:     name,
		Role:     models.RolePending,
	}
	vt := models.VerificationTokenModel{
		Token:     uuid.NewString(),
		State:     models.VerificationPending,
		ExpiresAt: time.Now().Add(verificationTTL),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		vt.UserID = u.ID
		return tx.Create(&vt).Error
	})
	if err != nil {
		// the unique indexes decide, so two racing registrations cannot
		// both slip through
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.takenField(username)
		}
		return nil, err
	}

	go s.sendVerificationMail(&u, vt.Token)
	return &u, nil
}

func (s *Service) takenField(username string) error {
	var count int64
	s.db.Model(&models.UserModel{}).Where("username = ?", username).Count(&count)
	if count > 0 {
		return errUsernameTaken
	}
	return errEmailTaken
}

func (s *Service) sendVerificationMail(u *models.UserModel, token string) {
	link := fmt.Sprintf("%s/verify-email?token=%s", s.siteURL, token)
	msg, err := mail.VerificationMessage(u.Email, u.Name, link)
	if err == nil {
		err = s.mailer.Send(msg)
	}
	if err != nil {
		s.log.Warn("send verification mail failed",
			zap.String("user", u.ID), zap.Error(err))
	}
}

// Login checks credentials and returns a signed token carrying the user's
// id and role.
func (s *Service) Login(username, password, ip string) (string, *models.UserModel, error) {
	var u models.UserModel
	err := s.db.Where("username = ? OR email = ?", username, strings.ToLower(username)).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, errInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return "", nil, errInvalidCredentials
	}

	now := time.Now()
	s.db.Model(&u).Updates(map[string]interface{}{
		"last_login_time": now,
		"last_login_ip":   ip,
	})
	u.LastLoginTime = &now
	u.LastLoginIP = ip

	token, err := jwt.Sign(u.ID, u.Role, tokenTTL)
	return token, &u, err
}

// VerifyEmail consumes a verification token exactly once. A second call with
// the same token fails even if the first one succeeded.
func (s *Service) VerifyEmail(token string) error {
	var vt models.VerificationTokenModel
	if err := s.db.First(&vt, "token = ?", strings.TrimSpace(token)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errTokenNotFound
		}
		return err
	}
	if vt.State != models.VerificationPending {
		return errTokenUsed
	}
	if time.Now().After(vt.ExpiresAt) {
		// a plain write, not part of a transaction that a sentinel
		// return would roll back
		if err := s.db.Model(&vt).
			Update("state", models.VerificationExpired).Error; err != nil {
			s.log.Warn("mark token expired failed",
				zap.String("token_id", vt.ID), zap.Error(err))
		}
		return errTokenExpired
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		// guarded transition keeps consumption exactly-once under
		// concurrent calls
		res := tx.Model(&models.VerificationTokenModel{}).
			Where("id = ? AND state = ?", vt.ID, models.VerificationPending).
			Update("state", models.VerificationVerified)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errTokenUsed
		}
		return tx.Model(&models.UserModel{}).
			Where("id = ?", vt.UserID).
			Update("email_verified", true).Error
	})
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

func (s *Service) UpdateProfile(id string, dto *UpdateProfileDTO) (*models.UserModel, error) {
	u, err := s.GetByID(id)
	if err != nil || u == nil {
		return u, err
	}
	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
		u.Name = *dto.Name
	}
	if dto.Avatar != nil {
		updates["avatar"] = *dto.Avatar
		u.Avatar = *dto.Avatar
	}
	if dto.Bio != nil {
		updates["bio"] = *dto.Bio
		u.Bio = *dto.Bio
	}
	if len(updates) == 0 {
		return u, nil
	}
	return u, s.db.Model(u).Updates(updates).Error
}

func (s *Service) ChangePassword(id, oldPwd, newPwd string) error {
	var u models.UserModel
	if err := s.db.Select("id, password").First(&u, "id = ?", id).Error; err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(oldPwd)); err != nil {
		return errInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.db.Model(&u).Update("password", string(hash)).Error
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/auth")

	g.POST("/register", h.register)
	g.POST("/login", h.login)
	g.GET("/verify-email", h.verifyEmail)

	a := g.Group("", authMW)
	a.GET("/session", h.session)
	a.PATCH("/profile", h.updateProfile)
	a.PATCH("/password", h.changePassword)
}

func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Register(&dto)
	if err != nil {
		switch {
		case errors.Is(err, errUsernameTaken), errors.Is(err, errEmailTaken):
			response.Conflict(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, toResponse(u))
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, u, err := h.svc.Login(dto.Username, dto.Password, c.ClientIP())
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			response.UnauthorizedMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, loginResponse{Token: token, User: toResponse(u)})
}

func (h *Handler) verifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.BadRequest(c, "token is required")
		return
	}
	if err := h.svc.VerifyEmail(token); err != nil {
		switch {
		case errors.Is(err, errTokenNotFound):
			response.NotFoundMsg(c, err.Error())
		case errors.Is(err, errTokenUsed), errors.Is(err, errTokenExpired):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, gin.H{"verified": true})
}

func (h *Handler) session(c *gin.Context) {
	u, err := h.svc.GetByID(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.Unauthorized(c)
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) updateProfile(c *gin.Context) {
	var dto UpdateProfileDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.UpdateProfile(middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) changePassword(c *gin.Context) {
	var dto ChangePasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.ChangePassword(middleware.CurrentUserID(c), dto.OldPassword, dto.NewPassword); err != nil {
		if errors.Is(err, errInvalidCredentials) {
			response.BadRequest(c, "wrong password")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
