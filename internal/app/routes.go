package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hamxasajid/blogsite-core/internal/middleware"
	"github.com/hamxasajid/blogsite-core/internal/modules/auth"
	"github.com/hamxasajid/blogsite-core/internal/modules/blog"
	"github.com/hamxasajid/blogsite-core/internal/modules/comment"
	"github.com/hamxasajid/blogsite-core/internal/modules/contact"
	"github.com/hamxasajid/blogsite-core/internal/modules/user"
	"github.com/hamxasajid/blogsite-core/internal/pkg/mail"
	pkgredis "github.com/hamxasajid/blogsite-core/internal/pkg/redis"
	"github.com/hamxasajid/blogsite-core/internal/pkg/response"
)

func (a *App) registerRoutes(rc *pkgredis.Client, mailer *mail.Sender) {
	r := a.router
	db := a.db
	authMW := middleware.Auth()

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	// Rate limiting and idempotence run on every route (requires Redis).
	r.Use(middleware.RateLimit(rc.Raw()))
	r.Use(middleware.Idempotence(rc.Raw()))

	api := r.Group("/api/v1")
	api.Use(middleware.OptionalAuth())
	if !a.cfg.IsDev() {
		api.Use(middleware.HTTPCache(rc.Raw(), 15*time.Second))
	}

	api.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": "pong"})
	})

	auth.NewHandler(auth.NewService(db, mailer, a.cfg.SiteURL, a.logger)).RegisterRoutes(api, authMW)
	user.NewHandler(user.NewService(db, rc)).RegisterRoutes(api, authMW)
	blog.NewHandler(blog.NewService(db)).RegisterRoutes(api, authMW)
	comment.NewHandler(comment.NewService(db)).RegisterRoutes(api, authMW)
	contact.NewHandler(contact.NewService(db, mailer, a.cfg.AdminEmail, a.logger)).RegisterRoutes(api, authMW)
}
