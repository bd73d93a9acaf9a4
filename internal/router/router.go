// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/kasraf/reelbase/internal/auth"
	"github.com/kasraf/reelbase/internal/config"
	"github.com/kasraf/reelbase/internal/handler"
	"github.com/kasraf/reelbase/internal/middleware"
	"github.com/kasraf/reelbase/internal/model"
)

// Deps carries everything the routes need; all of it is constructed once in
// main and injected.
type Deps struct {
	Store   auth.Store
	Auth    *handler.AuthHandler
	Profile *handler.ProfileHandler
	Admin   *handler.AdminHandler
	RateCfg config.RateLimitConfig
	Redis   *redis.Client
}

// Register mounts all routes.
func Register(e *echo.Echo, d Deps) {
	e.Use(echomw.Recover())

	e.GET("/healthz", handler.Health)

	// Credential endpoints get the token-bucket limiter.
	a := e.Group("/auth", middleware.NewTokenBucket(d.RateCfg, d.Redis))
	a.POST("/login", d.Auth.Login)
	a.POST("/register", d.Auth.Register)
	a.POST("/social-login", d.Auth.SocialLogin)
	a.POST("/logout", d.Auth.Logout)

	session := middleware.Session(d.Store)
	e.GET("/auth/me", d.Auth.Me, session)

	p := e.Group("/profile", session)
	p.PUT("", d.Profile.Update)
	p.PUT("/password", d.Profile.ChangePassword)

	adm := e.Group("/admin", session, middleware.RequireRole(model.RoleAdmin))
	adm.GET("/activity", d.Admin.ActivityLog)
}
