package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/studio/app/services"
	"github.com/shashiranjanraj/studio/config"
	"github.com/shashiranjanraj/studio/pkg/ctx"
	"github.com/shashiranjanraj/studio/pkg/middleware"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// sendToken answers with the token in the body and in the session cookie.
func sendToken(c *ctx.Context, status int, s *services.Session, err error) {
	if err != nil {
		c.Fail(err)
		return
	}
	c.SetAuthCookie(middleware.TokenCookie, s.Token, config.CookieExpiry(), config.IsProduction())
	c.JSON(status, map[string]any{"success": true, "token": s.Token, "data": s.User})
}

func (a *AuthController) Register(c *ctx.Context) {
	var in services.RegisterInput
	if !c.BindJSON(&in) {
		return
	}
	s, err := a.auth.Register(c.Context(), in)
	sendToken(c, http.StatusCreated, s, err)
}

func (a *AuthController) Login(c *ctx.Context) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !c.DecodeJSON(&in) {
		return
	}
	s, err := a.auth.Login(c.Context(), in.Email, in.Password)
	sendToken(c, http.StatusOK, s, err)
}

func (a *AuthController) Logout(c *ctx.Context) {
	c.SetAuthCookie(middleware.TokenCookie, "", 0, config.IsProduction())
	c.Success(map[string]any{})
}

func (a *AuthController) Me(c *ctx.Context) {
	u, err := a.auth.Me(c.Context(), c.Identity().ID)
	respond(c, u, err)
}

func (a *AuthController) UpdateDetails(c *ctx.Context) {
	var in services.UpdateDetailsInput
	if !c.DecodeJSON(&in) {
		return
	}
	u, err := a.auth.UpdateDetails(c.Context(), c.Identity().ID, in)
	respond(c, u, err)
}

func (a *AuthController) UpdatePassword(c *ctx.Context) {
	var in services.UpdatePasswordInput
	if !c.BindJSON(&in) {
		return
	}
	s, err := a.auth.UpdatePassword(c.Context(), c.Identity().ID, in)
	sendToken(c, http.StatusOK, s, err)
}

func (a *AuthController) ForgotPassword(c *ctx.Context) {
	var in struct {
		Email string `json:"email" validate:"required,email"`
	}
	if !c.BindJSON(&in) {
		return
	}
	if err := a.auth.ForgotPassword(c.Context(), in.Email); err != nil {
		c.Fail(err)
		return
	}
	c.Success("Email sent")
}

func (a *AuthController) ResetPassword(c *ctx.Context) {
	var in struct {
		Password string `json:"password"`
	}
	if !c.DecodeJSON(&in) {
		return
	}
	s, err := a.auth.ResetPassword(c.Context(), c.Param("token"), in.Password)
	sendToken(c, http.StatusOK, s, err)
}

// SetPhotographer grants or revokes the photographer capability (admin).
func (a *AuthController) SetPhotographer(c *ctx.Context) {
	var in struct {
		IsPhotographer bool `json:"isPhotographer"`
	}
	if !c.DecodeJSON(&in) {
		return
	}
	u, err := a.auth.SetPhotographer(c.Context(), c.Param("id"), in.IsPhotographer)
	respond(c, u, err)
}
