package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ytakahashi/todo-app/internal/apperr"
	"github.com/ytakahashi/todo-app/internal/auth"
)

type AuthHandler struct {
	auth *auth.Service
}

func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{auth: authService}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type linkCodeResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	var in auth.RegisterInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("Invalid request body")
	}

	sess, err := h.auth.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var in loginRequest
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("Invalid request body")
	}

	sess, err := h.auth.Login(c.Request().Context(), in.Email, in.Password)
	if err != nil {
		// Bad credentials are a 400 on this route, not a 401.
		if apperr.Is(err, apperr.KindAuth) {
			return c.JSON(http.StatusBadRequest, msgBody(err.Error()))
		}
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *AuthHandler) Me(c echo.Context) error {
	user, err := h.auth.CurrentUser(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) LinkCode(c echo.Context) error {
	code, expiresAt, err := h.auth.IssueLinkCode(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, linkCodeResponse{Code: code, ExpiresAt: expiresAt})
}
