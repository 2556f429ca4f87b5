package account

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carepoint/hms/internal/platform/apperr"
)

type Handler struct {
	svc *Service
	// limit throttles the public credential endpoints.
	limit echo.MiddlewareFunc
}

func NewHandler(svc *Service, limit echo.MiddlewareFunc) *Handler {
	return &Handler{svc: svc, limit: limit}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/auth")
	var public []echo.MiddlewareFunc
	if h.limit != nil {
		public = append(public, h.limit)
	}
	g.POST("/signup", h.Signup, public...)
	g.POST("/signin", h.Signin, public...)
	g.POST("/signout", h.Signout)
	g.GET("/session", h.Session)
}

func (h *Handler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("body", "malformed JSON")
	}
	p, err := h.svc.Signup(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Signin(c echo.Context) error {
	var req SigninRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("body", "malformed JSON")
	}
	sess, err := h.svc.Signin(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) Signout(c echo.Context) error {
	if err := h.svc.Signout(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Session(c echo.Context) error {
	info, err := h.svc.CurrentSession(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, info)
}
