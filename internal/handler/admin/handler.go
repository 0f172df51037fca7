package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/medisched/clinic-api/internal/handler"
	"github.com/medisched/clinic-api/internal/middleware"
	"github.com/medisched/clinic-api/internal/model"
	"github.com/medisched/clinic-api/internal/service/identity"
)

type Handler struct {
	service *identity.Service
}

func NewHandler(service *identity.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) GetAdmin(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid admin ID"))
		return
	}

	admin, err := h.service.GetAdmin(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(admin))
}

func (h *Handler) ListAdmins(c *gin.Context) {
	admins, err := h.service.ListAdmins(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(admins))
}

func (h *Handler) DeleteAdmin(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid admin ID"))
		return
	}

	if err := h.service.DeleteAdmin(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	admins := r.Group("/admins", auth.Authenticate(), auth.RequireRole(model.RoleAdmin))
	{
		admins.GET("", h.ListAdmins)
		admins.GET("/:id", h.GetAdmin)
		admins.DELETE("/:id", h.DeleteAdmin)
	}
}
