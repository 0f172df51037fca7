package auth

import (
	"net/http"

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

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	account, entityID, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(gin.H{
		"account_id": account.ID,
		"role":       account.Role,
		"entity_id":  entityID,
	}))
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	tokens, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(tokens))
}

// Me resolves the caller's account id into its role-entity id, so clients
// never handle internal numeric ids directly.
func (h *Handler) Me(c *gin.Context) {
	accountID := c.GetString(middleware.ContextAccountID)

	entityID, err := h.service.ResolveEntityID(c.Request.Context(), accountID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"account_id": accountID,
		"role":       c.GetString(middleware.ContextRole),
		"entity_id":  entityID,
	}))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.GET("/me", auth.Authenticate(), h.Me)
}
