package patient

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

func (h *Handler) GetPatient(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	patient, err := h.service.GetPatient(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patient))
}

func (h *Handler) ListPatients(c *gin.Context) {
	patients, err := h.service.ListPatients(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patients))
}

// MyProfile returns the role-entity row resolved from the caller's
// account. The resolved id is only meaningful within the caller's own
// role table, so the lookup dispatches on the verified role.
func (h *Handler) MyProfile(c *gin.Context) {
	entityID, err := h.service.ResolveEntityID(c.Request.Context(), c.GetString(middleware.ContextAccountID))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	role, err := model.ParseRole(c.GetString(middleware.ContextRole))
	if err != nil {
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("unknown role"))
		return
	}

	var profile interface{}
	switch role {
	case model.RoleDoctor:
		profile, err = h.service.GetDoctor(c.Request.Context(), entityID)
	case model.RolePatient:
		profile, err = h.service.GetPatient(c.Request.Context(), entityID)
	case model.RoleAdmin:
		profile, err = h.service.GetAdmin(c.Request.Context(), entityID)
	}
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(profile))
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	var req model.UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	patient, err := h.service.UpdatePatient(c.Request.Context(), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patient))
}

func (h *Handler) DeletePatient(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	if err := h.service.DeletePatient(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	patients := r.Group("/patients", auth.Authenticate())
	{
		patients.GET("", auth.RequireRole(model.RoleAdmin, model.RoleDoctor), h.ListPatients)
		patients.GET("/:id", auth.RequireRole(model.RoleAdmin, model.RoleDoctor), h.GetPatient)
		patients.PUT("/:id", auth.RequireRole(model.RoleAdmin), h.UpdatePatient)
		patients.DELETE("/:id", auth.RequireRole(model.RoleAdmin), h.DeletePatient)
	}
	r.GET("/me/profile", auth.Authenticate(), h.MyProfile)
}
