package appointment

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medisched/clinic-api/internal/handler"
	"github.com/medisched/clinic-api/internal/middleware"
	"github.com/medisched/clinic-api/internal/model"
	"github.com/medisched/clinic-api/internal/service/appointment"
	"github.com/medisched/clinic-api/internal/service/identity"
)

type Handler struct {
	service  *appointment.Service
	identity *identity.Service
}

func NewHandler(service *appointment.Service, identity *identity.Service) *Handler {
	return &Handler{service: service, identity: identity}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	// Patient-initiated bookings resolve the caller's own patient id;
	// admins may book on behalf of any patient by passing patient_id.
	if role := c.GetString(middleware.ContextRole); role == string(model.RolePatient) {
		entityID, err := h.identity.ResolveEntityID(c.Request.Context(), c.GetString(middleware.ContextAccountID))
		if err != nil {
			handler.RespondError(c, err)
			return
		}
		req.PatientID = entityID
	}

	apt, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(apt))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	apt, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) ListAppointments(c *gin.Context) {
	filters := &model.AppointmentFilters{}

	if v := c.Query("doctor_id"); v != "" {
		doctorID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
			return
		}
		filters.DoctorID = &doctorID
	}

	if v := c.Query("patient_id"); v != "" {
		patientID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
			return
		}
		filters.PatientID = &patientID
	}

	if v := c.Query("status"); v != "" {
		filters.Status = model.AppointmentStatus(v)
	}

	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid start date"))
			return
		}
		filters.StartDate = t
	}

	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid end date"))
			return
		}
		filters.EndDate = t
	}

	appointments, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointments))
}

// MyAppointments lists the caller's own appointments, resolved from the
// verified account id. Only doctors and patients appear on appointments;
// admins browse through the filtered list endpoint instead.
func (h *Handler) MyAppointments(c *gin.Context) {
	entityID, err := h.identity.ResolveEntityID(c.Request.Context(), c.GetString(middleware.ContextAccountID))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	filters := &model.AppointmentFilters{}
	switch c.GetString(middleware.ContextRole) {
	case string(model.RoleDoctor):
		filters.DoctorID = &entityID
	case string(model.RolePatient):
		filters.PatientID = &entityID
	default:
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("no appointments for this role"))
		return
	}

	appointments, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointments))
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	var req model.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	apt, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	apt, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	appointments := r.Group("/appointments", auth.Authenticate())
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PUT("/:id", h.UpdateAppointment)
		appointments.POST("/:id/cancel", h.CancelAppointment)
		appointments.DELETE("/:id", auth.RequireRole(model.RoleAdmin), h.DeleteAppointment)
	}
	r.GET("/me/appointments", auth.Authenticate(), h.MyAppointments)
}
