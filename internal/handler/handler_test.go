package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/medisched/clinic-api/pkg/errors"
)

func respond(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
	RespondError(c, err)
	return w
}

func TestRespondErrorMapsAppErrors(t *testing.T) {
	w := respond(apperrors.NewNotFound("doctor", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "doctor not found")

	w = respond(fmt.Errorf("failed to load: %w", apperrors.NewConflict("slot taken", nil)))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "slot taken")
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	w := respond(errors.New(`pq: connection refused dsn="host=db password=hunter2"`))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
	assert.NotContains(t, w.Body.String(), "hunter2")
	assert.NotContains(t, w.Body.String(), "pq:")
}
