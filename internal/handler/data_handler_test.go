package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/attendance-tracker/internal/service"
	appErrors "github.com/noah-isme/attendance-tracker/pkg/errors"
)

type dataServiceMock struct {
	lastReq service.ClearDataRequest
	called  bool
}

func (m *dataServiceMock) ClearAll(ctx context.Context, req service.ClearDataRequest) error {
	m.called = true
	m.lastReq = req
	if !req.Confirm {
		return appErrors.ErrConfirmationRequired
	}
	return nil
}

func TestDataHandlerClearConfirmed(t *testing.T) {
	mockSvc := &dataServiceMock{}
	handler := NewDataHandler(mockSvc)

	c, w := newJSONContext(http.MethodDelete, "/data", `{"confirm":true}`)
	handler.Clear(c)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, mockSvc.lastReq.Confirm)
}

func TestDataHandlerClearWithoutBody(t *testing.T) {
	mockSvc := &dataServiceMock{}
	handler := NewDataHandler(mockSvc)

	c, w := newJSONContext(http.MethodDelete, "/data", "")
	handler.Clear(c)

	assert.Equal(t, http.StatusPreconditionRequired, w.Code)
	assert.True(t, mockSvc.called)
	assert.Contains(t, w.Body.String(), "CONFIRMATION_REQUIRED")
}

func TestDataHandlerClearMalformed(t *testing.T) {
	mockSvc := &dataServiceMock{}
	handler := NewDataHandler(mockSvc)

	c, w := newJSONContext(http.MethodDelete, "/data", `{"confirm":`)
	handler.Clear(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.called)
}

func TestDataHandlerClearChunkedEmptyBody(t *testing.T) {
	for _, body := range []string{"", "  \n"} {
		mockSvc := &dataServiceMock{}
		handler := NewDataHandler(mockSvc)

		gin.SetMode(gin.TestMode)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		req := httptest.NewRequest(http.MethodDelete, "/data", strings.NewReader(body))
		req.ContentLength = -1
		req.Header.Set("Transfer-Encoding", "chunked")
		req.Header.Set("Content-Type", "application/json")
		c.Request = req
		handler.Clear(c)

		assert.Equal(t, http.StatusPreconditionRequired, w.Code, "body %q", body)
		assert.True(t, mockSvc.called)
		assert.False(t, mockSvc.lastReq.Confirm)
	}
}

func TestDataHandlerClearChunkedConfirmation(t *testing.T) {
	mockSvc := &dataServiceMock{}
	handler := NewDataHandler(mockSvc)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodDelete, "/data", strings.NewReader(`{"confirm":true}`))
	req.ContentLength = -1
	c.Request = req
	handler.Clear(c)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, mockSvc.lastReq.Confirm)
}
