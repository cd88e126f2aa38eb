package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolpay/backend/internal/interfaces/http/dto"
)

func TestSetupValidator(t *testing.T) {
	// Should not panic
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func TestHandleValidationError(t *testing.T) {
	type testStruct struct {
		StudentID   string `json:"student_id" binding:"required,uuid"`
		PaymentDate string `json:"payment_date" binding:"required,datetime=2006-01-02"`
	}

	SetupValidator()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req testStruct
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	type errorResponse struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string                 `json:"code"`
			Message string                 `json:"message"`
			Details []dto.ValidationDetail `json:"details"`
		} `json:"error"`
	}

	t.Run("returns field details for invalid input", func(t *testing.T) {
		body := strings.NewReader(`{"student_id": "not-a-uuid", "payment_date": "15/01/2026"}`)
		req := httptest.NewRequest("POST", "/test", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
		assert.Equal(t, "Request validation failed", resp.Error.Message)
		require.Len(t, resp.Error.Details, 2)
		assert.Equal(t, "student_id", resp.Error.Details[0].Field)
		assert.Equal(t, "payment_date", resp.Error.Details[1].Field)
	})

	t.Run("passes valid input through", func(t *testing.T) {
		body := strings.NewReader(`{"student_id": "3e8e5c42-13e6-4f52-9927-7b0877fa5c0b", "payment_date": "2026-01-15"}`)
		req := httptest.NewRequest("POST", "/test", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("falls back to the raw error for non-validator errors", func(t *testing.T) {
		body := strings.NewReader(`{not json`)
		req := httptest.NewRequest("POST", "/test", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Empty(t, resp.Error.Details)
	})
}
