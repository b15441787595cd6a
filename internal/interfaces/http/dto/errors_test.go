package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeErrorCodeAndStatus(t *testing.T) {
	tests := []struct {
		domainCode string
		apiCode    string
		status     int
	}{
		{"VALIDATION_ERROR", ErrCodeValidation, http.StatusBadRequest},
		{"NOT_FOUND", ErrCodeNotFound, http.StatusNotFound},
		{"ALREADY_EXISTS", ErrCodeAlreadyExists, http.StatusConflict},
		{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict, http.StatusConflict},
		{"INVALID_STATE", ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{"INSUFFICIENT_STOCK", ErrCodeInsufficientStock, http.StatusUnprocessableEntity},
		{"OVER_PICK", ErrCodeOverPick, http.StatusUnprocessableEntity},
		{"BOM_CYCLE", ErrCodeBOMCycle, http.StatusBadRequest},
		{"SOMETHING_ELSE", "SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.domainCode, func(t *testing.T) {
			code := NormalizeErrorCode(tt.domainCode)
			assert.Equal(t, tt.apiCode, code)
			assert.Equal(t, tt.status, GetHTTPStatus(code))
		})
	}
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 41, 2, 20)
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Equal(t, 2, resp.Meta.Page)

	empty := NewSuccessResponseWithMeta(nil, 0, 1, 0)
	assert.Equal(t, 0, empty.Meta.TotalPages)
}

func TestErrorResponses(t *testing.T) {
	resp := NewErrorResponse(ErrCodeOverPick, "too much", "req-1").WithData(map[string]int{"id": 7})
	assert.False(t, resp.Success)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.NotNil(t, resp.Data)

	v := NewValidationErrorResponse("Request validation failed", "", []ValidationDetail{{Field: "quantity", Message: "Must be greater than zero"}})
	assert.Equal(t, ErrCodeValidation, v.Error.Code)
	assert.Len(t, v.Error.Fields, 1)
}
