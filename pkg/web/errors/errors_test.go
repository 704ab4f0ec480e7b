package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeToStatus(t *testing.T) {
	tests := map[int]int{
		CodeOK:                 http.StatusOK,
		CodeInvalidParams:      http.StatusBadRequest,
		CodeConflict:           http.StatusConflict,
		CodeLocked:             http.StatusLocked,
		CodeRateLimited:        http.StatusTooManyRequests,
		CodeServiceUnavailable: http.StatusServiceUnavailable,
		40077:                  http.StatusBadRequest,
		50042:                  http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, CodeToStatus(code), "code %d", code)
	}
}
