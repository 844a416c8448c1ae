package pkg

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestHandleSQLError(t *testing.T) {
	logger := zap.NewNop()
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"no rows", pgx.ErrNoRows, ErrRecordNotFoundCode.Code},
		{"unique violation", &pgconn.PgError{Code: "23505"}, ErrSQLDuplicateCode.Code},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, ErrSQLConflictCode.Code},
		{"check violation", &pgconn.PgError{Code: "23514"}, ErrSQLInvalidInput.Code},
		{"bad uuid", &pgconn.PgError{Code: "22P02"}, ErrSQLInvalidInput.Code},
		{"value too long", &pgconn.PgError{Code: "22001"}, ErrSQLInvalidInput.Code},
		{"numeric overflow", &pgconn.PgError{Code: "22003"}, ErrSQLInvalidInput.Code},
		{"unknown pg code", &pgconn.PgError{Code: "XX000"}, ErrSQLUnknownCode.Code},
		{"non-pg error", errors.New("connection reset"), ErrSQLUnknownCode.Code},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := HandleSQLError("trace-1", logger, tt.err)
			var appErr AppError
			assert.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantCode, appErr.Code.Code)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewAppError(ErrDependencyCode, "redis down", nil)))
	assert.False(t, IsRetryable(NewAppError(ErrInvalidInputCode, "bad amount", nil)))
	assert.False(t, IsRetryable(errors.New("plain error")))
}

func TestToErrorResponse_UnknownErrorIsInternal(t *testing.T) {
	resp := ToErrorResponse(zap.NewNop(), "trace-1", errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, ErrServerCode.Code, resp.Code)
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewAppError(ErrServerCode, "wrapped", cause)
	assert.ErrorIs(t, err, cause)
}
