package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "domain error passes through", err: NewConflict("dup", nil), wantStatus: http.StatusConflict, wantCode: "CONFLICT"},
		{name: "wrapped domain error", err: fmt.Errorf("outer: %w", NewNotFound("issue", nil)), wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{name: "fiber error", err: fiber.NewError(http.StatusForbidden, "nope"), wantStatus: http.StatusForbidden, wantCode: "FORBIDDEN"},
		{name: "no rows", err: pgx.ErrNoRows, wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, wantStatus: http.StatusConflict, wantCode: "CONFLICT"},
		{name: "foreign key violation", err: &pgconn.PgError{Code: "23503"}, wantStatus: http.StatusConflict, wantCode: "CONFLICT"},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ToDomainError(tc.err)
			require.NotNil(t, got)
			assert.Equal(t, tc.wantStatus, got.HTTPStatus)
			assert.Equal(t, tc.wantCode, got.Code)
		})
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	err := ToDomainError(errors.New("dial tcp: refused"))
	assert.Equal(t, "internal server error", err.Message)
	assert.ErrorContains(t, err, "dial tcp")
}

func TestValidationErrorCarriesFieldErrors(t *testing.T) {
	err := ToDomainError(NewValidationError("All fields are required", nil, "issue is required"))
	assert.Equal(t, []string{"issue is required"}, err.Errors)
}

func TestMapErrorNil(t *testing.T) {
	assert.NoError(t, MapError(nil))
	assert.Nil(t, ToDomainError(nil))
}
