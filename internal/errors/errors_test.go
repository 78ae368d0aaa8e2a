package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	err := Validation("channel is required")
	assert.Equal(t, "channel is required", err.Error())

	wrapped := Wrap(errors.New("dial tcp: refused"), ErrCodeUnavailable, "directory search failed")
	assert.Equal(t, "directory search failed: dial tcp: refused", wrapped.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
	assert.Nil(t, Wrapf(nil, ErrCodeInternal, "ignored %d", 1))
}

func TestUnwrapChain(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrapf(cause, ErrCodeUnavailable, "outer")

	require.ErrorIs(t, err, cause)

	var appErr *AppError
	require.ErrorAs(t, fmt.Errorf("handler: %w", err), &appErr)
	assert.Equal(t, ErrCodeUnavailable, appErr.Code)
}

func TestCodePredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"validation matches", Validation("bad"), IsValidation, true},
		{"not found matches", NotFoundf("job %s", "job_1"), IsNotFound, true},
		{"configuration matches", Configuration("missing key"), IsConfiguration, true},
		{"unavailable matches", Unavailable("down"), IsUnavailable, true},
		{"conflict matches", Conflict("dup"), IsConflict, true},
		{"mismatched code", Validation("bad"), IsNotFound, false},
		{"plain error", errors.New("plain"), IsValidation, false},
		{"nil error", nil, IsNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeConfiguration, GetCode(Configuration("no key")))
	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
}

func TestMapDBError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want ErrorCode
	}{
		{"no rows", pgx.ErrNoRows, ErrCodeNotFound},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeCanceled},
		{"unique violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, ErrCodeConflict},
		{"not null violation", &pgconn.PgError{Code: pgerrcode.NotNullViolation}, ErrCodeValidation},
		{"other pg error", &pgconn.PgError{Code: pgerrcode.SerializationFailure}, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetCode(MapDBError(tt.in)))
		})
	}

	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, MapDBError(nil))
	})

	t.Run("unrecognized error passes through", func(t *testing.T) {
		plain := errors.New("plain")
		assert.Equal(t, plain, MapDBError(plain))
	})
}
