package service

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/helpdesk-labs/issue-tracker/pkg/util"
)

// Clock returns the current time. Stored timestamps keep second precision.
type Clock func() time.Time

// SystemClock is the wall clock truncated to seconds.
func SystemClock() time.Time {
	return time.Now().Truncate(time.Second)
}

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return SystemClock
	}
	return c
}

// notFoundOr maps pgx.ErrNoRows to a not-found error for resource and
// everything else through the shared error mapper.
func notFoundOr(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.MapError(err)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// requireFields returns one message per blank field, in the given order.
func requireFields(fields ...[2]string) []string {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			missing = append(missing, f[0]+" is required")
		}
	}
	return missing
}

func optionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// parseID parses a positive integer identifier supplied as text.
func parseID(raw, field string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError(field+" must be a positive integer", map[string]any{field: raw})
	}
	return id, nil
}
