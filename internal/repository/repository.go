// Package repository implements all database queries for the event
// management system. It uses pgx directly (no ORM) for transparency and
// performance.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/eventure/eventure/internal/model"
)

const uniqueViolation = "23505"

// opTimeout bounds a single store operation. A call that exceeds it fails
// with store_unavailable instead of hanging.
func opTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 3 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// storeErr translates low-level failures into domain errors. Deadline
// overruns become store_unavailable; domain errors pass through untouched.
func storeErr(op string, err error) error {
	var domainErr *model.Error
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.WrapError(model.KindStoreUnavailable, "store timed out: "+op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
