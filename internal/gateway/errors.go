package gateway

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/lib/pq"
	"github.com/sony/gobreaker/v2"

	"github.com/GTDGit/storefront_api/internal/repository"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// classify maps a raw store error onto the error kinds callers branch on.
// Errors that are already classified pass through untouched.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if utils.Kind(err) != nil {
		return err
	}

	switch {
	case repository.IsUndefinedColumn(err):
		return fmt.Errorf("%s: %w: %w", op, utils.ErrSchemaMismatch, err)
	case isNetworkError(err):
		return fmt.Errorf("%s: %w: %w", op, utils.ErrNetworkUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isNetworkError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	// Class 08: connection exception. Class 57P: operator intervention.
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		class := pqErr.Code.Class()
		return class == "08" || class == "57"
	}
	return false
}
