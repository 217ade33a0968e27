package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewBase constructs a Base repository backed by the provided GORM connection.
// A positive timeout bounds every query issued through Bound when the caller
// did not set a deadline of its own.
func NewBase(db *gorm.DB, timeout time.Duration) Base {
	return Base{db: db, timeout: timeout}
}

// WithConn returns a copy of the base that issues queries on conn, keeping the
// configured timeout. Used to rebind a repository to a transaction.
func (b Base) WithConn(conn *gorm.DB) Base {
	return Base{db: conn, timeout: b.timeout}
}

// Timeout reports the per-query timeout.
func (b Base) Timeout() time.Duration {
	return b.timeout
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Bound returns the connection bound to ctx with the query timeout applied.
// The returned cancel func must always be called.
func (b Base) Bound(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.timeout <= 0 {
		return b.db.WithContext(ctx), func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return b.db.WithContext(ctx), func() {}
	}
	bounded, cancel := context.WithTimeout(ctx, b.timeout)
	return b.db.WithContext(bounded), cancel
}
