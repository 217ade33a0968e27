package assignments

import (
	"context"

	dbtypes "github.com/angelmondragon/shuttle-dispatch/pkg/db/types"
	"gorm.io/gorm"
)

// Repository exposes persistence operations for assignments and the lookup
// lists used to build them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindAssignments(ctx context.Context, serviceID int64, date dbtypes.Date) ([]Assignment, error)
	FindAssignmentStops(ctx context.Context, assignmentID int64) ([]AssignmentStop, error)

	FindDropShuttles(ctx context.Context, serviceID int64) ([]DropShuttle, error)
	FindDropDrivers(ctx context.Context, serviceID int64) ([]DropDriver, error)
	FindDropRoutes(ctx context.Context, serviceID int64) ([]DropRoute, error)
	FindDropStops(ctx context.Context, serviceID int64) ([]DropStop, error)
	FindDropRouteStops(ctx context.Context, routeID int64) ([]DropRouteStop, error)

	AddAssignment(ctx context.Context, input NewAssignment) (int64, error)
	AddAssignmentStops(ctx context.Context, assignmentID int64, stops []NewAssignmentStop) error
	UpdateAssignment(ctx context.Context, update AssignmentUpdate) error

	CheckAssignment(ctx context.Context, assignmentID int64) (*Assignment, error)
	CheckIndex(ctx context.Context, assignmentID int64) (int, error)

	RemoveAssignmentStops(ctx context.Context, assignmentID int64, index int) error
	ArchiveAssignment(ctx context.Context, assignmentID int64) error
}

// txRunner runs fn inside a single database transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
