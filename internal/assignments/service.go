package assignments

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/shuttle-dispatch/pkg/db/types"
	pkgerrors "github.com/angelmondragon/shuttle-dispatch/pkg/errors"
	"github.com/angelmondragon/shuttle-dispatch/pkg/logger"
	"github.com/angelmondragon/shuttle-dispatch/pkg/metrics"
)

// Service coordinates assignment scheduling on top of the repository.
type Service interface {
	ListAssignments(ctx context.Context, serviceID int64, date dbtypes.Date) ([]Assignment, error)
	GetAssignment(ctx context.Context, assignmentID int64) (*Assignment, error)
	ListStops(ctx context.Context, assignmentID int64) ([]AssignmentStop, error)

	DropShuttles(ctx context.Context, serviceID int64) ([]DropShuttle, error)
	DropDrivers(ctx context.Context, serviceID int64) ([]DropDriver, error)
	DropRoutes(ctx context.Context, serviceID int64) ([]DropRoute, error)
	DropStops(ctx context.Context, serviceID int64) ([]DropStop, error)
	DropRouteStops(ctx context.Context, routeID int64) ([]DropRouteStop, error)
	PlanFromRoute(ctx context.Context, routeID int64) ([]NewAssignmentStop, error)

	Create(ctx context.Context, input CreateAssignmentInput) (int64, error)
	Update(ctx context.Context, input UpdateAssignmentInput) error
	Archive(ctx context.Context, assignmentID int64) error
}

type service struct {
	repo    Repository
	tx      txRunner
	logg    *logger.Logger
	metrics *metrics.StoreMetrics
}

// NewService builds the assignment service. A nil metrics recorder disables
// store metrics.
func NewService(repo Repository, tx txRunner, logg *logger.Logger, storeMetrics *metrics.StoreMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("assignments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if storeMetrics == nil {
		storeMetrics = metrics.NewStoreMetrics(nil)
	}
	return &service{
		repo:    repo,
		tx:      tx,
		logg:    logg,
		metrics: storeMetrics,
	}, nil
}

// call times fn under op and records its outcome. Decode failures point at
// bad rows in the store and are logged before being returned unchanged.
func (s *service) call(ctx context.Context, op string, fn func() error) error {
	done := s.metrics.Track(op)
	err := fn()
	code := ""
	if err != nil {
		code = string(pkgerrors.As(err).Code())
	}
	done(err, code)
	if pkgerrors.IsCode(err, pkgerrors.CodeDecode) {
		s.logg.Error(s.logg.WithField(ctx, "op", op), "assignments.decode_failed", err)
	}
	return err
}

func (s *service) ListAssignments(ctx context.Context, serviceID int64, date dbtypes.Date) ([]Assignment, error) {
	var out []Assignment
	err := s.call(ctx, "find_assignments", func() (err error) {
		out, err = s.repo.FindAssignments(ctx, serviceID, date)
		return err
	})
	return out, err
}

func (s *service) GetAssignment(ctx context.Context, assignmentID int64) (*Assignment, error) {
	var out *Assignment
	err := s.call(ctx, "check_assignment", func() (err error) {
		out, err = s.repo.CheckAssignment(ctx, assignmentID)
		return err
	})
	return out, err
}

func (s *service) ListStops(ctx context.Context, assignmentID int64) ([]AssignmentStop, error) {
	var out []AssignmentStop
	err := s.call(ctx, "find_assignment_stops", func() (err error) {
		out, err = s.repo.FindAssignmentStops(ctx, assignmentID)
		return err
	})
	return out, err
}

func (s *service) DropShuttles(ctx context.Context, serviceID int64) ([]DropShuttle, error) {
	var out []DropShuttle
	err := s.call(ctx, "find_drop_shuttles", func() (err error) {
		out, err = s.repo.FindDropShuttles(ctx, serviceID)
		return err
	})
	return out, err
}

func (s *service) DropDrivers(ctx context.Context, serviceID int64) ([]DropDriver, error) {
	var out []DropDriver
	err := s.call(ctx, "find_drop_drivers", func() (err error) {
		out, err = s.repo.FindDropDrivers(ctx, serviceID)
		return err
	})
	return out, err
}

func (s *service) DropRoutes(ctx context.Context, serviceID int64) ([]DropRoute, error) {
	var out []DropRoute
	err := s.call(ctx, "find_drop_routes", func() (err error) {
		out, err = s.repo.FindDropRoutes(ctx, serviceID)
		return err
	})
	return out, err
}

func (s *service) DropStops(ctx context.Context, serviceID int64) ([]DropStop, error) {
	var out []DropStop
	err := s.call(ctx, "find_drop_stops", func() (err error) {
		out, err = s.repo.FindDropStops(ctx, serviceID)
		return err
	})
	return out, err
}

func (s *service) DropRouteStops(ctx context.Context, routeID int64) ([]DropRouteStop, error) {
	var out []DropRouteStop
	err := s.call(ctx, "find_drop_route_stops", func() (err error) {
		out, err = s.repo.FindDropRouteStops(ctx, routeID)
		return err
	})
	return out, err
}

// PlanFromRoute turns a route template into stops for a new assignment.
func (s *service) PlanFromRoute(ctx context.Context, routeID int64) ([]NewAssignmentStop, error) {
	template, err := s.DropRouteStops(ctx, routeID)
	if err != nil {
		return nil, err
	}
	plan := make([]NewAssignmentStop, 0, len(template))
	for _, stop := range template {
		plan = append(plan, NewAssignmentStop{
			StopID:    stop.StopID,
			Index:     stop.Index,
			Address:   stop.Address,
			Latitude:  stop.Latitude,
			Longitude: stop.Longitude,
		})
	}
	return plan, nil
}

func (s *service) Create(ctx context.Context, input CreateAssignmentInput) (int64, error) {
	if err := validateCreate(input); err != nil {
		return 0, err
	}
	ctx = s.logg.WithServiceID(ctx, input.ServiceID)

	var assignmentID int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := s.call(ctx, "add_assignment", func() (err error) {
			assignmentID, err = txRepo.AddAssignment(ctx, input.NewAssignment)
			return err
		}); err != nil {
			return err
		}
		return s.call(ctx, "add_assignment_stops", func() error {
			return txRepo.AddAssignmentStops(ctx, assignmentID, input.Stops)
		})
	})
	if err != nil {
		return 0, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"assignment_id": assignmentID, "stop_count": len(input.Stops)})
	s.logg.Info(ctx, "assignments.created")
	return assignmentID, nil
}

func (s *service) Update(ctx context.Context, input UpdateAssignmentInput) error {
	if err := validateUpdate(input); err != nil {
		return err
	}
	assignmentID := input.AssignmentID
	ctx = s.logg.WithAssignmentID(ctx, assignmentID)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := s.call(ctx, "check_assignment", func() error {
			_, err := txRepo.CheckAssignment(ctx, assignmentID)
			return err
		}); err != nil {
			return err
		}
		if err := s.call(ctx, "update_assignment", func() error {
			return txRepo.UpdateAssignment(ctx, input.AssignmentUpdate)
		}); err != nil {
			return err
		}
		if !input.ReplaceStops {
			return nil
		}
		return s.replaceStops(ctx, txRepo, assignmentID, input.Stops)
	})
	if err != nil {
		return err
	}

	s.logg.Info(s.logg.WithField(ctx, "replace_stops", input.ReplaceStops), "assignments.updated")
	return nil
}

// replaceStops swaps every stop after the shuttle's current position. Stops
// already visited or in progress are never touched.
func (s *service) replaceStops(ctx context.Context, txRepo Repository, assignmentID int64, stops []NewAssignmentStop) error {
	active := -1
	err := s.call(ctx, "check_index", func() (err error) {
		active, err = txRepo.CheckIndex(ctx, assignmentID)
		return err
	})
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		active = -1
	case err != nil:
		return err
	}

	for _, stop := range stops {
		if stop.Index <= active {
			return pkgerrors.New(pkgerrors.CodeConstraintViolation, "cannot replace a stop the shuttle has already reached").
				WithDetails(map[string]any{"assignment_id": assignmentID, "active_index": active, "index": stop.Index})
		}
	}

	if err := s.call(ctx, "remove_assignment_stops", func() error {
		return txRepo.RemoveAssignmentStops(ctx, assignmentID, active)
	}); err != nil {
		return err
	}
	return s.call(ctx, "add_assignment_stops", func() error {
		return txRepo.AddAssignmentStops(ctx, assignmentID, stops)
	})
}

func (s *service) Archive(ctx context.Context, assignmentID int64) error {
	ctx = s.logg.WithAssignmentID(ctx, assignmentID)
	if err := s.call(ctx, "archive_assignment", func() error {
		return s.repo.ArchiveAssignment(ctx, assignmentID)
	}); err != nil {
		return err
	}
	s.logg.Info(ctx, "assignments.archived")
	return nil
}
