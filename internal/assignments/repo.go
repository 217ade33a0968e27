package assignments

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/shuttle-dispatch/internal/repo"
	"github.com/angelmondragon/shuttle-dispatch/pkg/db"
	"github.com/angelmondragon/shuttle-dispatch/pkg/db/models"
	dbtypes "github.com/angelmondragon/shuttle-dispatch/pkg/db/types"
	"github.com/angelmondragon/shuttle-dispatch/pkg/enums"
	pkgerrors "github.com/angelmondragon/shuttle-dispatch/pkg/errors"
)

type repository struct {
	repo.Base
}

// NewRepository binds a repository to the provided GORM connection. A positive
// queryTimeout bounds each query that does not already carry a deadline.
func NewRepository(conn *gorm.DB, queryTimeout time.Duration) Repository {
	return &repository{Base: repo.NewBase(conn, queryTimeout)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Base.WithConn(tx)}
}

const assignmentColumns = `a.assignment_id, a.service_id, a.start_date, a.start_time,
	a.route_id, r.name AS route_name,
	a.driver_id, u.first_name AS driver_first_name, u.last_name AS driver_last_name,
	a.shuttle_id, s.name AS shuttle_name,
	a.status`

type assignmentRow struct {
	AssignmentID    int64             `gorm:"column:assignment_id"`
	ServiceID       int64             `gorm:"column:service_id"`
	StartDate       dbtypes.Date      `gorm:"column:start_date"`
	StartTime       dbtypes.TimeOfDay `gorm:"column:start_time"`
	RouteID         int64             `gorm:"column:route_id"`
	RouteName       string            `gorm:"column:route_name"`
	DriverID        int64             `gorm:"column:driver_id"`
	DriverFirstName string            `gorm:"column:driver_first_name"`
	DriverLastName  string            `gorm:"column:driver_last_name"`
	ShuttleID       int64             `gorm:"column:shuttle_id"`
	ShuttleName     string            `gorm:"column:shuttle_name"`
	Status          string            `gorm:"column:status"`
}

type assignmentStopRow struct {
	AssignmentStopID         int64           `gorm:"column:assignment_stop_id"`
	AssignmentID             int64           `gorm:"column:assignment_id"`
	StopID                   int64           `gorm:"column:stop_id"`
	StopName                 string          `gorm:"column:stop_name"`
	Index                    int             `gorm:"column:stop_index"`
	Address                  string          `gorm:"column:address"`
	Latitude                 decimal.Decimal `gorm:"column:latitude"`
	Longitude                decimal.Decimal `gorm:"column:longitude"`
	TimeOfArrival            *time.Time      `gorm:"column:time_of_arrival"`
	TimeOfDeparture          *time.Time      `gorm:"column:time_of_departure"`
	EstimatedTimeOfArrival   *time.Time      `gorm:"column:estimated_time_of_arrival"`
	EstimatedTimeOfDeparture *time.Time      `gorm:"column:estimated_time_of_departure"`
}

// activeAssignments selects visible assignments with their display names.
// Assignments whose shuttle, driver or route has been archived are hidden.
func activeAssignments(conn *gorm.DB) *gorm.DB {
	return conn.Table("assignment AS a").
		Select(assignmentColumns).
		Joins("INNER JOIN shuttle AS s ON s.shuttle_id = a.shuttle_id").
		Joins("INNER JOIN driver AS d ON d.driver_id = a.driver_id").
		Joins("INNER JOIN users AS u ON u.user_id = d.driver_id").
		Joins("INNER JOIN route AS r ON r.route_id = a.route_id").
		Where("a.is_archived = FALSE AND s.is_archived = FALSE AND d.is_archived = FALSE AND r.is_archived = FALSE")
}

func (r *repository) FindAssignments(ctx context.Context, serviceID int64, date dbtypes.Date) ([]Assignment, error) {
	conn, cancel := r.Bound(ctx)
	defer cancel()

	var rows []assignmentRow
	err := activeAssignments(conn).
		Where("a.service_id = ? AND a.start_date = ?", serviceID, date).
		Order("a.start_time ASC, a.assignment_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, db.Translate(err, "find assignments")
	}

	result := make([]Assignment, 0, len(rows))
	for _, row := range rows {
		assignment, err := row.toAssignment()
		if err != nil {
			return nil, err
		}
		result = append(result, assignment)
	}
	return result, nil
}

func (r *repository) CheckAssignment(ctx context.Context, assignmentID int64) (*Assignment, error) {
	conn, cancel := r.Bound(ctx)
	defer cancel()

	var rows []assignmentRow
	err := activeAssignments(conn).
		Where("a.assignment_id = ?", assignmentID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, db.Translate(err, "check assignment")
	}
	if len(rows) == 0 {
		return nil, notFound(assignmentID)
	}

	assignment, err := rows[0].toAssignment()
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (row assignmentRow) toAssignment() (Assignment, error) {
	status, err := enums.ParseAssignmentStatus(row.Status)
	if err != nil {
		return Assignment{}, pkgerrors.Wrap(pkgerrors.CodeDecode, err, "decode assignment status").
			WithDetails(map[string]any{"assignment_id": row.AssignmentID, "status": row.Status})
	}
	return Assignment{
		ID:              row.AssignmentID,
		ServiceID:       row.ServiceID,
		StartDate:       row.StartDate,
		StartTime:       row.StartTime,
		RouteID:         row.RouteID,
		RouteName:       row.RouteName,
		DriverID:        row.DriverID,
		DriverFirstName: row.DriverFirstName,
		DriverLastName:  row.DriverLastName,
		ShuttleID:       row.ShuttleID,
		ShuttleName:     row.ShuttleName,
		Status:          status,
	}, nil
}

func (r *repository) FindAssignmentStops(ctx context.Context, assignmentID int64) ([]AssignmentStop, error) {
	conn, cancel := r.Bound(ctx)
	defer cancel()

	var rows []assignmentStopRow
	err := conn.Table("assignment_stop AS ast").
		Select(`ast.assignment_stop_id, ast.assignment_id, ast.stop_id, st.name AS stop_name,
			ast.stop_index, ast.address, ast.latitude, ast.longitude,
			ast.time_of_arrival, ast.time_of_departure,
			ast.estimated_time_of_arrival, ast.estimated_time_of_departure`).
		Joins("INNER JOIN stop AS st ON st.stop_id = ast.stop_id").
		Where("ast.assignment_id = ?", assignmentID).
		Scan(&rows).Error
	if err != nil {
		return nil, db.Translate(err, "find assignment stops")
	}

	// callers rely on index order; the store gives no ordering guarantee
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Index < rows[j].Index })

	result := make([]AssignmentStop, 0, len(rows))
	for _, row := range rows {
		result = append(result, AssignmentStop{
			ID:                       row.AssignmentStopID,
			AssignmentID:             row.AssignmentID,
			StopID:                   row.StopID,
			StopName:                 row.StopName,
			Index:                    row.Index,
			Address:                  row.Address,
			Latitude:                 row.Latitude,
			Longitude:                row.Longitude,
			TimeOfArrival:            row.TimeOfArrival,
			TimeOfDeparture:          row.TimeOfDeparture,
			EstimatedTimeOfArrival:   row.EstimatedTimeOfArrival,
			EstimatedTimeOfDeparture: row.EstimatedTimeOfDeparture,
		})
	}
	return result, nil
}

func (r *repository) FindDropShuttles(ctx context.Context, serviceID int64) ([]DropShuttle, error) {
	conn, cancel := r.Bound(ctx)
	defer cancel()

	var rows []models.Shuttle
	err := conn.Model(&models.Shuttle{}).
		Where("service_id = ? AND is_archived = FALSE AND is_active = TRUE", serviceID).
		Order("name ASC, shuttle_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, db.Translate(err, "find drop shuttles")
	}

	result := make([]DropShuttle, 0, len(rows))
	for _, row := range rows {
		result = append(result, DropShuttle{ID: row.ID, Name: row.Name})
	}
	return result, nil
}

type driverRow struct {
	DriverID  int64  `gorm:"column:driver_id"`
	FirstName string `gorm:"column:first_name"`
	LastName  string `gorm:"column:last_name"`
}

func (r *repository) FindDropDrivers(ctx context.Context, serviceID int64) ([]DropDriver, error) {
	conn, cancel := r.Bound(ctx)
	defer cancel()

	var rows []driverRow
	err := conn.Model(&models.Driver{}).
		Select("driver.driver_id, u.first_name, u.last_name").
		Joins("INNER JOIN "+models.User{}.TableName()+" AS u ON u.user_id = driver.driver_id").
		Where("driver.service_id = ? AND driver.is_archived = FALSE AND driver.is_active = TRUE", serviceID).
		Order("u.last_name ASC, u.first_name ASC, driver.driver_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, db.Translate(err, "find drop drivers")
	}

	result := make([]DropDriver, 0, len(rows))
	for _, row := range rows {
		result = append(result, DropDriver{ID: row.DriverID, FirstName: row.FirstName, LastName: row.LastName})
	}
	return result, nil
}

func (r *repository) FindDropRoutes(ctx context.Context, serviceID int64) ([]DropRoute, error) {
	conn, cancel := r.Bound(ctx)
	defer cancel()

	var rows []models.Route
	err := conn.Model(&models.Route{}).
		Where("service_id = ? AND is_archived = FALSE", serviceID).
		Order("name ASC, route_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, db.Translate(err, "find drop routes")
	}

	result := make([]DropRoute, 0, len(rows))
	for _, row := range rows {
		result = append(result, DropRoute{ID: row.ID, Name: row.Name})
	}
	return result, nil
}

func (r *repository) FindDropStops(ctx context.Context, serviceID int64) ([]DropStop, error) {
	conn, cancel := r.Bound(ctx)
	defer cancel()

	var rows []models.Stop
	err := conn.Model(&models.Stop{}).
		Where("service_id = ? AND is_archived = FALSE", serviceID).
		Order("name ASC, stop_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, db.Translate(err, "find drop stops")
	}

	result := make([]DropStop, 0, len(rows))
	for _, row := range rows {
		result = append(result, DropStop{
			ID:        row.ID,
			Name:      row.Name,
			Address:   row.Address,
			Latitude:  row.Latitude,
			Longitude: row.Longitude,
		})
	}
	return result, nil
}

type routeStopRow struct {
	StopID    int64           `gorm:"column:stop_id"`
	Name      string          `gorm:"column:name"`
	Index     int             `gorm:"column:stop_index"`
	Address   string          `gorm:"column:address"`
	Latitude  decimal.Decimal `gorm:"column:latitude"`
	Longitude decimal.Decimal `gorm:"column:longitude"`
}

func (r *repository) FindDropRouteStops(ctx context.Context, routeID int64) ([]DropRouteStop, error) {
	conn, cancel := r.Bound(ctx)
	defer cancel()

	var rows []routeStopRow
	err := conn.Model(&models.RouteStop{}).
		Select("route_stop.stop_id, st.name, route_stop.stop_index, st.address, st.latitude, st.longitude").
		Joins("INNER JOIN stop AS st ON st.stop_id = route_stop.stop_id").
		Where("route_stop.route_id = ?", routeID).
		Scan(&rows).Error
	if err != nil {
		return nil, db.Translate(err, "find drop route stops")
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Index < rows[j].Index })

	result := make([]DropRouteStop, 0, len(rows))
	for _, row := range rows {
		result = append(result, DropRouteStop{
			StopID:    row.StopID,
			Name:      row.Name,
			Index:     row.Index,
			Address:   row.Address,
			Latitude:  row.Latitude,
			Longitude: row.Longitude,
		})
	}
	return result, nil
}

func (r *repository) AddAssignment(ctx context.Context, input NewAssignment) (int64, error) {
	conn, cancel := r.Bound(ctx)
	defer cancel()

	row := models.Assignment{
		ServiceID:  input.ServiceID,
		StartDate:  input.StartDate,
		StartTime:  input.StartTime,
		RouteID:    input.RouteID,
		DriverID:   input.DriverID,
		ShuttleID:  input.ShuttleID,
		Status:     enums.AssignmentStatusScheduled,
		IsArchived: false,
	}
	if err := conn.Omit(clause.Associations).Create(&row).Error; err != nil {
		return 0, db.Translate(err, "add assignment")
	}
	if row.ID == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, "add assignment: store returned no identity")
	}
	return row.ID, nil
}

func (r *repository) AddAssignmentStops(ctx context.Context, assignmentID int64, stops []NewAssignmentStop) error {
	if len(stops) == 0 {
		return nil
	}
	if err := checkDistinctIndices(stops); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeConstraintViolation, err, "stop indices must be unique within an assignment").
			WithDetails(map[string]any{"assignment_id": assignmentID})
	}

	rows := make([]models.AssignmentStop, 0, len(stops))
	for _, stop := range stops {
		rows = append(rows, models.AssignmentStop{
			AssignmentID:             assignmentID,
			StopID:                   stop.StopID,
			Index:                    stop.Index,
			Address:                  stop.Address,
			Latitude:                 stop.Latitude,
			Longitude:                stop.Longitude,
			EstimatedTimeOfArrival:   onReferenceDate(stop.EstimatedArrival),
			EstimatedTimeOfDeparture: onReferenceDate(stop.EstimatedDeparture),
		})
	}

	conn, cancel := r.Bound(ctx)
	defer cancel()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
	if err != nil {
		return db.Translate(err, "add assignment stops")
	}
	return nil
}

func checkDistinctIndices(stops []NewAssignmentStop) error {
	var errs error
	seen := make(map[int]struct{}, len(stops))
	for _, stop := range stops {
		if _, dup := seen[stop.Index]; dup {
			errs = multierr.Append(errs, fmt.Errorf("index %d is repeated", stop.Index))
			continue
		}
		seen[stop.Index] = struct{}{}
	}
	return errs
}

func onReferenceDate(tod *dbtypes.TimeOfDay) *time.Time {
	if tod == nil {
		return nil
	}
	t := tod.OnReferenceDate()
	return &t
}

func (r *repository) UpdateAssignment(ctx context.Context, update AssignmentUpdate) error {
	conn, cancel := r.Bound(ctx)
	defer cancel()

	res := conn.Model(&models.Assignment{}).
		Where("assignment_id = ? AND is_archived = FALSE", update.AssignmentID).
		Updates(map[string]any{
			"driver_id":  update.DriverID,
			"shuttle_id": update.ShuttleID,
			"route_id":   update.RouteID,
			"start_date": update.StartDate,
			"start_time": update.StartTime,
		})
	if res.Error != nil {
		return db.Translate(res.Error, "update assignment")
	}
	if res.RowsAffected == 0 {
		return notFound(update.AssignmentID)
	}
	return nil
}

func (r *repository) CheckIndex(ctx context.Context, assignmentID int64) (int, error) {
	conn, cancel := r.Bound(ctx)
	defer cancel()

	// a missing activity row is the normal state before departure
	var activity models.ShuttleActivity
	res := conn.Where("assignment_id = ?", assignmentID).Limit(1).Find(&activity)
	if res.Error != nil {
		return 0, db.Translate(res.Error, "check index")
	}
	if res.RowsAffected == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "no shuttle activity for assignment").
			WithDetails(map[string]any{"assignment_id": assignmentID})
	}
	return activity.Index, nil
}

func (r *repository) RemoveAssignmentStops(ctx context.Context, assignmentID int64, index int) error {
	conn, cancel := r.Bound(ctx)
	defer cancel()

	err := conn.Where("assignment_id = ? AND stop_index > ?", assignmentID, index).
		Delete(&models.AssignmentStop{}).Error
	if err != nil {
		return db.Translate(err, "remove assignment stops")
	}
	return nil
}

func (r *repository) ArchiveAssignment(ctx context.Context, assignmentID int64) error {
	conn, cancel := r.Bound(ctx)
	defer cancel()

	err := conn.Model(&models.Assignment{}).
		Where("assignment_id = ?", assignmentID).
		Update("is_archived", true).Error
	if err != nil {
		return db.Translate(err, "archive assignment")
	}
	return nil
}

func notFound(assignmentID int64) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found").
		WithDetails(map[string]any{"assignment_id": assignmentID})
}
