package assignments

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/shuttle-dispatch/pkg/db"
	dbtypes "github.com/angelmondragon/shuttle-dispatch/pkg/db/types"
	pkgerrors "github.com/angelmondragon/shuttle-dispatch/pkg/errors"
	"github.com/angelmondragon/shuttle-dispatch/pkg/logger"
	"github.com/angelmondragon/shuttle-dispatch/pkg/metrics"
)

type serviceFixture struct {
	svc  Service
	repo Repository
	conn *gorm.DB
	reg  *prometheus.Registry
	logs *bytes.Buffer
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	repo, conn := newSeededRepo(t)
	return newServiceFixtureWithRepo(t, repo, conn)
}

func newServiceFixtureWithRepo(t *testing.T, repo Repository, conn *gorm.DB) serviceFixture {
	t.Helper()
	logs := &bytes.Buffer{}
	reg := prometheus.NewRegistry()
	svc, err := NewService(repo, db.NewFromGorm(conn), logger.New(logger.Options{ServiceName: "test", Output: logs}), metrics.NewStoreMetrics(reg))
	require.NoError(t, err)
	return serviceFixture{svc: svc, repo: repo, conn: conn, reg: reg, logs: logs}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if matchesLabels(metric, labels) {
				total += metric.GetCounter().GetValue()
			}
		}
	}
	return total
}

func matchesLabels(metric *dto.Metric, labels map[string]string) bool {
	for key, want := range labels {
		found := false
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == key && pair.GetValue() == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func createInput() CreateAssignmentInput {
	return CreateAssignmentInput{NewAssignment: newTestAssignment(), Stops: campusLoopStops()}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	repo, conn := newSeededRepo(t)
	logg := logger.New(logger.Options{Output: &bytes.Buffer{}})

	_, err := NewService(nil, db.NewFromGorm(conn), logg, nil)
	assert.Error(t, err)
	_, err = NewService(repo, nil, logg, nil)
	assert.Error(t, err)
	_, err = NewService(repo, db.NewFromGorm(conn), nil, nil)
	assert.Error(t, err)

	svc, err := NewService(repo, db.NewFromGorm(conn), logg, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestServiceCreate(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	id, err := f.svc.Create(ctx, createInput())
	require.NoError(t, err)
	require.Positive(t, id)

	stops, err := f.svc.ListStops(ctx, id)
	require.NoError(t, err)
	require.Len(t, stops, 3)
	assert.Equal(t, int64(11), stops[0].StopID)

	assert.Equal(t, float64(1), counterValue(t, f.reg, "assignment_store_success", map[string]string{"op": "add_assignment"}))
	assert.Equal(t, float64(1), counterValue(t, f.reg, "assignment_store_success", map[string]string{"op": "add_assignment_stops"}))
	assert.Contains(t, f.logs.String(), "assignments.created")
}

func TestServiceCreateRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	input := createInput()
	input.DriverID = 0
	input.StartDate = dbtypes.Date{}
	input.Stops[0].Latitude = decimal.NewFromInt(91)
	input.Stops[1].Address = ""
	input.Stops[2].Index = input.Stops[0].Index

	_, err := f.svc.Create(ctx, input)
	requireCode(t, err, pkgerrors.CodeValidation)

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "driver_id")
	assert.Contains(t, details, "start_date")
	assert.Contains(t, details, "stops[0].latitude")
	assert.Contains(t, details, "stops[1].address")
	assert.Contains(t, details, "stops[2].index")

	var count int64
	require.NoError(t, f.conn.Table("assignment").Count(&count).Error)
	assert.Zero(t, count)
}

// failingStopsRepo fails every stop insert after the assignment row is written.
type failingStopsRepo struct {
	Repository
}

func (r failingStopsRepo) WithTx(tx *gorm.DB) Repository {
	return failingStopsRepo{Repository: r.Repository.WithTx(tx)}
}

func (r failingStopsRepo) AddAssignmentStops(context.Context, int64, []NewAssignmentStop) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("connection reset"), "add assignment stops")
}

func TestServiceCreateRollsBackWhenStopsFail(t *testing.T) {
	ctx := context.Background()
	repo, conn := newSeededRepo(t)
	f := newServiceFixtureWithRepo(t, failingStopsRepo{Repository: repo}, conn)

	_, err := f.svc.Create(ctx, createInput())
	requireCode(t, err, pkgerrors.CodeDependency)

	list, err := f.svc.ListAssignments(ctx, testServiceID, testDate)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Equal(t, float64(1), counterValue(t, f.reg, "assignment_store_failure", map[string]string{"op": "add_assignment_stops", "code": "DEPENDENCY_ERROR"}))
}

func TestServiceUpdateReplacesAllStopsBeforeDeparture(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	id, err := f.svc.Create(ctx, createInput())
	require.NoError(t, err)

	update := UpdateAssignmentInput{
		AssignmentUpdate: AssignmentUpdate{
			AssignmentID: id,
			DriverID:     8,
			ShuttleID:    4,
			RouteID:      testRouteID,
			StartDate:    testDate,
			StartTime:    dbtypes.TimeOfDay{Hour: 10},
		},
		ReplaceStops: true,
		Stops: []NewAssignmentStop{
			{StopID: 12, Index: 0, Address: "2 Gym Rd", Latitude: decimal.RequireFromString("41.879"), Longitude: decimal.RequireFromString("-87.631")},
		},
	}
	require.NoError(t, f.svc.Update(ctx, update))

	got, err := f.svc.GetAssignment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Red Line", got.ShuttleName)
	assert.Equal(t, dbtypes.TimeOfDay{Hour: 10}, got.StartTime)

	stops, err := f.svc.ListStops(ctx, id)
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.Equal(t, int64(12), stops[0].StopID)
}

func TestServiceUpdateKeepsReachedStops(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	id, err := f.svc.Create(ctx, createInput())
	require.NoError(t, err)
	require.NoError(t, f.conn.Exec(`INSERT INTO shuttle_activity (assignment_id, shuttle_id, stop_index) VALUES (?, 3, 1)`, id).Error)

	update := UpdateAssignmentInput{
		AssignmentUpdate: AssignmentUpdate{
			AssignmentID: id,
			DriverID:     testDriverID,
			ShuttleID:    testShuttleID,
			RouteID:      testRouteID,
			StartDate:    testDate,
			StartTime:    dbtypes.TimeOfDay{Hour: 8},
		},
		ReplaceStops: true,
		Stops: []NewAssignmentStop{
			{StopID: 11, Index: 2, Address: "1 Library Way", EstimatedArrival: tod(8, 30)},
			{StopID: 13, Index: 3, Address: "3 Dorm Ct", EstimatedArrival: tod(8, 40)},
		},
	}
	require.NoError(t, f.svc.Update(ctx, update))

	stops, err := f.svc.ListStops(ctx, id)
	require.NoError(t, err)
	require.Len(t, stops, 4)
	assert.Equal(t, []int64{11, 12, 11, 13}, []int64{stops[0].StopID, stops[1].StopID, stops[2].StopID, stops[3].StopID})
	require.NotNil(t, stops[3].EstimatedTimeOfArrival)
	assert.Equal(t, dbtypes.TimeOfDay{Hour: 8, Minute: 40}, dbtypes.NewTimeOfDay(*stops[3].EstimatedTimeOfArrival))
}

func TestServiceUpdateRejectsStopsAtOrBeforeActiveIndex(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	id, err := f.svc.Create(ctx, createInput())
	require.NoError(t, err)
	require.NoError(t, f.conn.Exec(`INSERT INTO shuttle_activity (assignment_id, shuttle_id, stop_index) VALUES (?, 3, 1)`, id).Error)

	update := UpdateAssignmentInput{
		AssignmentUpdate: AssignmentUpdate{
			AssignmentID: id,
			DriverID:     8,
			ShuttleID:    testShuttleID,
			RouteID:      testRouteID,
			StartDate:    testDate,
		},
		ReplaceStops: true,
		Stops:        []NewAssignmentStop{{StopID: 11, Index: 1, Address: "1 Library Way"}},
	}
	err = f.svc.Update(ctx, update)
	requireCode(t, err, pkgerrors.CodeConstraintViolation)

	// the whole update rolls back, including the driver change
	got, err := f.svc.GetAssignment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, testDriverID, got.DriverID)

	stops, err := f.svc.ListStops(ctx, id)
	require.NoError(t, err)
	assert.Len(t, stops, 3)
}

func TestServiceUpdateNotFound(t *testing.T) {
	f := newServiceFixture(t)

	err := f.svc.Update(context.Background(), UpdateAssignmentInput{
		AssignmentUpdate: AssignmentUpdate{AssignmentID: 404, DriverID: 7, ShuttleID: 3, RouteID: 5, StartDate: testDate},
	})
	requireCode(t, err, pkgerrors.CodeNotFound)
	assert.Equal(t, float64(1), counterValue(t, f.reg, "assignment_store_failure", map[string]string{"op": "check_assignment", "code": "NOT_FOUND"}))
}

func TestServiceUpdateRejectsAssignmentWithArchivedDriver(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	id, err := f.svc.Create(ctx, createInput())
	require.NoError(t, err)
	require.NoError(t, f.conn.Exec(`UPDATE driver SET is_archived = TRUE WHERE driver_id = ?`, testDriverID).Error)

	err = f.svc.Update(ctx, UpdateAssignmentInput{
		AssignmentUpdate: AssignmentUpdate{AssignmentID: id, DriverID: 8, ShuttleID: 3, RouteID: 5, StartDate: testDate},
	})
	requireCode(t, err, pkgerrors.CodeNotFound)

	var driverID int64
	require.NoError(t, f.conn.Raw(`SELECT driver_id FROM assignment WHERE assignment_id = ?`, id).Scan(&driverID).Error)
	assert.Equal(t, testDriverID, driverID)
}

func TestServiceUpdateRequiresReplaceFlagForStops(t *testing.T) {
	f := newServiceFixture(t)

	err := f.svc.Update(context.Background(), UpdateAssignmentInput{
		AssignmentUpdate: AssignmentUpdate{AssignmentID: 1, DriverID: 7, ShuttleID: 3, RouteID: 5, StartDate: testDate},
		Stops:            []NewAssignmentStop{{StopID: 11, Index: 0, Address: "1 Library Way"}},
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestServicePlanFromRoute(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	plan, err := f.svc.PlanFromRoute(ctx, testRouteID)
	require.NoError(t, err)
	require.Len(t, plan, 3)
	for i, stop := range plan {
		assert.Equal(t, i, stop.Index)
		assert.Nil(t, stop.EstimatedArrival)
	}
	assert.Equal(t, "1 Library Way", plan[0].Address)

	input := CreateAssignmentInput{NewAssignment: newTestAssignment(), Stops: plan}
	id, err := f.svc.Create(ctx, input)
	require.NoError(t, err)

	stops, err := f.svc.ListStops(ctx, id)
	require.NoError(t, err)
	assert.Len(t, stops, 3)
}

func TestServiceLogsDecodeFailures(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	id, err := f.svc.Create(ctx, createInput())
	require.NoError(t, err)
	require.NoError(t, f.conn.Exec(`UPDATE assignment SET status = 'DELAYED' WHERE assignment_id = ?`, id).Error)

	_, err = f.svc.ListAssignments(ctx, testServiceID, testDate)
	requireCode(t, err, pkgerrors.CodeDecode)
	assert.Contains(t, f.logs.String(), "assignments.decode_failed")
	assert.Contains(t, f.logs.String(), "DELAYED")
	assert.Equal(t, float64(1), counterValue(t, f.reg, "assignment_store_failure", map[string]string{"op": "find_assignments", "code": "DECODE_ERROR"}))
}

func TestServiceArchiveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	id, err := f.svc.Create(ctx, createInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.Archive(ctx, id))
	require.NoError(t, f.svc.Archive(ctx, id))

	_, err = f.svc.GetAssignment(ctx, id)
	requireCode(t, err, pkgerrors.CodeNotFound)
	assert.Equal(t, float64(2), counterValue(t, f.reg, "assignment_store_success", map[string]string{"op": "archive_assignment"}))
}

func TestServiceDropLists(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	shuttles, err := f.svc.DropShuttles(ctx, testServiceID)
	require.NoError(t, err)
	assert.Len(t, shuttles, 2)

	drivers, err := f.svc.DropDrivers(ctx, testServiceID)
	require.NoError(t, err)
	assert.Len(t, drivers, 2)

	routes, err := f.svc.DropRoutes(ctx, testServiceID)
	require.NoError(t, err)
	assert.Len(t, routes, 1)

	stops, err := f.svc.DropStops(ctx, testServiceID)
	require.NoError(t, err)
	assert.Len(t, stops, 3)

	routeStops, err := f.svc.DropRouteStops(ctx, testRouteID)
	require.NoError(t, err)
	assert.Len(t, routeStops, 3)
}

func TestServiceCreateHonoursTimeout(t *testing.T) {
	f := newServiceFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := f.svc.Create(ctx, createInput())
	require.Error(t, err)
}
