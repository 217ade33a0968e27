package assignments

import (
	"time"

	"github.com/shopspring/decimal"

	dbtypes "github.com/angelmondragon/shuttle-dispatch/pkg/db/types"
	"github.com/angelmondragon/shuttle-dispatch/pkg/enums"
)

// Assignment is a scheduled pairing of driver, shuttle and route, with the
// display names of each resolved.
type Assignment struct {
	ID              int64                  `json:"assignment_id"`
	ServiceID       int64                  `json:"service_id"`
	StartDate       dbtypes.Date           `json:"start_date"`
	StartTime       dbtypes.TimeOfDay      `json:"start_time"`
	RouteID         int64                  `json:"route_id"`
	RouteName       string                 `json:"route_name"`
	DriverID        int64                  `json:"driver_id"`
	DriverFirstName string                 `json:"driver_first_name"`
	DriverLastName  string                 `json:"driver_last_name"`
	ShuttleID       int64                  `json:"shuttle_id"`
	ShuttleName     string                 `json:"shuttle_name"`
	Status          enums.AssignmentStatus `json:"status"`
}

// AssignmentStop is one ordered stop of an assignment. Actual times stay nil
// until the shuttle reaches the stop. Estimated times only carry a clock
// reading and sit on dbtypes.ReferenceDate.
type AssignmentStop struct {
	ID                       int64           `json:"assignment_stop_id"`
	AssignmentID             int64           `json:"assignment_id"`
	StopID                   int64           `json:"stop_id"`
	StopName                 string          `json:"stop_name"`
	Index                    int             `json:"index"`
	Address                  string          `json:"address"`
	Latitude                 decimal.Decimal `json:"latitude"`
	Longitude                decimal.Decimal `json:"longitude"`
	TimeOfArrival            *time.Time      `json:"time_of_arrival"`
	TimeOfDeparture          *time.Time      `json:"time_of_departure"`
	EstimatedTimeOfArrival   *time.Time      `json:"estimated_time_of_arrival"`
	EstimatedTimeOfDeparture *time.Time      `json:"estimated_time_of_departure"`
}

// DropShuttle is a selectable shuttle.
type DropShuttle struct {
	ID   int64  `json:"shuttle_id"`
	Name string `json:"name"`
}

// DropDriver is a selectable driver.
type DropDriver struct {
	ID        int64  `json:"driver_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DropRoute is a selectable route.
type DropRoute struct {
	ID   int64  `json:"route_id"`
	Name string `json:"name"`
}

// DropStop is a selectable stop.
type DropStop struct {
	ID        int64           `json:"stop_id"`
	Name      string          `json:"name"`
	Address   string          `json:"address"`
	Latitude  decimal.Decimal `json:"latitude"`
	Longitude decimal.Decimal `json:"longitude"`
}

// DropRouteStop is one entry of a route template.
type DropRouteStop struct {
	StopID    int64           `json:"stop_id"`
	Name      string          `json:"name"`
	Index     int             `json:"index"`
	Address   string          `json:"address"`
	Latitude  decimal.Decimal `json:"latitude"`
	Longitude decimal.Decimal `json:"longitude"`
}

// NewAssignment carries the fields required to schedule an assignment.
type NewAssignment struct {
	ServiceID int64             `json:"service_id" validate:"gt=0"`
	DriverID  int64             `json:"driver_id" validate:"gt=0"`
	ShuttleID int64             `json:"shuttle_id" validate:"gt=0"`
	RouteID   int64             `json:"route_id" validate:"gt=0"`
	StartDate dbtypes.Date      `json:"start_date"`
	StartTime dbtypes.TimeOfDay `json:"start_time"`
}

// NewAssignmentStop is one stop to attach to an assignment.
type NewAssignmentStop struct {
	StopID             int64              `json:"stop_id" validate:"gt=0"`
	Index              int                `json:"index" validate:"gte=0"`
	Address            string             `json:"address" validate:"required,max=512"`
	Latitude           decimal.Decimal    `json:"latitude"`
	Longitude          decimal.Decimal    `json:"longitude"`
	EstimatedArrival   *dbtypes.TimeOfDay `json:"estimated_time_of_arrival,omitempty"`
	EstimatedDeparture *dbtypes.TimeOfDay `json:"estimated_time_of_departure,omitempty"`
}

// AssignmentUpdate lists the mutable fields of an assignment. Status and the
// owning service never change through an update.
type AssignmentUpdate struct {
	AssignmentID int64             `json:"-" validate:"gt=0"`
	DriverID     int64             `json:"driver_id" validate:"gt=0"`
	ShuttleID    int64             `json:"shuttle_id" validate:"gt=0"`
	RouteID      int64             `json:"route_id" validate:"gt=0"`
	StartDate    dbtypes.Date      `json:"start_date"`
	StartTime    dbtypes.TimeOfDay `json:"start_time"`
}

// CreateAssignmentInput schedules an assignment together with its itinerary.
type CreateAssignmentInput struct {
	NewAssignment
	Stops []NewAssignmentStop `json:"stops" validate:"dive"`
}

// UpdateAssignmentInput edits an assignment. When ReplaceStops is set, the
// stops after the shuttle's current position are replaced with Stops.
type UpdateAssignmentInput struct {
	AssignmentUpdate
	ReplaceStops bool                `json:"replace_stops"`
	Stops        []NewAssignmentStop `json:"stops" validate:"dive"`
}
