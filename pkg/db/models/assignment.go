package models

import (
	"time"

	"github.com/shopspring/decimal"

	dbtypes "github.com/angelmondragon/shuttle-dispatch/pkg/db/types"
	"github.com/angelmondragon/shuttle-dispatch/pkg/enums"
)

// Assignment pairs a driver, shuttle and route for a service on a date.
type Assignment struct {
	ID         int64                  `gorm:"column:assignment_id;primaryKey;autoIncrement"`
	ServiceID  int64                  `gorm:"column:service_id;not null"`
	StartDate  dbtypes.Date           `gorm:"column:start_date;type:date;not null"`
	StartTime  dbtypes.TimeOfDay      `gorm:"column:start_time;type:time;not null"`
	RouteID    int64                  `gorm:"column:route_id;not null"`
	DriverID   int64                  `gorm:"column:driver_id;not null"`
	ShuttleID  int64                  `gorm:"column:shuttle_id;not null"`
	Status     enums.AssignmentStatus `gorm:"column:status;type:assignment_status;not null;default:'SCHEDULED'"`
	IsArchived bool                   `gorm:"column:is_archived;not null;default:false"`
	Stops      []AssignmentStop       `gorm:"foreignKey:AssignmentID;constraint:OnDelete:CASCADE"`
}

func (Assignment) TableName() string { return "assignment" }

// AssignmentStop is one ordered stop of an assignment's itinerary.
// Actual times stay nil until the shuttle reaches the stop.
type AssignmentStop struct {
	ID                       int64           `gorm:"column:assignment_stop_id;primaryKey;autoIncrement"`
	AssignmentID             int64           `gorm:"column:assignment_id;not null"`
	StopID                   int64           `gorm:"column:stop_id;not null"`
	Index                    int             `gorm:"column:stop_index;not null"`
	Address                  string          `gorm:"column:address;not null"`
	Latitude                 decimal.Decimal `gorm:"column:latitude;type:numeric(9,6);not null"`
	Longitude                decimal.Decimal `gorm:"column:longitude;type:numeric(9,6);not null"`
	TimeOfArrival            *time.Time      `gorm:"column:time_of_arrival"`
	TimeOfDeparture          *time.Time      `gorm:"column:time_of_departure"`
	EstimatedTimeOfArrival   *time.Time      `gorm:"column:estimated_time_of_arrival"`
	EstimatedTimeOfDeparture *time.Time      `gorm:"column:estimated_time_of_departure"`
}

func (AssignmentStop) TableName() string { return "assignment_stop" }

// ShuttleActivity tracks the live position of a running assignment.
type ShuttleActivity struct {
	ID           int64     `gorm:"column:shuttle_activity_id;primaryKey;autoIncrement"`
	AssignmentID int64     `gorm:"column:assignment_id;not null;uniqueIndex"`
	ShuttleID    int64     `gorm:"column:shuttle_id;not null"`
	Index        int       `gorm:"column:stop_index;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ShuttleActivity) TableName() string { return "shuttle_activity" }
