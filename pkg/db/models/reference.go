package models

import "github.com/shopspring/decimal"

// Reference data scoped to a service. Rows are managed outside the dispatch
// core and are only read here to populate selection lists.

type Shuttle struct {
	ID         int64  `gorm:"column:shuttle_id;primaryKey;autoIncrement"`
	ServiceID  int64  `gorm:"column:service_id;not null"`
	Name       string `gorm:"column:name;not null"`
	IsActive   bool   `gorm:"column:is_active;not null;default:true"`
	IsArchived bool   `gorm:"column:is_archived;not null;default:false"`
}

func (Shuttle) TableName() string { return "shuttle" }

// User holds the names shown for a driver.
type User struct {
	ID        int64  `gorm:"column:user_id;primaryKey;autoIncrement"`
	FirstName string `gorm:"column:first_name;not null"`
	LastName  string `gorm:"column:last_name;not null"`
}

func (User) TableName() string { return "users" }

// Driver shares its primary key with the owning user row.
type Driver struct {
	ID         int64 `gorm:"column:driver_id;primaryKey"`
	ServiceID  int64 `gorm:"column:service_id;not null"`
	IsActive   bool  `gorm:"column:is_active;not null;default:true"`
	IsArchived bool  `gorm:"column:is_archived;not null;default:false"`
}

func (Driver) TableName() string { return "driver" }

type Route struct {
	ID         int64  `gorm:"column:route_id;primaryKey;autoIncrement"`
	ServiceID  int64  `gorm:"column:service_id;not null"`
	Name       string `gorm:"column:name;not null"`
	IsArchived bool   `gorm:"column:is_archived;not null;default:false"`
}

func (Route) TableName() string { return "route" }

type Stop struct {
	ID         int64           `gorm:"column:stop_id;primaryKey;autoIncrement"`
	ServiceID  int64           `gorm:"column:service_id;not null"`
	Name       string          `gorm:"column:name;not null"`
	Address    string          `gorm:"column:address;not null"`
	Latitude   decimal.Decimal `gorm:"column:latitude;type:numeric(9,6);not null"`
	Longitude  decimal.Decimal `gorm:"column:longitude;type:numeric(9,6);not null"`
	IsArchived bool            `gorm:"column:is_archived;not null;default:false"`
}

func (Stop) TableName() string { return "stop" }

// RouteStop is one entry of a route's canonical stop list.
type RouteStop struct {
	ID      int64 `gorm:"column:route_stop_id;primaryKey;autoIncrement"`
	RouteID int64 `gorm:"column:route_id;not null"`
	StopID  int64 `gorm:"column:stop_id;not null"`
	Index   int   `gorm:"column:stop_index;not null"`
}

func (RouteStop) TableName() string { return "route_stop" }
