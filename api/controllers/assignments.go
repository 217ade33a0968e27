package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/shuttle-dispatch/api/responses"
	"github.com/angelmondragon/shuttle-dispatch/api/validators"
	"github.com/angelmondragon/shuttle-dispatch/internal/assignments"
	pkgerrors "github.com/angelmondragon/shuttle-dispatch/pkg/errors"
	"github.com/angelmondragon/shuttle-dispatch/pkg/logger"
)

// AssignmentDetail is an assignment together with its ordered stops.
type AssignmentDetail struct {
	Assignment *assignments.Assignment      `json:"assignment"`
	Stops      []assignments.AssignmentStop `json:"stops"`
}

// AssignmentCreated is returned after scheduling an assignment.
type AssignmentCreated struct {
	AssignmentID int64 `json:"assignment_id"`
}

func serviceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
}

// ListAssignments returns a service's schedule for the date in ?date=YYYY-MM-DD.
func ListAssignments(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg)
			return
		}
		serviceID, err := validators.ParseIDParam(r, "serviceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date, err := validators.ParseQueryDate(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListAssignments(r.Context(), serviceID, date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// CreateAssignment schedules an assignment and its stops in one step.
func CreateAssignment(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg)
			return
		}
		var input assignments.CreateAssignmentInput
		if err := validators.DecodeJSONBody(w, r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, AssignmentCreated{AssignmentID: id})
	}
}

// GetAssignment returns one visible assignment with its stops.
func GetAssignment(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg)
			return
		}
		id, err := validators.ParseIDParam(r, "assignmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignment, err := svc.GetAssignment(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stops, err := svc.ListStops(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, AssignmentDetail{Assignment: assignment, Stops: stops})
	}
}

func UpdateAssignment(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg)
			return
		}
		id, err := validators.ParseIDParam(r, "assignmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input assignments.UpdateAssignmentInput
		// the path owns the identifier; the body cannot carry one
		input.AssignmentID = id
		if err := validators.DecodeJSONBody(w, r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Update(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// ArchiveAssignment hides an assignment; repeating the call is harmless.
func ArchiveAssignment(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg)
			return
		}
		id, err := validators.ParseIDParam(r, "assignmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Archive(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func ListAssignmentStops(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return byID(svc, logg, "assignmentID", assignments.Service.ListStops)
}

func DropShuttles(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return byID(svc, logg, "serviceID", assignments.Service.DropShuttles)
}

func DropDrivers(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return byID(svc, logg, "serviceID", assignments.Service.DropDrivers)
}

func DropRoutes(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return byID(svc, logg, "serviceID", assignments.Service.DropRoutes)
}

func DropStops(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return byID(svc, logg, "serviceID", assignments.Service.DropStops)
}

func DropRouteStops(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return byID(svc, logg, "routeID", assignments.Service.DropRouteStops)
}

// PlanFromRoute returns a route template shaped as stops for a new assignment.
func PlanFromRoute(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return byID(svc, logg, "routeID", assignments.Service.PlanFromRoute)
}

// byID serves read-only lookups keyed by one path identifier.
func byID[T any](svc assignments.Service, logg *logger.Logger, param string, fetch func(assignments.Service, context.Context, int64) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg)
			return
		}
		id, err := validators.ParseIDParam(r, param)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := fetch(svc, r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}
