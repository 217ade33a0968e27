package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	dbtypes "github.com/angelmondragon/shuttle-dispatch/pkg/db/types"
	pkgerrors "github.com/angelmondragon/shuttle-dispatch/pkg/errors"
)

// ParseQueryDate reads a required YYYY-MM-DD query parameter.
func ParseQueryDate(r *http.Request, key string) (dbtypes.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return dbtypes.Date{}, pkgerrors.New(pkgerrors.CodeValidation, "query parameter is required").WithDetails(map[string]any{"field": key})
	}
	date, err := dbtypes.ParseDate(raw)
	if err != nil {
		return dbtypes.Date{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "query parameter must be a YYYY-MM-DD date").WithDetails(map[string]any{"field": key})
	}
	return date, nil
}

// ParseIDParam reads a positive integer route parameter.
func ParseIDParam(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "path parameter must be a positive integer").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
