package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/listing-qa-backend/pkg/errors"
	"github.com/angelmondragon/listing-qa-backend/pkg/pagination"
)

// ParsePageParams reads limit and cursor from the query string. A missing
// limit falls back to the default page size; a malformed cursor is rejected
// here so callers never reach the database with it.
func ParsePageParams(r *http.Request) (pagination.Params, error) {
	query := r.URL.Query()
	params := pagination.Params{
		Limit:  pagination.DefaultLimit,
		Cursor: strings.TrimSpace(query.Get("cursor")),
	}

	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return pagination.Params{}, fieldError("limit", "limit must be an integer", nil)
		}
		if limit < 1 || limit > pagination.MaxLimit {
			return pagination.Params{}, fieldError("limit", "limit out of range", map[string]any{
				"min": 1,
				"max": pagination.MaxLimit,
			})
		}
		params.Limit = limit
	}

	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Params{}, fieldError("cursor", "invalid cursor", nil)
	}
	return params, nil
}

func fieldError(field, msg string, extra map[string]any) error {
	details := map[string]any{"field": field}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}
