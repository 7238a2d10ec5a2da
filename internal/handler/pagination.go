package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tokenmeter/tokenmeter-api/internal/config"
	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
)

type PaginationParams struct {
	Limit  int
	Offset int
}

func ParsePagination(r *http.Request) PaginationParams {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	if limit <= 0 {
		limit = config.DefaultSpendingLimit
	}
	if limit > config.MaxSpendingLimit {
		limit = config.MaxSpendingLimit
	}

	if offset < 0 {
		offset = 0
	}

	return PaginationParams{
		Limit:  limit,
		Offset: offset,
	}
}

// parseDateParam reads an optional YYYY-MM-DD (or RFC 3339) query parameter.
func parseDateParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	if d, err := model.ParseDate(raw); err == nil {
		return &d.Time, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	return nil, apperrors.InvalidInput(name, "must be a date in YYYY-MM-DD format")
}
