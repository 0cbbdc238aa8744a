package redmine

import (
	"context"
	"errors"

	"github.com/redmine-cli/rdm/internal/apperrors"
)

const (
	// DefaultLimit is the display page size when the caller gives none.
	DefaultLimit = 25

	// MaxPageSize is the server-advertised per-page maximum. Display
	// limits above it are capped, never silently dropped.
	MaxPageSize = 100

	// MaxFetchAllRecords bounds an exhaustive drain. Result sets beyond
	// it fail instead of consuming unbounded time and memory.
	MaxFetchAllRecords = 10000
)

// PageWindow describes one fetched window of a collection. NextOffset
// is populated only while offset+limit is still below the server-
// reported total.
type PageWindow struct {
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	TotalCount int  `json:"total_count"`
	NextOffset *int `json:"next_offset,omitempty"`
}

// NewPageWindow derives the window descriptor for one page.
func NewPageWindow(limit, offset, totalCount int) PageWindow {
	w := PageWindow{Limit: limit, Offset: offset, TotalCount: totalCount}
	if next := offset + limit; next < totalCount {
		w.NextOffset = &next
	}
	return w
}

// PageFunc fetches one window of records: exactly one transport call.
type PageFunc[T any] func(ctx context.Context, limit, offset int) ([]T, PageWindow, error)

// FetchAll drains every matching page of a collection by issuing
// successive windowed calls, strictly one at a time. Aggregated views
// are computed over its result so that subtotals always reflect the
// whole matching set. Any page failure aborts the drain; the returned
// error carries the count of records gathered before the failure.
func FetchAll[T any](ctx context.Context, pageSize int, fetch PageFunc[T]) ([]T, error) {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	var all []T
	offset := 0
	for {
		records, window, err := fetch(ctx, pageSize, offset)
		if err != nil {
			return nil, annotateGathered(err, len(all))
		}
		all = append(all, records...)

		if window.TotalCount > MaxFetchAllRecords || len(all) > MaxFetchAllRecords {
			return nil, apperrors.New(apperrors.ResourceExhausted,
				"result set exceeds %d records; narrow the filters", MaxFetchAllRecords).
				WithDetail("records_gathered", len(all)).
				WithDetail("total_count", window.TotalCount)
		}
		if len(records) < pageSize {
			return all, nil
		}
		offset += pageSize
		if window.TotalCount > 0 && offset >= window.TotalCount {
			return all, nil
		}
	}
}

func annotateGathered(err error, gathered int) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		appErr.WithDetail("records_gathered", gathered)
	}
	return err
}
