package handlers

import (
	"net/url"
	"strconv"
	"time"

	"github.com/notedex/notedex/internal/domain"
	"github.com/notedex/notedex/internal/service"
)

// parseFilters builds the common filter set from query parameters shared
// by the search, facet and answer endpoints. Unrecognized values are
// rejected, never silently corrected.
func parseFilters(values url.Values, now time.Time) (service.FilterSpec, error) {
	var filters service.FilterSpec

	var rawTags []string
	for _, v := range values["tags"] {
		rawTags = append(rawTags, v)
	}
	if len(rawTags) > 0 {
		filters.Tags = domain.NormalizeTags(rawTags)
	}
	filters.RequireAll = parseBool(values.Get("require_all_tags"))

	since, err := service.ParseDateBound(values.Get("since"), false, now)
	if err != nil {
		return filters, err
	}
	filters.Since = since

	until, err := service.ParseDateBound(values.Get("until"), true, now)
	if err != nil {
		return filters, err
	}
	filters.Until = until

	filters.DateField = values.Get("date_field")
	filters.PathPrefix = values.Get("path_prefix")

	if err := filters.Validate(); err != nil {
		return filters, err
	}
	return filters, nil
}

func parseBool(value string) bool {
	b, err := strconv.ParseBool(value)
	return err == nil && b
}

func parseLimit(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, domain.NewDomainError(domain.ErrCodeInvalidFilter, "limit must be a non-negative integer")
	}
	return n, nil
}
