package handler

import (
	"strings"

	"allocation-engine/internal/config"
)

// clampPage applies the configured default and ceiling to client-supplied
// pagination. Pagination is mandatory on every listing endpoint.
func clampPage(page, pageSize int, app config.AppConfig) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = app.DefaultPageSize
	}
	if pageSize > app.MaxPageSize {
		pageSize = app.MaxPageSize
	}
	return page, pageSize
}

func splitIDs(raw string) []string {
	ids := make([]string, 0)
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
