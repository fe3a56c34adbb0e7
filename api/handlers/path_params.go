package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

func urlParamInt64(r *http.Request, key string) int64 {
	raw := chi.URLParam(r, key)
	if raw == "" {
		raw = fallbackPathParam(r, key)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// Fallback for direct handler tests without chi route context.
func fallbackPathParam(r *http.Request, key string) string {
	segments := strings.Split(strings.Trim(strings.TrimSpace(r.URL.Path), "/"), "/")
	marker := ""
	switch key {
	case "id":
		marker = "incidents"
		if containsSegment(segments, "workflows") {
			marker = "workflows"
		}
	case "step_id":
		marker = "steps"
	}
	if marker == "" {
		return ""
	}
	for i := 0; i < len(segments)-1; i++ {
		if segments[i] == marker && strings.TrimSpace(segments[i+1]) != "" {
			return segments[i+1]
		}
	}
	return ""
}

func containsSegment(segments []string, want string) bool {
	for _, s := range segments {
		if s == want {
			return true
		}
	}
	return false
}

func parseIntDefault(raw string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}
