package handlers

import (
	"fmt"
	"net/http"
	"strconv"
)

// intParam reads an integer query parameter with a default and inclusive
// bounds. Out-of-range values are a caller error, not something to clamp
// silently.
func intParam(r *http.Request, name string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parameter %q must be an integer", name)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("parameter %q must be between %d and %d", name, min, max)
	}
	return v, nil
}

// floatParam reads a required float query parameter.
func floatParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("parameter %q is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %q must be a number", name)
	}
	return v, nil
}

// requiredParam reads a required string query parameter.
func requiredParam(r *http.Request, name string) (string, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return "", fmt.Errorf("parameter %q is required", name)
	}
	return raw, nil
}
