package validation

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/MasterLKH180cm/keycloak-poc/internal/api/schema"
	"github.com/go-chi/chi/v5"
)

var (
	errQueryParameterMissing = func(name string) *schema.Error {
		return &schema.Error{
			Type:    "validation.query.parameter.missing",
			Message: fmt.Sprintf("The query parameter '%s' is required but was not present in the request.", name),
			Details: map[string]any{
				"parameter": name,
			},
		}
	}
	errPathParameterMissing = func(name string) *schema.Error {
		return &schema.Error{
			Type:    "validation.path.parameter.missing",
			Message: fmt.Sprintf("The path parameter '%s' is required but was empty.", name),
			Details: map[string]any{
				"parameter": name,
			},
		}
	}
)

// QueryString extracts a string value out of the query parameters of the given request.
// Surrounding whitespace is ignored; an absent value yields def unless required is set.
func QueryString(request *http.Request, key string, required bool, def string) (string, *schema.Error) {
	value := strings.TrimSpace(request.URL.Query().Get(key))
	if value == "" {
		if required {
			return "", errQueryParameterMissing(key)
		}
		return def, nil
	}
	return value, nil
}

// PathString extracts a non-empty URL parameter of the route matching the given request
func PathString(request *http.Request, key string) (string, *schema.Error) {
	value := strings.TrimSpace(chi.URLParam(request, key))
	if value == "" {
		return "", errPathParameterMissing(key)
	}
	return value, nil
}
