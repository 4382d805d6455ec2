package console

import (
	"fmt"

	"github.com/MasterLKH180cm/keycloak-poc/internal/api/schema"
	"github.com/MasterLKH180cm/keycloak-poc/internal/harness"
)

var (
	errUnknownCategory = func(name string) *schema.Error {
		categories := make([]string, 0, len(harness.Categories))
		for _, category := range harness.Categories {
			categories = append(categories, string(category))
		}
		return &schema.Error{
			Type:    "console.category.unknown",
			Message: fmt.Sprintf("The response category '%s' does not exist.", name),
			Details: map[string]any{
				"category":  name,
				"available": categories,
			},
		}
	}
)
