package validation

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryString(t *testing.T) {
	request := httptest.NewRequest("GET", "/?study=%20chest%20&empty=", nil)

	value, err := QueryString(request, "study", true, "")
	require.Nil(t, err)
	assert.Equal(t, "chest", value)

	value, err = QueryString(request, "empty", false, "fallback")
	require.Nil(t, err)
	assert.Equal(t, "fallback", value)

	_, err = QueryString(request, "missing", true, "")
	require.NotNil(t, err)
	assert.Equal(t, "validation.query.parameter.missing", err.Type)
}

func TestPathString(t *testing.T) {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("appType", "viewer")
	request := httptest.NewRequest("GET", "/", nil)
	request = request.WithContext(context.WithValue(request.Context(), chi.RouteCtxKey, routeCtx))

	value, err := PathString(request, "appType")
	require.Nil(t, err)
	assert.Equal(t, "viewer", value)

	_, err = PathString(request, "studyId")
	require.NotNil(t, err)
	assert.Equal(t, "studyId", err.Details["parameter"])
}
