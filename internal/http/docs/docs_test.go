package docs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenAPIHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	OpenAPIHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/yaml")

	body := rr.Body.String()
	assert.Contains(t, body, "openapi: 3.0.3")
	assert.Contains(t, body, "/api/messages:")
	assert.Contains(t, body, "/api/healthz:")
	assert.Equal(t, GetSpecBytes(), rr.Body.Bytes())
}

func TestScalarDocsHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	ScalarDocsHandler("/openapi.yaml").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/docs", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")

	body := rr.Body.String()
	assert.Contains(t, body, "AWS Examples API Reference")
	assert.Contains(t, body, "@scalar/api-reference")
	assert.Contains(t, body, `data-url="/openapi.yaml"`)
}
