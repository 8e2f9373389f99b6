package apidoc_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/taxi-analytics/backend/apidoc"
	"github.com/pkordes/taxi-analytics/backend/internal/handler"
)

// TestOpenAPI_DocumentsEveryRoute keeps the served document in step with the
// router: every registered path and method must appear in openapi.yaml.
func TestOpenAPI_DocumentsEveryRoute(t *testing.T) {
	doc := string(apidoc.OpenAPI)
	require.True(t, strings.HasPrefix(doc, "openapi: 3."))

	r := chi.NewRouter()
	handler.NewServer(nil, nil, nil, nil).Register(r)

	err := chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if route == "/openapi.yaml" {
			return nil
		}
		path := strings.TrimSuffix(route, "/")
		assert.Contains(t, doc, "\n  "+path+":\n", "path %s missing", path)

		opening := strings.Index(doc, "\n  "+path+":\n")
		if opening < 0 {
			return nil
		}
		section := doc[opening+1:]
		if next := strings.Index(section[2:], "\n  /"); next >= 0 {
			section = section[:next+2]
		}
		assert.Contains(t, section, "    "+strings.ToLower(method)+":", "%s %s missing", method, path)
		return nil
	})
	require.NoError(t, err)
}
