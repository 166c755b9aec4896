// Package docs serves the hand-maintained OpenAPI document for the Swagger UI.
package docs

import (
	_ "embed"
	"net/http"
)

//go:embed openapi.json
var openAPI []byte

// SpecHandler отдает openapi.json для /swagger/doc.json
func SpecHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPI)
}
