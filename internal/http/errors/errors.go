// Package errors serializa los errores HTTP del broker con la forma
// {"error":{"type":"NO_AUTH"|"SERVICE_ERROR"}}.
package errors

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Type string `json:"type"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// WriteError escribe la respuesta para err. Nunca serializa la causa.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(appErr.HTTPStatus)

	_ = json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Type: appErr.Type}})
}
