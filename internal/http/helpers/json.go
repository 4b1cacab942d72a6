package helpers

import (
	"encoding/json"
	"io"
	"net/http"
)

const maxJSONBody = 16 << 10

// ReadJSON decodifica el body (limitado) en dst. Campos desconocidos se ignoran.
func ReadJSON(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(dst)
}

// WriteJSON escribe v con el status dado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
