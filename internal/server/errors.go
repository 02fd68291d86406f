package server

import (
	"encoding/json"
	"net/http"
)

// errorBody is the JSON error response for setup failures, written before
// any streaming begins.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message})
}
