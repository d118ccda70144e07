package http

import (
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/skymap/geom"
	"github.com/segmentio/encoding/json"
)

// ErrorResponse is the body of failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		InternalServerError(w, errors.New("encoding response failed").Wrap(err))
		return
	}
	writeJSONBytes(w, status, b)
}

func writeJSONBytes(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

// WriteError writes err with a status code matching its type. Server side
// failures are logged.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case geom.IsNotFound(err):
		writeError(w, http.StatusNotFound, err)

	case geom.IsDomainError(err), geom.IsConfigError(err):
		BadRequest(w, err)

	default:
		InternalServerError(w, err)
	}
}

// BadRequest writes a 400 response.
func BadRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, err)
}

// InternalServerError logs err and writes a 500 response.
func InternalServerError(w http.ResponseWriter, err error) {
	logs.Error(err)
	writeError(w, http.StatusInternalServerError, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	b, _ := json.Marshal(ErrorResponse{
		Error: err.Error(),
		Type:  errors.Type(err),
	})
	writeJSONBytes(w, status, b)
}
