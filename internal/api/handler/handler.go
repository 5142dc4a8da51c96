// Package handler provides HTTP handlers for the delivery API.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/simbok/delivery/internal/api/models"
	"github.com/simbok/delivery/internal/api/response"
)

// maxBodyBytes caps request bodies; every request type is a handful of fields.
const maxBodyBytes = 64 << 10

// validatable is a request body that can report field errors.
type validatable interface {
	Validate() []models.FieldError
}

// decode reads a JSON body into dst and validates it. On failure it writes a
// 400 problem and returns false.
func decode(w http.ResponseWriter, r *http.Request, dst validatable) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, r, decodeDetail(err), nil)
		return false
	}
	if errs := dst.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "request has invalid fields", errs)
		return false
	}
	return true
}

func decodeDetail(err error) string {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		maxErr    *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return "request body is empty"
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type)
	case errors.As(err, &maxErr):
		return "request body is too large"
	default:
		return "request body is not valid JSON"
	}
}
