// Package request decodes and validates JSON request bodies for the API
// handlers.
package request

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/aanand-mishra/globe-markers/internal/types"
	"github.com/aanand-mishra/globe-markers/internal/utils/response"
)

// maxBodyBytes caps request bodies; every payload here is a handful of
// short fields.
const maxBodyBytes = 1 << 16

var validate = newValidator()

// newValidator returns a validator that reports fields by their json tag
// name ("lat") instead of the Go field name ("Lat").
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode reads the JSON body of r into dst and validates it.
//
// Every failure satisfies errors.Is(err, types.ErrMalformedRequest). When
// the body decoded but broke validation rules the error is a
// *ValidationError, so callers can render per-field messages.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))

	err := dec.Decode(dst)
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: request body is empty", types.ErrMalformedRequest)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrMalformedRequest, err)
	}

	// The body must be exactly one JSON value.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: unexpected data after JSON body", types.ErrMalformedRequest)
	}

	if err := validate.Struct(dst); err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) {
			return &ValidationError{Errs: validateErrs}
		}
		return fmt.Errorf("%w: %v", types.ErrMalformedRequest, err)
	}

	return nil
}

// ValidationError is a payload that decoded but broke validation rules.
type ValidationError struct {
	Errs validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", types.ErrMalformedRequest, e.Errs.Error())
}

// Is makes errors.Is(err, types.ErrMalformedRequest) hold.
func (e *ValidationError) Is(target error) bool {
	return target == types.ErrMalformedRequest
}

// WriteError answers a failed Decode with 400 Bad Request, listing the
// offending fields when validation rules were broken.
func WriteError(w http.ResponseWriter, err error) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(vErr.Errs))
		return
	}
	response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
}
