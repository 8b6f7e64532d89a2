package framework

import (
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/tbd54566975/cwt-verifier/internal/validation"
)

// Decode reads an HTTP request body looking for a JSON document.
// The body is decoded into the value provided.
//
// The provided value is checked for validation tags if it's a struct.
func Decode(r *http.Request, val any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return NewRequestError(errors.New("request body is empty"), http.StatusBadRequest)
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(val); err != nil {
		return NewRequestError(err, http.StatusBadRequest)
	}
	return ValidateRequest(val)
}

// ValidateRequest checks a decoded request against its validation tags, reporting every invalid field.
func ValidateRequest(val any) error {
	errs := validation.Struct(val)
	if len(errs) == 0 {
		return nil
	}

	fieldErrors := make([]FieldError, 0, len(errs))
	for _, vError := range errs {
		fieldErrors = append(fieldErrors, FieldError{
			Field: strings.Join(vError.Path, "."),
			Error: vError.Message,
		})
	}
	return &SafeError{
		Err:        errors.New("field validation error"),
		StatusCode: http.StatusBadRequest,
		Fields:     fieldErrors,
	}
}
