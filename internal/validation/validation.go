// Package validation wraps a shared struct validator that reports every violated
// constraint as a message and a JSON path instead of failing on the first one.
package validation

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/validator.v9"
	entranslations "gopkg.in/go-playground/validator.v9/translations/en"
)

// validate holds the settings and caches for validating structs.
var validate *validator.Validate

// translator is a cache of locale and translation information.
var translator ut.Translator

// registerMu guards custom tag registration, which the validator requires to happen before use.
var registerMu sync.Mutex

func init() {
	validate = validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ = uni.GetTranslator("en")
	_ = entranslations.RegisterDefaultTranslations(validate, translator)

	// use JSON tag names so paths match the wire shape
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Error is a single violated constraint.
type Error struct {
	Message string   `json:"message"`
	Path    []string `json:"path"`
}

// Errors is the full set of violations for one value.
type Errors []Error

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, v := range e {
		if len(v.Path) == 0 {
			msgs = append(msgs, v.Message)
			continue
		}
		msgs = append(msgs, strings.Join(v.Path, ".")+": "+v.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Register adds a custom validation tag along with the english message used to describe a
// violation. The message may reference the field name with {0}.
func Register(tag string, fn validator.Func, message string) error {
	registerMu.Lock()
	defer registerMu.Unlock()

	if err := validate.RegisterValidation(tag, fn); err != nil {
		return errors.Wrapf(err, "registering validation<%s>", tag)
	}
	registerFn := func(t ut.Translator) error {
		return t.Add(tag, message, true)
	}
	translationFn := func(t ut.Translator, fe validator.FieldError) string {
		msg, err := t.T(fe.Tag(), fe.Field())
		if err != nil {
			return untranslated(fe)
		}
		return msg
	}
	return validate.RegisterTranslation(tag, translator, registerFn, translationFn)
}

// untranslated describes a violation whose tag has no english message.
func untranslated(fe validator.FieldError) string {
	return fmt.Sprintf("%s failed on the '%s' tag", fe.Field(), fe.Tag())
}

// MustRegister is Register for package initialisation.
func MustRegister(tag string, fn validator.Func, message string) {
	if err := Register(tag, fn, message); err != nil {
		panic(err)
	}
}

// Struct validates a struct against its `validate` tags. Paths are prefixed with root.
func Struct(val any, root ...string) Errors {
	if err := validate.Struct(val); err != nil {
		var vErrors validator.ValidationErrors
		if !errors.As(err, &vErrors) {
			return Errors{{Message: err.Error(), Path: root}}
		}
		out := make(Errors, 0, len(vErrors))
		for _, vError := range vErrors {
			out = append(out, Error{
				Message: vError.Translate(translator),
				Path:    append(append([]string{}, root...), namespacePath(vError.Namespace())...),
			})
		}
		return out
	}
	return nil
}

// Decode converts an arbitrary decoded value (typically a map produced by a JSON or CBOR decoder)
// into out, then validates it.
func Decode(in any, out any, root ...string) Errors {
	if errs := Convert(in, out, root...); len(errs) > 0 {
		return errs
	}
	return Struct(out, root...)
}

// Convert copies an arbitrary decoded value into out without validating it. A value of the wrong
// shape is reported as a single violation.
func Convert(in any, out any, root ...string) Errors {
	if in == nil {
		return Errors{{Message: "Required", Path: root}}
	}
	b, err := json.Marshal(in)
	if err != nil {
		return Errors{{Message: err.Error(), Path: root}}
	}
	if err = json.Unmarshal(b, out); err != nil {
		path := append([]string{}, root...)
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			if typeErr.Field != "" {
				path = append(path, strings.Split(typeErr.Field, ".")...)
			}
			return Errors{{Message: "Expected " + typeErr.Type.String() + ", received " + typeErr.Value, Path: path}}
		}
		return Errors{{Message: err.Error(), Path: path}}
	}
	return nil
}

// namespacePath turns "Type.field[0].other" into ["field", "0", "other"], dropping the root type name.
func namespacePath(ns string) []string {
	parts := strings.Split(ns, ".")
	if len(parts) > 0 {
		parts = parts[1:]
	}
	var path []string
	for _, part := range parts {
		for {
			open := strings.IndexByte(part, '[')
			if open < 0 {
				if part != "" {
					path = append(path, part)
				}
				break
			}
			if open > 0 {
				path = append(path, part[:open])
			}
			end := strings.IndexByte(part, ']')
			if end < open {
				path = append(path, part[open:])
				break
			}
			idx := part[open+1 : end]
			if _, err := strconv.Atoi(idx); err == nil {
				path = append(path, idx)
			} else {
				path = append(path, strings.Trim(idx, `"'`))
			}
			part = part[end+1:]
		}
	}
	return path
}
