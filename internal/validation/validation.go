// Package validation turns binding failures into per-field details
// addressed by JSON path.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Detail is one invalid field. Path holds object keys (string) and array
// indexes (int) from the document root.
type Detail struct {
	Path    []any  `json:"path"`
	Message string `json:"message"`
}

var setupOnce sync.Once

// Setup makes the gin validator report JSON field names.
func Setup() {
	setupOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(jsonFieldName)
		}
	})
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	default:
		return name
	}
}

// Field builds a single detail for path.
func Field(message string, path ...any) Detail {
	if path == nil {
		path = []any{}
	}
	return Detail{Path: path, Message: message}
}

// Details translates err into field details. It returns nil when err is
// not a validation or decoding failure.
func Details(err error) []Detail {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]Detail, 0, len(validationErrs))
		for _, fe := range validationErrs {
			details = append(details, Detail{
				Path:    namespacePath(fe.Namespace()),
				Message: message(fe),
			})
		}
		return details
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []Detail{Field(
			fmt.Sprintf("Expected %s, received %s", jsonKind(typeErr.Type), typeErr.Value),
			dottedPath(typeErr.Field)...,
		)}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return []Detail{Field("Malformed JSON body")}
	}

	if errors.Is(err, io.EOF) {
		return []Detail{Field("Request body is required")}
	}

	return nil
}

// namespacePath converts "Type.context.items[2].name" into
// ["context", "items", 2, "name"].
func namespacePath(ns string) []any {
	if _, rest, found := strings.Cut(ns, "."); found {
		return dottedPath(rest)
	}
	return []any{}
}

func dottedPath(dotted string) []any {
	path := []any{}
	if dotted == "" {
		return path
	}

	for _, segment := range strings.Split(dotted, ".") {
		for segment != "" {
			open := strings.IndexByte(segment, '[')
			if open < 0 {
				path = append(path, segment)
				break
			}
			if open > 0 {
				path = append(path, segment[:open])
			}

			end := strings.IndexByte(segment[open:], ']')
			if end < 0 {
				path = append(path, segment[open:])
				break
			}
			index := segment[open+1 : open+end]
			if n, err := strconv.Atoi(index); err == nil {
				path = append(path, n)
			} else {
				path = append(path, index)
			}
			segment = segment[open+end+1:]
		}
	}
	return path
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "url":
		return "Invalid url"
	case "uuid":
		return "Invalid uuid"
	case "datetime":
		return "Invalid datetime"
	case "oneof":
		options := strings.Fields(fe.Param())
		return "Invalid enum value. Expected '" + strings.Join(options, "' | '") + "'"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("String must contain at least %s character(s)", fe.Param())
		}
		return fmt.Sprintf("Number must be greater than or equal to %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("String must contain at most %s character(s)", fe.Param())
		}
		return fmt.Sprintf("Number must be less than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("Failed %s validation", fe.Tag())
	}
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct, reflect.Map, reflect.Pointer:
		return "object"
	default:
		return t.String()
	}
}
