package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strconv"
	"strings"

	"evolv/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// identityFields may never be supplied by clients; identity comes from the token.
var identityFields = []string{"userId", "user_id", "authorId"}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldCodes maps a JSON field to its {missing, invalid} error codes.
type fieldCodes map[string][2]string

func (fc fieldCodes) missing(field string) error {
	code := fc[field][0]
	if code == "" {
		code = "MISSING_REQUIRED_FIELD"
	}
	return domain.Invalid(code, field+" is required")
}

func (fc fieldCodes) invalid(field string) error {
	code := fc[field][1]
	if code == "" {
		code = "INVALID_" + strings.ToUpper(field)
	}
	return domain.Invalid(code, "Invalid value for "+field)
}

// bindBody decodes the JSON body into dst and validates it. An empty body is
// treated as an empty object. On failure the error response is written and
// false is returned.
func bindBody(c *gin.Context, dst interface{}, codes fieldCodes) bool {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, domain.Invalid("INVALID_BODY", "Request body could not be read"))
		return false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		writeError(c, domain.Invalid("INVALID_BODY", "Request body must be a JSON object"))
		return false
	}
	for _, name := range identityFields {
		if _, ok := fields[name]; ok {
			writeError(c, domain.Invalid("USER_ID_NOT_ALLOWED", "User ID cannot be provided in request body"))
			return false
		}
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			writeError(c, codes.invalid(strings.SplitN(typeErr.Field, ".", 2)[0]))
			return false
		}
		writeError(c, domain.Invalid("INVALID_BODY", "Request body must be a JSON object"))
		return false
	}

	return validateStruct(c, dst, codes)
}

func validateStruct(c *gin.Context, dst interface{}, codes fieldCodes) bool {
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			field := fe.Field()
			switch i := strings.IndexByte(field, '['); {
			case i >= 0:
				// A bad element makes the whole list invalid.
				writeError(c, codes.invalid(field[:i]))
			case fe.Tag() == "required":
				writeError(c, codes.missing(field))
			default:
				writeError(c, codes.invalid(field))
			}
			return false
		}
		writeError(c, err)
		return false
	}
	return true
}

// stringList flattens a decoded list whose elements were checked non-null.
func stringList(in []*string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = *v
	}
	return out
}

// queryInt parses an optional integer query parameter; absent yields 0.
func queryInt(c *gin.Context, name, code string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(c, domain.Invalid(code, "Invalid "+name+" parameter. Must be an integer"))
		return 0, false
	}
	return n, true
}
