package dto

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	handleRe      = regexp.MustCompile(`^[\w.+-]+@[\w.-]+$`)
	phoneRe       = regexp.MustCompile(`^[0-9]{10}$`)
	ifscRe        = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	accountNumRe  = regexp.MustCompile(`^[0-9]{9,18}$`)
	validatorTags = map[string]*regexp.Regexp{
		"upi_handle":  handleRe,
		"phone10":     phoneRe,
		"ifsc":        ifscRe,
		"acct_number": accountNumRe,
	}
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterValidators(v)
	}
}

// RegisterValidators adds the custom tags to v.
func RegisterValidators(v *validator.Validate) {
	for tag, re := range validatorTags {
		_ = v.RegisterValidation(tag, matcher(re))
	}
}

func matcher(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// SanitizeStruct trims surrounding whitespace from every exported string
// field (including *string) of a struct pointer. Content is left as sent;
// JSON rendering escapes HTML on the way out.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String()))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			if elem := f.Elem(); elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String()))
			}
		}
	}
}

func sanitize(s string) string {
	return strings.TrimSpace(s)
}
