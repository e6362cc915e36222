package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/madrasa/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

var orgCode = regexp.MustCompile(`^[A-Z][A-Z0-9]{2,19}$`)

// SetupValidator reports fields by their json name and registers the
// custom tags used by the request DTOs:
//
//	org_code  organization code, 3-20 upper-case alphanumerics
//	amount    decimal greater than zero
//	amount0   decimal zero or greater
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	registerValidations(v)
}

func registerValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	_ = v.RegisterValidation("org_code", func(fl validator.FieldLevel) bool {
		return orgCode.MatchString(strings.ToUpper(fl.Field().String()))
	})
	// decimals reach the validators as their string form
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		d, ok := decimalOf(fl.Field())
		return ok && d.IsPositive()
	})
	_ = v.RegisterValidation("amount0", func(fl validator.FieldLevel) bool {
		d, ok := decimalOf(fl.Field())
		return ok && !d.IsNegative()
	})
}

func decimalOf(f reflect.Value) (decimal.Decimal, bool) {
	if f.Kind() != reflect.String {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(f.String())
	return d, err == nil
}

// BindError answers a request whose body or query failed to bind
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]dto.ValidationDetail, 0, len(verrs))
		for _, e := range verrs {
			details = append(details, dto.ValidationDetail{Field: e.Field(), Message: validationMessage(e)})
		}
		c.AbortWithStatusJSON(http.StatusBadRequest,
			dto.Fail(dto.ErrCodeValidation, "Request validation failed", RequestID(c), details...))
		return
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		Abort(c, http.StatusRequestEntityTooLarge, dto.ErrCodeTooLarge, "Request body too large")
		return
	}
	Abort(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Malformed request: "+err.Error())
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "datetime":
		return "Must be a date in the format " + e.Param()
	case "org_code":
		return "Must be 3-20 letters or digits, starting with a letter"
	case "amount":
		return "Must be a positive amount"
	case "amount0":
		return "Must not be negative"
	case "dive":
		return "Invalid item"
	default:
		return "Invalid value"
	}
}
