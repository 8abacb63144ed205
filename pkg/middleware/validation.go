package middleware

import (
	stderrors "errors"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Upcasted/optimus-courier/pkg/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var (
	awbNumberRegex   = regexp.MustCompile(`^[A-Za-z0-9]{4,32}$`)
	orderStatusRegex = regexp.MustCompile(`^(wc-)?[a-z0-9][a-z0-9_-]{0,39}$`)
	safeStringRegex  = regexp.MustCompile("^[^\x00<>]*$")
)

func registerCustom(v *validator.Validate) {
	_ = v.RegisterValidation("awb_number", validateAWBNumber)
	_ = v.RegisterValidation("order_status", validateOrderStatus)
	_ = v.RegisterValidation("safe_string", validateSafeString)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
}

// InitValidator registers the custom validations on a package validator and on gin's binding engine
func InitValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		registerCustom(validate)

		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			registerCustom(v)
		}
	})

	return validate
}

// GetValidator returns the singleton validator instance
func GetValidator() *validator.Validate {
	return InitValidator()
}

func validateAWBNumber(fl validator.FieldLevel) bool {
	return awbNumberRegex.MatchString(fl.Field().String())
}

func validateOrderStatus(fl validator.FieldLevel) bool {
	return orderStatusRegex.MatchString(fl.Field().String())
}

func validateSafeString(fl validator.FieldLevel) bool {
	return safeStringRegex.MatchString(fl.Field().String())
}

// ValidationErrorFormatter formats validation errors into a field -> message map
func ValidationErrorFormatter(err error) map[string]string {
	fields := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if stderrors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			fields[e.Field()] = formatValidationError(e)
		}
	}

	return fields
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "câmp obligatoriu"
	case "gt":
		return "trebuie să fie mai mare decât " + e.Param()
	case "gte", "min":
		return "trebuie să fie cel puțin " + e.Param()
	case "lte", "max":
		return "trebuie să fie cel mult " + e.Param()
	case "email":
		return "adresă de email invalidă"
	case "url":
		return "URL invalid"
	case "awb_number":
		return "număr AWB invalid"
	case "order_status":
		return "status de comandă invalid"
	case "safe_string":
		return "conține caractere nepermise"
	case "oneof":
		return "trebuie să fie una dintre valorile: " + e.Param()
	case "dive":
		return "listă invalidă"
	default:
		return "valoare invalidă"
	}
}

// BindAndValidate binds the JSON request body and validates it
func BindAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	if err := c.ShouldBindJSON(obj); err != nil {
		var validationErrors validator.ValidationErrors
		if stderrors.As(err, &validationErrors) {
			return errors.ErrValidationWithFields("Date invalide", ValidationErrorFormatter(validationErrors))
		}
		return errors.ErrBadRequest("invalid request body: " + err.Error())
	}
	return nil
}

// ValidateStruct validates a struct using the shared validator
func ValidateStruct(obj interface{}) *errors.AppError {
	if err := GetValidator().Struct(obj); err != nil {
		var validationErrors validator.ValidationErrors
		if stderrors.As(err, &validationErrors) {
			return errors.ErrValidationWithFields("Date invalide", ValidationErrorFormatter(validationErrors))
		}
		return errors.ErrBadRequest("validation failed: " + err.Error())
	}
	return nil
}

// SanitizeString strips null bytes and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

// InputSanitizer middleware sanitizes query parameters
func InputSanitizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Request.URL.Query()
		for key, values := range query {
			for i, v := range values {
				values[i] = SanitizeString(v)
			}
			query[key] = values
		}
		c.Request.URL.RawQuery = query.Encode()

		c.Next()
	}
}

// ContentType rejects non-JSON bodies on write methods. Empty bodies pass.
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			contentType := c.GetHeader("Content-Type")
			if c.Request.ContentLength > 0 && !strings.HasPrefix(contentType, "application/json") {
				AbortWithAppError(c, &errors.AppError{
					Code:       "INVALID_CONTENT_TYPE",
					Message:    "Content-Type must be application/json",
					HTTPStatus: http.StatusUnsupportedMediaType,
				})
				return
			}
		}
		c.Next()
	}
}
