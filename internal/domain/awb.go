package domain

import (
	"errors"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultWeight is the parcel weight used when settings carry none
const DefaultWeight = 1.00

// WeightThreshold is the computed weight at or below which the default weight is sent
const WeightThreshold = 1.00

// DateLayout is the courier's collection date format
const DateLayout = "2006-01-02"

// AWBRequest is the flat new_awb form. Credentials are appended by the client.
type AWBRequest struct {
	RecipientName    string  `form:"destinatar_nume" validate:"required"`
	RecipientContact string  `form:"destinatar_contact" validate:"required"`
	Address          string  `form:"destinatar_adresa" validate:"required"`
	City             string  `form:"destinatar_localitate" validate:"required"`
	County           string  `form:"destinatar_judet" validate:"required"`
	PostalCode       string  `form:"destinatar_cod_postal"`
	Phone            string  `form:"destinatar_telefon" validate:"required"`
	Email            string  `form:"destinatar_email" validate:"omitempty,email"`
	Parcels          int     `form:"colet_buc" validate:"gt=0"`
	Weight           float64 `form:"colet_greutate" validate:"gt=0"`
	CollectionDate   string  `form:"data_colectare" validate:"required,datetime=2006-01-02"`
	InvoiceRef       string  `form:"ref_factura" validate:"required"`
}

// BuildOptions are the settings that shape a generated request
type BuildOptions struct {
	Parcels       int
	DefaultWeight float64
	Now           time.Time
}

// BuildAWBRequest maps an order onto the new_awb form.
// A computed weight at or below WeightThreshold is replaced by the configured default.
func BuildAWBRequest(order *Order, opts BuildOptions) AWBRequest {
	weight := order.TotalWeight()
	if weight <= WeightThreshold {
		weight = opts.DefaultWeight
		if weight <= 0 {
			weight = DefaultWeight
		}
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	name := order.RecipientName()
	return AWBRequest{
		RecipientName:    name,
		RecipientContact: name,
		Address:          order.RecipientAddress(),
		City:             strings.TrimSpace(order.Shipping.City),
		County:           strings.TrimSpace(order.Shipping.State),
		PostalCode:       strings.TrimSpace(order.Shipping.Postcode),
		Phone:            order.RecipientPhone(),
		Email:            strings.TrimSpace(order.Billing.Email),
		Parcels:          opts.Parcels,
		Weight:           weight,
		CollectionDate:   now.UTC().Format(DateLayout),
		InvoiceRef:       order.Number,
	}
}

// ToForm encodes the request as url.Values keyed by the courier field names
func (r AWBRequest) ToForm() url.Values {
	form := url.Values{}
	form.Set("destinatar_nume", r.RecipientName)
	form.Set("destinatar_contact", r.RecipientContact)
	form.Set("destinatar_adresa", r.Address)
	form.Set("destinatar_localitate", r.City)
	form.Set("destinatar_judet", r.County)
	form.Set("destinatar_cod_postal", r.PostalCode)
	form.Set("destinatar_telefon", r.Phone)
	form.Set("destinatar_email", r.Email)
	form.Set("colet_buc", strconv.Itoa(r.Parcels))
	form.Set("colet_greutate", strconv.FormatFloat(r.Weight, 'f', 2, 64))
	form.Set("data_colectare", r.CollectionDate)
	form.Set("ref_factura", r.InvoiceRef)
	return form
}

// Validate checks the request and returns a KindValidation *AWBError keyed by form field
func (r AWBRequest) Validate() error {
	return ValidateStruct(r, "Date AWB invalide")
}

var (
	structValidator *validator.Validate
	validatorOnce   sync.Once
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
		structValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"form", "json"} {
				if name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]; name != "" && name != "-" {
					return name
				}
			}
			return fld.Name
		})
	})
	return structValidator
}

// ValidateStruct runs the validate tags of v and maps failures to a KindValidation *AWBError
func ValidateStruct(v any, message string) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return NewInternalError("validation failed", err)
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return NewValidationError(message, fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "câmp obligatoriu"
	case "gt":
		return "trebuie să fie un număr pozitiv"
	case "email":
		return "adresă de email invalidă"
	case "datetime":
		return "dată invalidă"
	default:
		return "valoare invalidă"
	}
}
