package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// NewValidator returns a validator that reports json field names and compares
// decimal.Decimal fields numerically, so tags like gt=0 work on money.
func NewValidator() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	v.RegisterStructValidation(validateCents, PaymentRequest{}, PaymentDTO{}, ArticleDTO{})

	return v
}

// validateCents rejects money with sub-cent precision; the store keeps two
// decimal places.
func validateCents(sl validatorv10.StructLevel) {
	var (
		value decimal.Decimal
		field string
		name  string
	)
	switch dto := sl.Current().Interface().(type) {
	case PaymentRequest:
		value, field, name = dto.Amount, "amount", "Amount"
	case PaymentDTO:
		value, field, name = dto.Amount, "amount", "Amount"
	case ArticleDTO:
		value, field, name = dto.Price, "price", "Price"
	default:
		return
	}
	if !value.Equal(value.Round(2)) {
		sl.ReportError(value, field, name, "cents", "")
	}
}

// BindAndValidate binds the JSON body into out and runs validation. On failure
// it writes the 400 response and returns the error so the handler can stop.
func BindAndValidate(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := Bind(c, out); err != nil {
		return err
	}
	return Validate(c, out, v)
}

func Bind(c *gin.Context, out interface{}) error {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request_body",
			"message": err.Error(),
		})
		return err
	}
	return nil
}

func Validate(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := v.Struct(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation_failed",
			"fields": validationErrorsToMap(err),
		})
		return err
	}
	return nil
}

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fe.Namespace()] = fe.Error()
		}
	} else {
		out["error"] = err.Error()
	}
	return out
}
