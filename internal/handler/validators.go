package handler

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"payout-service/internal/domain/payout"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators installs the payout tags on gin's validator and makes it
// report JSON field names.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("unexpected gin validator engine")
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		err = v.RegisterValidation("payout_currency", validateCurrency)
	})
	return err
}

func validateCurrency(fl validator.FieldLevel) bool {
	_, err := payout.NormalizeCurrency(fl.Field().String())
	return err == nil
}

func jsonFieldName(field reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return field.Name
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "payout_currency":
		return "unsupported currency"
	case "max":
		if fe.Kind() == reflect.String {
			return "ensure this field has no more than " + fe.Param() + " characters"
		}
		return "ensure this value is less than or equal to " + fe.Param()
	case "min":
		return "ensure this value is greater than or equal to " + fe.Param()
	case "url":
		return "enter a valid URL"
	}
	return "failed on " + fe.Tag()
}
