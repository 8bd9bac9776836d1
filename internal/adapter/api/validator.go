package api

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"

	"studyhub/pkg/errors"
)

// CustomValidator plugs validator v10 into echo's c.Validate and renders
// failures as English sentences keyed by the JSON field name.
type CustomValidator struct {
	validator *validator.Validate
	trans     ut.Translator
}

func NewValidator() *CustomValidator {
	locale := en.New()
	uni := ut.New(locale, locale)
	trans, _ := uni.GetTranslator("en")

	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	_ = entranslations.RegisterDefaultTranslations(v, trans)

	return &CustomValidator{validator: v, trans: trans}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return errors.Validation("Invalid input data", err)
	}
	return errors.Validation(verrs[0].Translate(cv.trans), verrs)
}
