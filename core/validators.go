package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderText  = "only alphanumeric characters and underscores are allowed"
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

	subdomainTag   = "subdomain"
	subdomainText  = "only lowercase letters, digits and inner hyphens are allowed (3 to 32 characters)"
	subdomainRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,30}[a-z0-9]$`)

	irPhoneTag   = "irphone"
	irPhoneText  = "must be a valid Iranian mobile number (09xxxxxxxxx)"
	irPhoneRegex = regexp.MustCompile(`^09[0-9]{9}$`)

	nationalIDTag  = "nationalid"
	nationalIDText = "must be a valid 10-digit national ID"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(alphaNumUnderTag, alphaNumUnderValidation)
	RegisterCustomTranslation(validate, translator, alphaNumUnderTag, alphaNumUnderText)

	_ = validate.RegisterValidation(subdomainTag, subdomainValidation)
	RegisterCustomTranslation(validate, translator, subdomainTag, subdomainText)

	_ = validate.RegisterValidation(irPhoneTag, irPhoneValidation)
	RegisterCustomTranslation(validate, translator, irPhoneTag, irPhoneText)

	_ = validate.RegisterValidation(nationalIDTag, nationalIDValidation)
	RegisterCustomTranslation(validate, translator, nationalIDTag, nationalIDText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// alphaNumUnderValidation only allows alphanumeric characters and underscores.
func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}

// subdomainValidation checks the shape of a tenant subdomain label.
func subdomainValidation(fl validator.FieldLevel) bool {
	return subdomainRegex.MatchString(fl.Field().String())
}

// irPhoneValidation checks an Iranian mobile number. Inputs are expected to be
// digit-normalized (Persian digits already mapped to Latin) before validation.
func irPhoneValidation(fl validator.FieldLevel) bool {
	return irPhoneRegex.MatchString(fl.Field().String())
}

// nationalIDValidation applies the Iranian national ID mod-11 checksum.
func nationalIDValidation(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	if len(id) != 10 {
		return false
	}
	var sum, distinct int
	for i, r := range id {
		if r < '0' || r > '9' {
			return false
		}
		d := int(r - '0')
		if i < 9 {
			sum += d * (10 - i)
		}
		if i > 0 && id[i] != id[0] {
			distinct++
		}
	}
	if distinct == 0 { // 0000000000, 1111111111, ... pass the checksum but are not issued
		return false
	}
	check := int(id[9] - '0')
	r := sum % 11
	if r < 2 {
		return check == r
	}
	return check == 11-r
}
