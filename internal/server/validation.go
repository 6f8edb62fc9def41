package server

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Djibouti mobile numbers: optional +253 prefix, then 77 and six digits.
var djPhonePattern = regexp.MustCompile(`^(\+253)?77[0-9]{6}$`)

func djPhone(fl validator.FieldLevel) bool {
	return djPhonePattern.MatchString(fl.Field().String())
}

// RegisterValidators installs custom binding validators on gin's engine.
// Must run before the first request is bound.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("djphone", djPhone)
	}
}
