package api

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"pushdispatch.app/pkg/errors"
)

var (
	platformPattern = regexp.MustCompile(`^[A-Za-z]{1,32}$`)

	validatorsOnce sync.Once
	validatorsErr  error
)

// registerValidators adds the custom binding rules to gin's validator.
func registerValidators() error {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			validatorsErr = errors.NewConfigurationError("unexpected binding validator engine", nil)
			return
		}
		validatorsErr = v.RegisterValidation("platform", validatePlatform)
	})
	return validatorsErr
}

// validatePlatform accepts a short alphabetic platform name. Unrecognized
// names are stored as unknown rather than rejected.
func validatePlatform(fl validator.FieldLevel) bool {
	return platformPattern.MatchString(fl.Field().String())
}
