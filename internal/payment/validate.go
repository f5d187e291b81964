package payment

import (
	"fmt"
	"regexp"
	"sync"

	validator "github.com/go-playground/validator/v10"
)

// payAddrPattern is the base32 payment address shape (58 chars, RFC 4648 alphabet).
var payAddrPattern = regexp.MustCompile(`^[A-Z2-7]{58}$`)

var (
	paramsValidatorOnce sync.Once
	paramsValidator     *validator.Validate
)

func validatorInstance() *validator.Validate {
	paramsValidatorOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("payaddr", func(fl validator.FieldLevel) bool {
			return payAddrPattern.MatchString(fl.Field().String())
		})
		paramsValidator = v
	})
	return paramsValidator
}

// ValidateParams applies the payment parameter gate: a positive amount in the
// smallest currency unit and a well-formed payment address.
func ValidateParams(p Params) error {
	if err := validatorInstance().Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}
