package models

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks a request payload against its validate tags.
func Validate(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
