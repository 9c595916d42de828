package validation

import (
	"github.com/go-playground/validator/v10"

	"github.com/tablerank/tablerank/pkg/models"
)

// PriceBucket is the binding validator behind the "pricebucket" tag.
func PriceBucket(fl validator.FieldLevel) bool {
	return models.PriceBucketIndex(fl.Field().String()) >= 0
}

// RegisterValidators installs the custom binding validators.
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation("pricebucket", PriceBucket)
}
