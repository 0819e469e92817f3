package handler

import "github.com/go-playground/validator/v10"

// Validator adapts validator.Validate to echo.Validator so handlers can call
// c.Validate on bound request bodies.
type Validator struct {
    v *validator.Validate
}

func NewValidator(v *validator.Validate) *Validator {
    return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
    return cv.v.Struct(i)
}
