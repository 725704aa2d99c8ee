package handler

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// future validates that a time.Time field lies in the future. Used for event
// scheduling so listings can't be created already ended.
func future(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return value.After(time.Now())
}

func RegisterValidation() error {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		return v.RegisterValidation("future", future)
	}
	return fmt.Errorf("error getting validation engine")
}
