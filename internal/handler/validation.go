package handler

import (
	"sync"

	"salesdesk/internal/model"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the `grade` binding tag to gin's validator.
// Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("grade", func(fl validator.FieldLevel) bool {
			return model.Grade(fl.Field().String()).Valid()
		})
	})
}
