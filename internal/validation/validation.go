// Package validation registers the custom binding tags used by request
// structs.
package validation

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"twitter_api/internal/store"
)

var once sync.Once

// Register installs the custom tags on gin's validator. Safe to call more
// than once.
func Register() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			logrus.Warn("binding validator is not go-playground/validator, custom tags not registered")
			return
		}
		if err := v.RegisterValidation("isodate", isoDate); err != nil {
			logrus.WithError(err).Fatal("Failed to register isodate validation")
		}
	})
}

// isoDate accepts a YYYY-MM-DD calendar date.
func isoDate(fl validator.FieldLevel) bool {
	_, err := store.ParseDate(fl.Field().String())
	return err == nil
}
