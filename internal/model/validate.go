package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// TaskInput is the user-supplied part of a new task.
type TaskInput struct {
	Title string `validate:"required,max=200"`
	Due   string `validate:"omitempty,datetime=2006-01-02"`
}

// MealInput is the user-supplied part of a new meal.
type MealInput struct {
	Name     string `validate:"required,max=120"`
	Calories int    `validate:"gte=0,lte=20000"`
}

// WaterInput is the user-supplied part of a new water log.
type WaterInput struct {
	AmountML int `validate:"gt=0,lte=10000"`
}

// GoalsInput holds daily goal edits.
type GoalsInput struct {
	WaterML  int `validate:"gt=0,lte=20000"`
	Calories int `validate:"gt=0,lte=20000"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks v against its struct tags and returns a readable error
// listing every failing field.
func Validate(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, describeFieldError(fe))
	}
	return fmt.Errorf("invalid input: %s", strings.Join(parts, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	name := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date like %s", name, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", name, fe.Tag())
	}
}
