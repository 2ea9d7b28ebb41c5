// Package validate настраивает go-playground/validator под JSON-имена полей
// и денежные значения shopspring/decimal.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Violation — одно нарушенное правило для конкретного поля
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New возвращает валидатор, который сообщает об ошибках по json-именам полей.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// decimal сравниваем как float64, чтобы работали gt/gte
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterCustomTypeFunc(moneyValue, Money{})
	// ошибка возможна только для пустого имени тега
	_ = v.RegisterValidation("amount", isAmount)
	return v
}

// Violations раскладывает ошибку валидатора на список нарушений.
// Второе значение false, если err не является ошибкой валидации.
func Violations(err error) ([]Violation, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	out := make([]Violation, 0, len(verrs))
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		out = append(out, Violation{Field: field, Message: message(field, fe)})
	}
	return out, true
}

// TypeViolation переводит ошибку типа из encoding/json в нарушение по полю.
// Путь err.Field не содержит индексов массивов: items.quantity.
func TypeViolation(err *json.UnmarshalTypeError) Violation {
	field := err.Field
	if field == "" {
		field = "body"
	}
	return Violation{Field: field, Message: fmt.Sprintf("%s must be of type %s", field, err.Type)}
}

// отбрасываем имя корневой структуры: PlaceOrderRequest.shippingInfo.email -> shippingInfo.email
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s may not be greater than %s characters", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "amount":
		return fmt.Sprintf("%s must be a number", field)
	case "lte":
		return fmt.Sprintf("%s may not be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
