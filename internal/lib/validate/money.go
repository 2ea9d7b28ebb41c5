package validate

import (
	"math"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Money — денежная сумма из тела запроса. Нечисловое значение не прерывает
// разбор JSON, а дает нарушение правила amount по этому полю.
type Money struct {
	decimal.Decimal
	invalid bool
}

// NewMoney оборачивает уже проверенное значение.
func NewMoney(d decimal.Decimal) *Money {
	return &Money{Decimal: d}
}

// UnmarshalJSON принимает число или числовую строку, остальное помечает как invalid
func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		m.Decimal = decimal.Zero
		m.invalid = true
		return nil
	}
	m.Decimal = d
	m.invalid = false
	return nil
}

// Valid сообщает, удалось ли разобрать значение
func (m *Money) Valid() bool {
	return m != nil && !m.invalid
}

// Round округляет до двух знаков, как хранит NUMERIC(10,2)
func (m *Money) Round() {
	if m.Valid() {
		m.Decimal = m.Decimal.Round(2)
	}
}

// неразобранная сумма превращается в NaN, его отсекает правило amount
func moneyValue(field reflect.Value) any {
	m, ok := field.Interface().(Money)
	if !ok || m.invalid {
		return math.NaN()
	}
	f, _ := m.Float64()
	return f
}

func isAmount(fl validator.FieldLevel) bool {
	f := fl.Field()
	if f.Kind() != reflect.Float64 {
		return false
	}
	return !math.IsNaN(f.Float())
}
