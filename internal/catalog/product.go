package catalog

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxStock is the largest stock value accepted from the admin form.
const MaxStock = 9999

var (
	// ErrNotFound indicates the product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInvalidProduct indicates the product payload failed validation.
	ErrInvalidProduct = errors.New("invalid product")
)

// DiscountTier grants Rate off the line subtotal once the line quantity reaches Quantity.
type DiscountTier struct {
	Quantity int             `json:"quantity"`
	Rate     decimal.Decimal `json:"rate"`
}

// Product is a catalog entry. Price is expressed in minor currency units.
type Product struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Price         int64          `json:"price"`
	Stock         int            `json:"stock"`
	Discounts     []DiscountTier `json:"discounts"`
	Description   string         `json:"description,omitempty"`
	IsRecommended bool           `json:"isRecommended"`
}

// Clone returns a deep copy so callers can never share the discount slice.
func (p Product) Clone() Product {
	out := p
	if p.Discounts != nil {
		out.Discounts = make([]DiscountTier, len(p.Discounts))
		copy(out.Discounts, p.Discounts)
	}
	return out
}

// Validate checks the structural invariants of a product.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fieldError("name", "상품명을 입력해주세요.")
	}
	if p.Price <= 0 {
		return fieldError("price", priceNotPositive)
	}
	if p.Stock < 0 {
		return fieldError("stock", stockNotPositive)
	}
	if p.Stock > MaxStock {
		return fieldError("stock", stockTooLarge)
	}
	one := decimal.NewFromInt(1)
	for _, tier := range p.Discounts {
		if tier.Quantity <= 0 {
			return fieldError("discounts", "할인 기준 수량은 1 이상이어야 합니다.")
		}
		if tier.Rate.IsNegative() || tier.Rate.GreaterThanOrEqual(one) {
			return fieldError("discounts", "할인율은 0 이상 1 미만이어야 합니다.")
		}
	}
	return nil
}

// FieldError describes a single invalid product field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

// Unwrap lets callers match ErrInvalidProduct.
func (e *FieldError) Unwrap() error { return ErrInvalidProduct }

func fieldError(field, message string) error {
	return &FieldError{Field: field, Message: message}
}

const (
	numbersOnly      = "숫자만 입력"
	priceNotPositive = "가격은 0보다 커야 합니다."
	stockNotPositive = "재고는 0보다 커야 합니다"
	stockTooLarge    = "재고는 9999개를 초과할 수 없습니다"
)

// FieldCheck is the outcome of validating a raw numeric form value.
// Corrected is the value the form field should be reset to.
type FieldCheck struct {
	Valid     bool   `json:"valid"`
	Message   string `json:"message,omitempty"`
	Corrected int64  `json:"corrected"`
}

// ValidatePrice checks a raw price input. An empty input is valid and means zero.
// Prices that do not fit in Money are treated as non-numeric.
func ValidatePrice(raw string) FieldCheck {
	value, status := parseLeadingInt(raw)
	switch {
	case status == inputEmpty:
		return FieldCheck{Valid: true}
	case status != inputNumber:
		return FieldCheck{Message: numbersOnly}
	case value <= 0:
		return FieldCheck{Message: priceNotPositive}
	}
	return FieldCheck{Valid: true, Corrected: value}
}

// ValidateStock checks a raw stock input and clamps values above MaxStock,
// including values too large to parse.
func ValidateStock(raw string) FieldCheck {
	value, status := parseLeadingInt(raw)
	switch {
	case status == inputEmpty:
		return FieldCheck{Valid: true}
	case status == inputInvalid:
		return FieldCheck{Message: numbersOnly}
	case value <= 0:
		return FieldCheck{Message: stockNotPositive}
	case status == inputOverflow || value > MaxStock:
		return FieldCheck{Message: stockTooLarge, Corrected: MaxStock}
	}
	return FieldCheck{Valid: true, Corrected: value}
}

type inputStatus int

const (
	inputNumber inputStatus = iota
	inputEmpty
	inputInvalid
	inputOverflow
)

// parseLeadingInt mirrors a lenient form parser: leading digits are read and
// trailing garbage is ignored ("12abc" -> 12). On overflow value saturates at
// the int64 bound of the input's sign.
func parseLeadingInt(raw string) (int64, inputStatus) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, inputEmpty
	}
	end := 0
	if s[0] == '-' || s[0] == '+' {
		end = 1
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	v, err := strconv.ParseInt(s[:end], 10, 64)
	switch {
	case errors.Is(err, strconv.ErrRange):
		return v, inputOverflow
	case err != nil:
		return 0, inputInvalid
	}
	return v, inputNumber
}

// InitialProducts returns the catalog the storefront boots with.
func InitialProducts() []Product {
	return []Product{
		{
			ID:    "p1",
			Name:  "상품1",
			Price: 10000,
			Stock: 20,
			Discounts: []DiscountTier{
				{Quantity: 10, Rate: decimal.RequireFromString("0.1")},
				{Quantity: 20, Rate: decimal.RequireFromString("0.2")},
			},
			Description: "최고급 품질의 프리미엄 상품입니다.",
		},
		{
			ID:    "p2",
			Name:  "상품2",
			Price: 20000,
			Stock: 20,
			Discounts: []DiscountTier{
				{Quantity: 10, Rate: decimal.RequireFromString("0.15")},
			},
			Description:   "다양한 기능을 갖춘 실용적인 상품입니다.",
			IsRecommended: true,
		},
		{
			ID:    "p3",
			Name:  "상품3",
			Price: 30000,
			Stock: 20,
			Discounts: []DiscountTier{
				{Quantity: 10, Rate: decimal.RequireFromString("0.2")},
				{Quantity: 30, Rate: decimal.RequireFromString("0.25")},
			},
			Description: "대용량과 고성능을 자랑하는 상품입니다.",
		},
	}
}
