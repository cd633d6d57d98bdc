// Package coupon holds coupon definitions and the rules that gate their use.
package coupon

import (
	"errors"
	"strings"
)

// DiscountType distinguishes flat amount coupons from percentage coupons.
type DiscountType string

const (
	// DiscountAmount subtracts a fixed currency amount.
	DiscountAmount DiscountType = "amount"
	// DiscountPercentage removes a percentage of the total.
	DiscountPercentage DiscountType = "percentage"
)

// PercentageMinimumTotal is the pre-discount cart total required for percentage coupons.
const PercentageMinimumTotal int64 = 10000

// Error codes reported in Result.Code.
const (
	CodeCouponIneligible    = "COUPON_INELIGIBLE"
	CodeDuplicateCouponCode = "DUPLICATE_COUPON_CODE"
)

const (
	msgIneligible = "percentage 쿠폰은 10,000원 이상 구매 시 사용 가능합니다."
	msgApplied    = "쿠폰이 적용되었습니다."
	msgDuplicate  = "이미 존재하는 쿠폰 코드입니다."
	msgAdded      = "쿠폰이 추가되었습니다."
	msgDeleted    = "쿠폰이 삭제되었습니다."
)

var (
	// ErrCouponIneligible indicates the cart does not qualify for the coupon.
	ErrCouponIneligible = errors.New("coupon not eligible")
	// ErrDuplicateCouponCode indicates another coupon already uses the code.
	ErrDuplicateCouponCode = errors.New("duplicate coupon code")
	// ErrNotFound indicates the coupon does not exist.
	ErrNotFound = errors.New("coupon not found")
	// ErrInvalidCoupon indicates the coupon definition is malformed.
	ErrInvalidCoupon = errors.New("invalid coupon")
)

// Coupon is a code-keyed discount that applies to the whole cart.
type Coupon struct {
	Name          string       `json:"name" validate:"required"`
	Code          string       `json:"code" validate:"required"`
	DiscountType  DiscountType `json:"discountType" validate:"required,oneof=amount percentage"`
	DiscountValue int64        `json:"discountValue" validate:"gte=0"`
}

// Validate checks structural invariants.
func (c Coupon) Validate() error {
	if strings.TrimSpace(c.Code) == "" || strings.TrimSpace(c.Name) == "" {
		return ErrInvalidCoupon
	}
	switch c.DiscountType {
	case DiscountAmount:
		if c.DiscountValue < 0 {
			return ErrInvalidCoupon
		}
	case DiscountPercentage:
		if c.DiscountValue < 0 || c.DiscountValue > 100 {
			return ErrInvalidCoupon
		}
	default:
		return ErrInvalidCoupon
	}
	return nil
}

// Result is the value-level outcome of a coupon rule check.
type Result struct {
	Valid   bool   `json:"valid"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Err maps a failed result onto its sentinel error.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	switch r.Code {
	case CodeCouponIneligible:
		return ErrCouponIneligible
	case CodeDuplicateCouponCode:
		return ErrDuplicateCouponCode
	default:
		return ErrInvalidCoupon
	}
}

// ValidateApplication decides whether c may be selected for a cart whose
// pre-discount total is totalBeforeDiscount.
func ValidateApplication(c Coupon, totalBeforeDiscount int64) Result {
	if c.DiscountType == DiscountPercentage && totalBeforeDiscount < PercentageMinimumTotal {
		return Result{Code: CodeCouponIneligible, Message: msgIneligible}
	}
	return Result{Valid: true, Message: msgApplied}
}

// CheckDuplicate reports whether candidate's code is already taken.
func CheckDuplicate(candidate Coupon, existing []Coupon) Result {
	for _, c := range existing {
		if c.Code == candidate.Code {
			return Result{Code: CodeDuplicateCouponCode, Message: msgDuplicate}
		}
	}
	return Result{Valid: true, Message: msgAdded}
}

// ShouldClearSelected reports whether deleting deletedCode must clear selected.
func ShouldClearSelected(deletedCode string, selected *Coupon) bool {
	return selected != nil && selected.Code == deletedCode
}

// InitialCoupons returns the coupons the storefront boots with.
func InitialCoupons() []Coupon {
	return []Coupon{
		{Name: "5000원 할인", Code: "AMOUNT5000", DiscountType: DiscountAmount, DiscountValue: 5000},
		{Name: "10% 할인", Code: "PERCENT10", DiscountType: DiscountPercentage, DiscountValue: 10},
	}
}
