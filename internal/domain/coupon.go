package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CouponType string

const (
	CouponPercentage   CouponType = "percentage"
	CouponFixed        CouponType = "fixed"
	CouponFreeShipping CouponType = "free-shipping"
)

type Coupon struct {
	ID                    string          `json:"_id,omitempty"`
	Code                  string          `json:"code"`
	Type                  CouponType      `json:"type"`
	DiscountAmount        decimal.Decimal `json:"discountAmount"`
	MinimumPurchaseAmount decimal.Decimal `json:"minimumPurchaseAmount"`
	IsApproved            bool            `json:"isApproved"`
	ExpireDate            time.Time       `json:"expireDate"`
	Description           string          `json:"description,omitempty"`
}

// UnmarshalJSON accepts expireDate as an RFC 3339 timestamp or a bare date.
func (c *Coupon) UnmarshalJSON(b []byte) error {
	type plain Coupon
	aux := struct {
		*plain
		ExpireDate *string `json:"expireDate"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	c.ExpireDate = time.Time{}
	if aux.ExpireDate == nil {
		return nil
	}
	t, err := parseExpiry(*aux.ExpireDate)
	if err != nil {
		return fmt.Errorf("coupon %q: %w", c.Code, err)
	}
	c.ExpireDate = t
	return nil
}

// parseExpiry maps a bare date to the last instant of that day in UTC.
func parseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expire date %q", s)
	}
	return d.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
}
