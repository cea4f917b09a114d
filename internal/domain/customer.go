package domain

import (
	"regexp"
	"strings"
)

// DefaultCountry prefills a fresh shipping form.
const DefaultCountry = "Bangladesh"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldErrors maps a form field name (json name) to a human-readable message.
type FieldErrors map[string]string

func NewCustomerInfo() CustomerInfo {
	return CustomerInfo{Country: DefaultCountry}
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (c CustomerInfo) Trimmed() CustomerInfo {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.TrimSpace(c.Email)
	c.Address = strings.TrimSpace(c.Address)
	c.City = strings.TrimSpace(c.City)
	c.PostalCode = strings.TrimSpace(c.PostalCode)
	c.Country = strings.TrimSpace(c.Country)
	return c
}

// Validate returns the shipping form errors, or nil when the form is complete.
func (c CustomerInfo) Validate() FieldErrors {
	c = c.Trimmed()
	errs := FieldErrors{}
	if c.FirstName == "" {
		errs["firstName"] = "First name is required"
	}
	if c.LastName == "" {
		errs["lastName"] = "Last name is required"
	}
	if c.Phone == "" {
		errs["phone"] = "Phone is required"
	}
	if c.Address == "" {
		errs["address"] = "Address is required"
	}
	if c.Country == "" {
		errs["country"] = "Country is required"
	}
	if c.Email != "" && !emailPattern.MatchString(c.Email) {
		errs["email"] = "Email is invalid"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
