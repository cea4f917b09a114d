// Package cart holds the shopper's intended purchase set. It is the only place cart lines are
// mutated; everything else works on snapshots returned by Lines.
package cart

import (
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type Cart struct {
	lines []domain.CartLine
}

// New builds a cart from persisted lines, normalising quantities and merging duplicate keys.
func New(lines []domain.CartLine) *Cart {
	c := &Cart{}
	for _, l := range lines {
		c.AddItem(l)
	}
	return c
}

// AddItem inserts the line, or increments the quantity of the line with the same key.
func (c *Cart) AddItem(line domain.CartLine) {
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	if line.UnitPrice.IsNegative() {
		line.UnitPrice = decimal.Zero
	}
	if i := c.indexOf(line.Key()); i >= 0 {
		c.lines[i].Quantity += line.Quantity
		return
	}
	c.lines = append(c.lines, line)
}

// UpdateQuantity sets the quantity of an existing line. Quantities below 1 are ignored;
// removing a line is RemoveItem's job.
func (c *Cart) UpdateQuantity(key domain.LineKey, quantity int) bool {
	if quantity < 1 {
		return false
	}
	i := c.indexOf(key)
	if i < 0 {
		return false
	}
	c.lines[i].Quantity = quantity
	return true
}

func (c *Cart) RemoveItem(key domain.LineKey) bool {
	i := c.indexOf(key)
	if i < 0 {
		return false
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return true
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the current lines.
func (c *Cart) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Count is the number of units across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Subtotal() decimal.Decimal {
	return Subtotal(c.lines)
}

// Subtotal sums unitPrice × quantity over lines.
func Subtotal(lines []domain.CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.LineTotal())
	}
	return sum
}

func (c *Cart) indexOf(key domain.LineKey) int {
	for i := range c.lines {
		if c.lines[i].Key() == key {
			return i
		}
	}
	return -1
}
