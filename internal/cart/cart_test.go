package cart

import (
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(id string, price int64, qty int) domain.CartLine {
	return domain.CartLine{
		ProductID:   id,
		ProductName: "product " + id,
		UnitPrice:   decimal.NewFromInt(price),
		Quantity:    qty,
	}
}

func key(id string) domain.LineKey {
	return domain.LineKey{ProductID: id}
}

func TestAddItem_NewLine(t *testing.T) {
	c := New(nil)
	c.AddItem(line("P1", 100, 2))

	require.Equal(t, 1, c.Len())
	assert.Equal(t, 2, c.Count())
	assert.True(t, decimal.NewFromInt(200).Equal(c.Subtotal()))
}

func TestAddItem_SameProductIncrementsQuantity(t *testing.T) {
	c := New(nil)
	c.AddItem(line("P1", 100, 2))
	c.AddItem(line("P1", 100, 3))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestAddItem_DifferentVariantIsSeparateLine(t *testing.T) {
	c := New(nil)
	small := line("P1", 100, 1)
	small.Variant = domain.Variant{Size: "S"}
	large := line("P1", 100, 1)
	large.Variant = domain.Variant{Size: "L"}

	c.AddItem(small)
	c.AddItem(large)

	assert.Equal(t, 2, c.Len())
}

func TestAddItem_ClampsQuantityAndPrice(t *testing.T) {
	c := New(nil)
	l := line("P1", -5, 0)
	c.AddItem(l)

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.True(t, lines[0].UnitPrice.IsZero())
}

func TestUpdateQuantity(t *testing.T) {
	c := New([]domain.CartLine{line("P1", 100, 2)})

	assert.True(t, c.UpdateQuantity(key("P1"), 7))
	assert.Equal(t, 7, c.Lines()[0].Quantity)
}

func TestUpdateQuantity_BelowOneIsNoop(t *testing.T) {
	c := New([]domain.CartLine{line("P1", 100, 2)})

	assert.False(t, c.UpdateQuantity(key("P1"), 0))
	assert.False(t, c.UpdateQuantity(key("P1"), -3))
	assert.Equal(t, 2, c.Lines()[0].Quantity)
}

func TestUpdateQuantity_UnknownProductIsNoop(t *testing.T) {
	c := New([]domain.CartLine{line("P1", 100, 2)})

	assert.False(t, c.UpdateQuantity(key("P2"), 4))
	assert.Equal(t, 2, c.Count())
}

func TestRemoveItem(t *testing.T) {
	c := New([]domain.CartLine{line("P1", 100, 9), line("P2", 50, 1)})

	assert.True(t, c.RemoveItem(key("P1")))
	assert.False(t, c.RemoveItem(key("P1")))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "P2", lines[0].ProductID)
}

func TestClear(t *testing.T) {
	c := New([]domain.CartLine{line("P1", 100, 2), line("P2", 50, 1)})
	c.Clear()

	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0, c.Count())
	assert.True(t, c.Subtotal().IsZero())
}

func TestLines_ReturnsSnapshot(t *testing.T) {
	c := New([]domain.CartLine{line("P1", 100, 2)})

	lines := c.Lines()
	lines[0].Quantity = 50

	assert.Equal(t, 2, c.Lines()[0].Quantity)
}

func TestNew_MergesDuplicatePersistedLines(t *testing.T) {
	c := New([]domain.CartLine{line("P1", 100, 1), line("P1", 100, 2), line("P2", 10, 0)})

	require.Equal(t, 2, c.Len())
	assert.Equal(t, 4, c.Count())
}
