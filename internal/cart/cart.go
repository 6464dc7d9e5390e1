// Package cart holds the order-line aggregate and its pricing rules.
// The same arithmetic prices a storefront checkout and an admin order edit,
// so totals can never drift between the two paths.
package cart

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TipRate is applied to the subtotal on storefront checkouts.
var TipRate = decimal.NewFromFloat(0.10)

type LineSauce struct {
	SauceID   uuid.UUID
	Name      string
	Surcharge decimal.Decimal
}

type Line struct {
	ProductID   uuid.UUID
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int32
	Notes       string
	Sauces      []LineSauce
}

// key identifies a mergeable line: same product, same sauce set, same notes.
// Sauce order does not matter.
func (l Line) key() string {
	ids := make([]string, len(l.Sauces))
	for i, s := range l.Sauces {
		ids[i] = s.SauceID.String()
	}
	sort.Strings(ids)
	return l.ProductID.String() + "|" + strings.Join(ids, ",") + "|" + l.Notes
}

// UnitTotal is the price of one unit including sauce surcharges.
func (l Line) UnitTotal() decimal.Decimal {
	total := l.UnitPrice
	for _, s := range l.Sauces {
		total = total.Add(s.Surcharge)
	}
	return total
}

// Total is UnitTotal multiplied by the quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitTotal().Mul(decimal.NewFromInt32(l.Quantity))
}

// Cart is an in-progress order: its lines plus an order-level note.
type Cart struct {
	Lines []Line
	Notes string
}

// Add merges into an existing line when product, sauce set, and notes all
// match; otherwise it appends a new line. Non-positive quantities are ignored.
func (c *Cart) Add(line Line) {
	if line.Quantity < 1 {
		return
	}
	k := line.key()
	for i := range c.Lines {
		if c.Lines[i].key() == k {
			c.Lines[i].Quantity += line.Quantity
			return
		}
	}
	c.Lines = append(c.Lines, line)
}

// UpdateQuantity sets the quantity of the line at i. Anything below one
// removes the line. Out-of-range indexes are ignored.
func (c *Cart) UpdateQuantity(i int, quantity int32) {
	if i < 0 || i >= len(c.Lines) {
		return
	}
	if quantity < 1 {
		c.Remove(i)
		return
	}
	c.Lines[i].Quantity = quantity
}

// Remove deletes the line at i, preserving the order of the rest.
func (c *Cart) Remove(i int) {
	if i < 0 || i >= len(c.Lines) {
		return
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
}

// Clear empties the cart, order notes included.
func (c *Cart) Clear() {
	c.Lines = nil
	c.Notes = ""
}

// ItemCount is the total unit count across all lines.
func (c *Cart) ItemCount() int32 {
	var n int32
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Subtotal sums every line total.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Total())
	}
	return total
}

// Tip is the subtotal times TipRate, rounded to cents.
func (c *Cart) Tip() decimal.Decimal {
	return c.Subtotal().Mul(TipRate).Round(2)
}

// Total is subtotal plus tip.
func (c *Cart) Total() decimal.Decimal {
	return c.Subtotal().Add(c.Tip())
}
