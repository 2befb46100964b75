package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCard         PaymentMethod = "card"
	PaymentMobileMoney  PaymentMethod = "mobile_money"
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCard, PaymentMobileMoney, PaymentCash, PaymentBankTransfer:
		return true
	}
	return false
}

// LineItem is one product entry in a cart. Quantity is always >= 1 and a
// product id appears at most once per cart.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ImageRef  string          `json:"image_ref,omitempty"`
	Quantity  int             `json:"quantity"`
}

// Cart holds line items in insertion order, which is also display order.
type Cart struct {
	ID    string     `json:"id"`
	Items []LineItem `json:"items"`
}

func (c Cart) Empty() bool {
	return len(c.Items) == 0
}

// CouponState is transient: it lives with whoever consumes the pricing
// engine (a checkout session, a request) and is never persisted with the cart.
type CouponState struct {
	Code           string          `json:"code,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// Totals is the derived monetary breakdown of a cart. It is recomputed on
// every read and never stored.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// Rounded is the display view. Amounts accumulate at full precision and are
// rounded to two places only here.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal: t.Subtotal.Round(2),
		Shipping: t.Shipping.Round(2),
		Tax:      t.Tax.Round(2),
		Discount: t.Discount.Round(2),
		Total:    t.Total.Round(2),
	}
}

type CheckoutForm struct {
	Email         string        `json:"email"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	Phone         string        `json:"phone"`
	Address       string        `json:"address"`
	Apartment     string        `json:"apartment,omitempty"`
	City          string        `json:"city"`
	PostalCode    string        `json:"postal_code"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	SaveInfo      bool          `json:"save_info"`
}

type Contact struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type Address struct {
	Street     string `json:"street"`
	Apartment  string `json:"apartment,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// Product is the catalog gateway shape. The catalog is a read-only external
// collaborator; nothing here is persisted locally.
type Product struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Price          decimal.Decimal  `json:"price"`
	Image          string           `json:"image,omitempty"`
	Category       string           `json:"category,omitempty"`
	Quantity       int              `json:"quantity"`
	Description    string           `json:"description,omitempty"`
	SKU            string           `json:"sku,omitempty"`
	Brand          string           `json:"brand,omitempty"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// OrderPayload is the outbound submission document built at the final
// checkout step.
type OrderPayload struct {
	OrderID       string        `json:"order_id"`
	CustomerRef   string        `json:"customer_ref,omitempty"`
	Contact       Contact       `json:"contact"`
	Address       Address       `json:"address"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	LineItems     []LineItem    `json:"line_items"`
	Totals        Totals        `json:"totals"`
	PlacedAt      time.Time     `json:"placed_at"`
}
