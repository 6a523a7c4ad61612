// Package order defines the order record carried by the event stream and the
// criteria used to select orders.
package order

import (
	"errors"
	"strconv"
	"strings"
)

//easyjson:json
type Order struct {
	ID          string `json:"id"`
	Customer    string `json:"customer"`
	Destination string `json:"destination"`
	Status      Status `json:"event_name"`
	Item        string `json:"item"`
	Price       int64  `json:"price"`
	SentAt      int64  `json:"sent_at_second"`
}

// Status is the order lifecycle state reported by an event.
type Status string

const (
	Created        Status = "CREATED"
	Cooked         Status = "COOKED"
	DriverReceived Status = "DRIVER_RECEIVED"
	Delivered      Status = "DELIVERED"
	Cancelled      Status = "CANCELLED"
)

var Statuses = []Status{Created, Cooked, DriverReceived, Delivered, Cancelled}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Field names as they appear on the wire.
const (
	FieldID          = "id"
	FieldCustomer    = "customer"
	FieldDestination = "destination"
	FieldStatus      = "event_name"
	FieldItem        = "item"
	FieldPrice       = "price"
	FieldSentAt      = "sent_at_second"
)

var (
	ErrUnknownField = errors.New("unknown criteria field")
	ErrInvalidPrice = errors.New("price criteria accepts digits only")
)

// Criteria selects orders. Zero-valued entries are inactive.
type Criteria struct {
	Customer    string
	Destination string
	Status      string
	Item        string
	Price       int64
}

// Active reports whether at least one entry participates in matching.
func (c Criteria) Active() bool {
	return c.Price != 0 || c.Customer != "" || c.Destination != "" ||
		c.Status != "" || c.Item != ""
}

// Match applies every active entry: exact equality for price and substring
// containment for the string attributes.
func (c Criteria) Match(o *Order) bool {
	if c.Price != 0 && o.Price != c.Price {
		return false
	}
	if c.Customer != "" && !strings.Contains(o.Customer, c.Customer) {
		return false
	}
	if c.Destination != "" && !strings.Contains(o.Destination, c.Destination) {
		return false
	}
	if c.Status != "" && !strings.Contains(string(o.Status), c.Status) {
		return false
	}
	if c.Item != "" && !strings.Contains(o.Item, c.Item) {
		return false
	}
	return true
}

// Key renders the criteria as a stable string, suitable for cache keys.
func (c Criteria) Key() string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(c.Price, 10))
	for _, s := range []string{c.Customer, c.Destination, c.Status, c.Item} {
		b.WriteByte(0)
		b.WriteString(s)
	}
	return b.String()
}

// Set assigns a single criteria entry from its wire field name.
func (c *Criteria) Set(field, value string) error {
	switch strings.ToLower(field) {
	case FieldCustomer:
		c.Customer = value
	case FieldDestination:
		c.Destination = value
	case FieldStatus, "status":
		c.Status = value
	case FieldItem:
		c.Item = value
	case FieldPrice:
		price, err := ParsePrice(value)
		if err != nil {
			return err
		}
		c.Price = price
	default:
		return ErrUnknownField
	}
	return nil
}

// ParsePrice parses search input for the price criteria. Only digits with an
// optional decimal part are accepted; the integer part is used and an empty
// input yields zero, which leaves the criteria inactive.
func ParsePrice(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	dot := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
		case s[i] == '.' && !dot:
			dot = true
		default:
			return 0, ErrInvalidPrice
		}
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
