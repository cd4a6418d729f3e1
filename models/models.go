package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrValidation = errors.New("validation error")
var ErrUnauthorized = errors.New("unauthorized")
var ErrForbidden = errors.New("forbidden")
var ErrServerError = errors.New("server error")
var ErrNotFound = errors.New("not found")
var ErrNotAllowed = errors.New("not allowed")
var ErrNetwork = errors.New("storage unavailable")

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

func init() {
	// prices go out as JSON numbers, the way the storefront always rendered them
	decimal.MarshalJSONWithoutQuotes = true
}

type User struct {
	Id        int64  `json:"id"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password,omitempty"`
	Role      string `json:"role"`
	Image     string `json:"image,omitempty"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Public returns a copy without the password hash.
func (u User) Public() User {
	u.Password = ""
	return u
}

// DisplayName prefers first and last name, then the single name field.
func (u User) DisplayName() string {
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	if u.Name != "" {
		return u.Name
	}
	return "User"
}

func (u User) AvatarURL() string {
	if u.Image != "" {
		if strings.HasPrefix(u.Image, "http") {
			return u.Image
		}
		return "/uploads/" + u.Image
	}
	return "https://ui-avatars.com/api/?name=" + url.PathEscape(u.DisplayName()) +
		"&size=200&background=8b5cf6&color=ffffff&bold=true"
}

type Product struct {
	Id          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	Category    string          `json:"category,omitempty"`
}

// UnmarshalJSON accepts the price as a number, a numeric string, an empty string or null;
// the last two read as zero.
func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	aux := struct {
		*plain
		Price json.RawMessage `json:"price"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	raw := bytes.TrimSpace(aux.Price)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte(`""`)) {
		p.Price = decimal.Zero
		return nil
	}
	return p.Price.UnmarshalJSON(raw)
}

// ProductPatch carries the fields of a partial product update; nil means untouched.
type ProductPatch struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Image       *string          `json:"image"`
	Category    *string          `json:"category"`
}

func (p ProductPatch) Apply(prod Product) Product {
	if p.Title != nil {
		prod.Title = *p.Title
	}
	if p.Description != nil {
		prod.Description = *p.Description
	}
	if p.Price != nil {
		prod.Price = *p.Price
	}
	if p.Image != nil {
		prod.Image = *p.Image
	}
	if p.Category != nil {
		prod.Category = *p.Category
	}
	return prod
}

type CartLine struct {
	Product
	Quantity int `json:"quantity"`
}

// UnmarshalJSON is needed because the embedded Product decoder would otherwise drop quantity.
func (c *CartLine) UnmarshalJSON(data []byte) error {
	if err := c.Product.UnmarshalJSON(data); err != nil {
		return err
	}
	var q struct {
		Quantity int `json:"quantity"`
	}
	if err := json.Unmarshal(data, &q); err != nil {
		return err
	}
	c.Quantity = q.Quantity
	return nil
}

func (c CartLine) Subtotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

type Order struct {
	Id            int64           `json:"id"`
	CustomerName  string          `json:"customerName"`
	CustomerEmail string          `json:"customerEmail"`
	Items         []CartLine      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	Status        OrderStatus     `json:"status"`
	Date          time.Time       `json:"date"`
}

type NotificationType string

const (
	NotificationOrder   NotificationType = "order"
	NotificationProduct NotificationType = "product"
	NotificationAccount NotificationType = "account"
	NotificationAlert   NotificationType = "alert"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationOrder, NotificationProduct, NotificationAccount, NotificationAlert:
		return true
	}
	return false
}

type Notification struct {
	Id      int64            `json:"id"`
	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Time    time.Time        `json:"time"`
	Read    bool             `json:"read"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterPayload struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	Password  string `json:"password" validate:"required,min=6,max=130"`
}

type ProfilePatch struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Name      *string `json:"name"`
	Phone     *string `json:"phone"`
	Image     *string `json:"image" validate:"omitempty,max=2048"`
}

func (p ProfilePatch) Apply(u User) User {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Image != nil {
		u.Image = *p.Image
	}
	return u
}

type ProductPayload struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description" validate:"max=1000"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category" validate:"max=64"`
}

type CatalogQuery struct {
	Search   string
	Category string
	SortBy   string
}

const (
	SortByName      = "name"
	SortByPriceLow  = "price-low"
	SortByPriceHigh = "price-high"
)
