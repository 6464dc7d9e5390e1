package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Category struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	Color       string
	Icon        string
	CreatedAt   time.Time
}

type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       pgtype.Numeric
	ImageURL    pgtype.Text
	CategoryID  uuid.UUID
	Featured    bool
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Sauce struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	Surcharge   pgtype.Numeric
	SpiceLevel  int32
	IsActive    bool
	CreatedAt   time.Time
}

type Order struct {
	ID              uuid.UUID
	Reference       string
	OrderNumber     int32
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	DeliveryType    string
	Status          string
	Subtotal        pgtype.Numeric
	Tip             pgtype.Numeric
	Total           pgtype.Numeric
	Notes           pgtype.Text
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem carries a denormalized product snapshot: name and unit price
// are copied at order time so later product edits don't rewrite history.
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	UnitPrice   pgtype.Numeric
	Quantity    int32
	Notes       pgtype.Text
}

type OrderItemSauce struct {
	ID          uuid.UUID
	OrderItemID uuid.UUID
	SauceID     uuid.UUID
	SauceName   string
	Surcharge   pgtype.Numeric
}

type Client struct {
	ID          uuid.UUID
	Name        string
	Phone       string
	Address     string
	Email       pgtype.Text
	Notes       pgtype.Text
	Status      string
	TotalSpent  pgtype.Numeric
	OrderCount  int32
	LastOrderAt time.Time
	CreatedAt   time.Time
}

type AdminUser struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	CreatedAt      time.Time
}
