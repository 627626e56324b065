package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TargetKind enumerates the business-object variants a TaskTarget can point
// at. The kind tag is the sum-type discriminator: exactly one variant table
// holds a row for a given target, and resolving the kind is O(1) instead of
// probing every relation.
const (
	TargetKindSupply          = "supply"
	TargetKindSalary          = "salary"
	TargetKindWriteOff        = "write_off"
	TargetKindCustomerOrder   = "customer_order"
	TargetKindCustomerPayment = "customer_payment"
	TargetKindSupplyOrder     = "supply_order"
	TargetKindSupplyPayment   = "supply_payment"
	TargetKindAccessGrant     = "access_grant"
	TargetKindDiscountGroup   = "discount_group"
	TargetKindDiscount        = "discount"
)

// TargetKinds lists every valid kind tag.
var TargetKinds = []string{
	TargetKindSupply,
	TargetKindSalary,
	TargetKindWriteOff,
	TargetKindCustomerOrder,
	TargetKindCustomerPayment,
	TargetKindSupplyOrder,
	TargetKindSupplyPayment,
	TargetKindAccessGrant,
	TargetKindDiscountGroup,
	TargetKindDiscount,
}

// ValidTargetKind reports whether kind is a known variant tag.
func ValidTargetKind(kind string) bool {
	for _, k := range TargetKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// TaskTarget is the polymorphic "what this task is about" row. It never
// exists without its variant payload and vice versa; creation of both is a
// single transaction.
type TaskTarget struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Kind      string    `gorm:"type:varchar(30);not null;index" json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// --- variant payload tables ---
// Each payload owns a unique task_target_id back-reference; the unique index
// structurally enforces at most one payload row per target and kind.

// Supply records goods received at a restaurant.
type Supply struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TaskTargetID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"task_target_id"`
	RestaurantID uuid.UUID       `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	Supplier     string          `gorm:"type:varchar(255)" json:"supplier"`
	TotalCost    decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"total_cost"`
	Items        []SupplyItem    `gorm:"foreignKey:SupplyID" json:"items,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SupplyItem is a line of a supply.
type SupplyItem struct {
	ID       uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SupplyID uuid.UUID       `gorm:"type:uuid;not null;index" json:"supply_id"`
	Name     string          `gorm:"type:varchar(255);not null" json:"name"`
	Count    int             `gorm:"not null" json:"count"`
	Price    decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"price"`
}

// Salary records one pay run for one employee.
type Salary struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TaskTargetID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"task_target_id"`
	RestaurantID uuid.UUID       `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	EmployeeID   *uuid.UUID      `gorm:"type:uuid;index" json:"employee_id"` // nil for a whole-restaurant pay run
	Amount       decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"amount"`
	PeriodStart  time.Time       `gorm:"not null" json:"period_start"`
	PeriodEnd    time.Time       `gorm:"not null" json:"period_end"`
	CreatedAt    time.Time       `json:"created_at"`
}

// WriteOff records stock removed from circulation.
type WriteOff struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TaskTargetID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"task_target_id"`
	RestaurantID uuid.UUID       `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	Reason       string          `gorm:"type:varchar(255);not null" json:"reason"`
	TotalCost    decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"total_cost"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CustomerOrder is a customer-facing order payload.
type CustomerOrder struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TaskTargetID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"task_target_id"`
	RestaurantID uuid.UUID       `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	Total        decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"total"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CustomerPayment is money received from a customer.
type CustomerPayment struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TaskTargetID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"task_target_id"`
	OrderID      *uuid.UUID      `gorm:"type:uuid;index" json:"order_id"`
	Value        decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"value"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SupplyOrder is an order placed with a supplier.
type SupplyOrder struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TaskTargetID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"task_target_id"`
	RestaurantID uuid.UUID       `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	Supplier     string          `gorm:"type:varchar(255)" json:"supplier"`
	TotalCost    decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"total_cost"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SupplyPayment is money paid out for a supply.
type SupplyPayment struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TaskTargetID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"task_target_id"`
	SupplyID     *uuid.UUID      `gorm:"type:uuid;index" json:"supply_id"`
	Value        decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"value"`
	CreatedAt    time.Time       `json:"created_at"`
}

// DiscountGroup groups discounts rolled out together.
type DiscountGroup struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TaskTargetID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"task_target_id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt    time.Time `json:"created_at"`
}

// Discount is a single discount definition.
type Discount struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TaskTargetID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"task_target_id"`
	GroupID      *uuid.UUID      `gorm:"type:uuid;index" json:"group_id"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Value        decimal.Decimal `gorm:"type:numeric(6,4);not null" json:"value"` // fraction of price
	CreatedAt    time.Time       `json:"created_at"`
}
