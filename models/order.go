package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Number    string     `gorm:"uniqueIndex;not null;size:50" json:"number"`
	Name      string     `gorm:"not null;size:200" json:"name"`
	WorkItems []WorkItem `gorm:"foreignKey:OrderID" json:"work_items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// WorkItem is a planned scope-of-work line under an order. SpentHours is a
// running total maintained by the ledger service, never recomputed on read.
type WorkItem struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	OrderID      uint            `gorm:"not null;uniqueIndex:idx_works_order_name" json:"order_id"`
	Name         string          `gorm:"not null;size:200;uniqueIndex:idx_works_order_name" json:"name"`
	PlannedHours decimal.Decimal `gorm:"not null;type:decimal(10,2)" json:"planned_hours"`
	SpentHours   decimal.Decimal `gorm:"not null;type:decimal(10,2);default:0" json:"spent_hours"`
}

func (WorkItem) TableName() string {
	return "works"
}

// RemainingHours may be negative when a work item overruns its plan.
func (w *WorkItem) RemainingHours() decimal.Decimal {
	return w.PlannedHours.Sub(w.SpentHours)
}
