package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaskEntry is one unit of recorded work. Employee name, department and
// category are a snapshot taken at write time, so later employee edits do
// not rewrite history.
type TaskEntry struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	EmployeeName     string          `gorm:"not null;size:200" json:"employee_name"`
	PersonnelNumber  string          `gorm:"not null;size:20;index:idx_tasks_personnel_date" json:"personnel_number"`
	Department       string          `gorm:"size:200" json:"department"`
	EmployeeCategory Category        `gorm:"not null;size:20" json:"employee_category"`
	WorkName         string          `gorm:"not null;size:200" json:"work_name"`
	Hours            decimal.Decimal `gorm:"not null;type:decimal(10,2)" json:"hours"`
	OrderNumber      string          `gorm:"not null;size:50;index" json:"order_number"`
	OrderName        string          `gorm:"size:200" json:"order_name"`
	OperationDate    time.Time       `gorm:"not null;type:date;index:idx_tasks_personnel_date" json:"operation_date"`
}

func (TaskEntry) TableName() string {
	return "tasks"
}

// DateFormat is the wire format for calendar dates.
const DateFormat = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.Time, the
// canonical representation of operation dates throughout the service.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateFormat, value)
}

// Date truncates a timestamp to its UTC calendar date.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
