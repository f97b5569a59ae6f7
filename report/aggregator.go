package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"workhours/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Filter is the explicit criteria set for task queries. Departments are OR'd
// against each other; every other field is AND'd. Values reach the database
// only as bound parameters.
type Filter struct {
	Departments []string
	StartDate   *time.Time // inclusive
	EndDate     *time.Time // inclusive
	Employee    string     // "Name (Number)" or a bare display name
	OrderNumber string
	OrderName   string
	WorkName    string
}

// Aggregator derives the report views from the ledger and the work-item
// running totals.
type Aggregator struct {
	db *gorm.DB
}

func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

// OrderSummary reports planned, spent and remaining hours for one order,
// summed over its work items. Remaining goes negative on overrun.
type OrderSummary struct {
	OrderNumber    string          `json:"order_number"`
	OrderName      string          `json:"order_name"`
	PlannedHours   decimal.Decimal `json:"planned_hours"`
	SpentHours     decimal.Decimal `json:"spent_hours"`
	RemainingHours decimal.Decimal `json:"remaining_hours"`
}

func (a *Aggregator) OrderSummary(ctx context.Context, orderNumber string) (*OrderSummary, error) {
	var order models.Order
	err := a.db.WithContext(ctx).Where("number = ?", orderNumber).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order %q", models.ErrNotFound, orderNumber)
	}
	if err != nil {
		return nil, storageErr(err)
	}

	var planned, spent decimal.Decimal
	row := a.db.WithContext(ctx).Model(&models.WorkItem{}).
		Select("COALESCE(SUM(planned_hours), 0), COALESCE(SUM(spent_hours), 0)").
		Where("order_id = ?", order.ID).
		Row()
	if err := row.Scan(&planned, &spent); err != nil {
		return nil, storageErr(err)
	}

	return &OrderSummary{
		OrderNumber:    order.Number,
		OrderName:      order.Name,
		PlannedHours:   planned,
		SpentHours:     spent,
		RemainingHours: planned.Sub(spent),
	}, nil
}

// TasksInRange compiles the filter into a parameterized query. An absent date
// bound means no bound; callers that want a "today only" default apply it
// before calling.
func (a *Aggregator) TasksInRange(ctx context.Context, f Filter) ([]models.TaskEntry, error) {
	query := a.db.WithContext(ctx).Model(&models.TaskEntry{})

	departments := make([]string, 0, len(f.Departments))
	for _, d := range f.Departments {
		if d != "" {
			departments = append(departments, d)
		}
	}
	if len(departments) > 0 {
		query = query.Where("department IN ?", departments)
	}

	if f.StartDate != nil {
		query = query.Where("operation_date >= ?", models.Date(*f.StartDate))
	}
	if f.EndDate != nil {
		query = query.Where("operation_date <= ?", models.Date(*f.EndDate))
	}

	if f.Employee != "" {
		if ref, err := models.ParseEmployeeRef(f.Employee); err == nil {
			query = query.Where("personnel_number = ?", ref.PersonnelNumber)
		} else {
			query = query.Where("employee_name = ?", f.Employee)
		}
	}

	if f.OrderNumber != "" {
		query = query.Where("order_number = ?", f.OrderNumber)
	}
	if f.OrderName != "" {
		query = query.Where("order_name = ?", f.OrderName)
	}
	if f.WorkName != "" {
		query = query.Where("work_name = ?", f.WorkName)
	}

	var tasks []models.TaskEntry
	if err := query.Order("operation_date, id").Find(&tasks).Error; err != nil {
		return nil, storageErr(err)
	}
	return tasks, nil
}

// EmployeeTotal is one row of the per-employee report sheet.
type EmployeeTotal struct {
	EmployeeName    string          `json:"employee_name"`
	PersonnelNumber string          `json:"personnel_number"`
	Category        models.Category `json:"category"`
	Department      string          `json:"department"`
	OperationDate   time.Time       `json:"operation_date"`
	Hours           decimal.Decimal `json:"hours"`
}

type employeeKey struct {
	name       string
	number     string
	category   models.Category
	department string
	date       string
}

// EmployeeTotals groups a task list by the full (employee, category,
// department, date) key, so the same employee on two dates yields two rows.
// Pure over its input; ordering is deterministic.
func EmployeeTotals(tasks []models.TaskEntry) []EmployeeTotal {
	totals := make(map[employeeKey]decimal.Decimal)
	for _, task := range tasks {
		key := employeeKey{
			name:       task.EmployeeName,
			number:     task.PersonnelNumber,
			category:   task.EmployeeCategory,
			department: task.Department,
			date:       task.OperationDate.Format(models.DateFormat),
		}
		totals[key] = totals[key].Add(task.Hours)
	}

	rows := make([]EmployeeTotal, 0, len(totals))
	for key, hours := range totals {
		date, _ := models.ParseDate(key.date)
		rows = append(rows, EmployeeTotal{
			EmployeeName:    key.name,
			PersonnelNumber: key.number,
			Category:        key.category,
			Department:      key.department,
			OperationDate:   date,
			Hours:           hours,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].OperationDate.Equal(rows[j].OperationDate) {
			return rows[i].OperationDate.Before(rows[j].OperationDate)
		}
		if rows[i].EmployeeName != rows[j].EmployeeName {
			return rows[i].EmployeeName < rows[j].EmployeeName
		}
		return rows[i].PersonnelNumber < rows[j].PersonnelNumber
	})
	return rows
}

// OrderTotal is one row of the orders report sheet.
type OrderTotal struct {
	OrderNumber    string          `json:"order_number"`
	OrderName      string          `json:"order_name"`
	PlannedHours   decimal.Decimal `json:"planned_hours"`
	SpentHours     decimal.Decimal `json:"spent_hours"`
	RemainingHours decimal.Decimal `json:"remaining_hours"`
}

// OrderTotals sums spent hours per order over the supplied tasks and joins
// them with each order's planned hours from the works table. Orders the
// ledger references but master data no longer knows keep a zero plan.
func (a *Aggregator) OrderTotals(ctx context.Context, tasks []models.TaskEntry) ([]OrderTotal, error) {
	spentByOrder := make(map[string]decimal.Decimal)
	for _, task := range tasks {
		spentByOrder[task.OrderNumber] = spentByOrder[task.OrderNumber].Add(task.Hours)
	}
	if len(spentByOrder) == 0 {
		return nil, nil
	}

	numbers := make([]string, 0, len(spentByOrder))
	for number := range spentByOrder {
		numbers = append(numbers, number)
	}
	sort.Strings(numbers)

	type orderPlan struct {
		Number       string
		Name         string
		PlannedHours decimal.Decimal
	}
	var plans []orderPlan
	err := a.db.WithContext(ctx).Model(&models.Order{}).
		Select("orders.number, orders.name, COALESCE(SUM(works.planned_hours), 0) AS planned_hours").
		Joins("LEFT JOIN works ON works.order_id = orders.id").
		Where("orders.number IN ?", numbers).
		Group("orders.number, orders.name").
		Scan(&plans).Error
	if err != nil {
		return nil, storageErr(err)
	}

	planByNumber := make(map[string]orderPlan, len(plans))
	for _, plan := range plans {
		planByNumber[plan.Number] = plan
	}

	rows := make([]OrderTotal, 0, len(numbers))
	for _, number := range numbers {
		plan := planByNumber[number]
		spent := spentByOrder[number]
		rows = append(rows, OrderTotal{
			OrderNumber:    number,
			OrderName:      plan.Name,
			PlannedHours:   plan.PlannedHours,
			SpentHours:     spent,
			RemainingHours: plan.PlannedHours.Sub(spent),
		})
	}
	return rows, nil
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
}
