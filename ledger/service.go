package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"workhours/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service is the only writer of task entries and the sole place that keeps
// WorkItem.SpentHours consistent with the ledger. Every mutation runs inside
// one transaction; running totals are adjusted with SQL increment expressions
// so concurrent writers cannot lose updates on the shared work-item row.
//
// The capacity check and the subsequent insert are not serialized against
// each other, so two concurrent submissions for the same employee and date
// can jointly overrun the cap. The limit is advisory; see DESIGN.md.
type Service struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewService(db *gorm.DB, log *logrus.Logger) *Service {
	return &Service{db: db, log: log}
}

// EntryInput is one row of a submission.
type EntryInput struct {
	Hours       decimal.Decimal
	OrderNumber string
	OrderName   string
	WorkName    string
}

// AddInput is a multi-row submission: one employee, one date, many rows.
type AddInput struct {
	EmployeeData  string
	OperationDate time.Time
	Entries       []EntryInput
}

type EditInput struct {
	EmployeeData  string
	OperationDate time.Time
	Hours         decimal.Decimal
	OrderNumber   string
	OrderName     string
	WorkName      string
}

// FreeHours reports the allowance left for an employee on a date. A non-zero
// excludeEntryID leaves that entry's own hours out of the used sum, so an
// in-progress edit does not count against itself.
func (s *Service) FreeHours(ctx context.Context, personnelNumber string, date time.Time, excludeEntryID uint) (decimal.Decimal, error) {
	used, err := usedHours(s.db.WithContext(ctx), personnelNumber, date, excludeEntryID)
	if err != nil {
		return decimal.Zero, err
	}
	return DailyCapacity.Sub(used), nil
}

// AddEntries validates and persists a submission. All inserts and the
// matching work-item increments commit or roll back as one unit.
func (s *Service) AddEntries(ctx context.Context, in AddInput) ([]uint, error) {
	if len(in.Entries) == 0 {
		return nil, fmt.Errorf("%w: no task rows provided", models.ErrValidation)
	}

	proposed := make([]decimal.Decimal, 0, len(in.Entries))
	for _, e := range in.Entries {
		if !e.Hours.IsPositive() {
			return nil, fmt.Errorf("%w: hours must be positive", models.ErrValidation)
		}
		proposed = append(proposed, e.Hours)
	}

	ref, err := models.ParseEmployeeRef(in.EmployeeData)
	if err != nil {
		return nil, err
	}

	date := models.Date(in.OperationDate)
	var ids []uint

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		employee, err := findEmployee(tx, ref.PersonnelNumber)
		if err != nil {
			return err
		}

		used, err := usedHours(tx, ref.PersonnelNumber, date, 0)
		if err != nil {
			return err
		}

		if decision := Evaluate(used, proposed...); !decision.Admissible {
			return &models.CapacityExceededError{Free: decision.Free}
		}

		for _, e := range in.Entries {
			work, err := findWorkItem(tx, e.OrderNumber, e.WorkName)
			if err != nil {
				return err
			}

			entry := models.TaskEntry{
				EmployeeName:     ref.Name,
				PersonnelNumber:  ref.PersonnelNumber,
				Department:       employee.Department,
				EmployeeCategory: employee.Category,
				WorkName:         e.WorkName,
				Hours:            e.Hours,
				OrderNumber:      e.OrderNumber,
				OrderName:        e.OrderName,
				OperationDate:    date,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return storageErr(err)
			}
			ids = append(ids, entry.ID)

			if err := adjustSpentHours(tx, work.ID, e.Hours); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"personnel_number": ref.PersonnelNumber,
		"operation_date":   date.Format(models.DateFormat),
		"rows":             len(ids),
	}).Info("task entries added")
	return ids, nil
}

// EditEntry replaces an entry's fields and moves its hours between work-item
// running totals as needed, atomically.
func (s *Service) EditEntry(ctx context.Context, id uint, in EditInput) error {
	if !in.Hours.IsPositive() {
		return fmt.Errorf("%w: hours must be positive", models.ErrValidation)
	}

	ref, err := models.ParseEmployeeRef(in.EmployeeData)
	if err != nil {
		return err
	}

	date := models.Date(in.OperationDate)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.TaskEntry
		if err := tx.First(&entry, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: task entry %d", models.ErrNotFound, id)
			}
			return storageErr(err)
		}

		employee, err := findEmployee(tx, ref.PersonnelNumber)
		if err != nil {
			return err
		}

		used, err := usedHours(tx, ref.PersonnelNumber, date, entry.ID)
		if err != nil {
			return err
		}

		if decision := Evaluate(used, in.Hours); !decision.Admissible {
			return &models.CapacityExceededError{Free: decision.Free}
		}

		newWork, err := findWorkItem(tx, in.OrderNumber, in.WorkName)
		if err != nil {
			return err
		}

		// The previous work item may have been deleted since the entry
		// was recorded; there is no total left to decrement then.
		oldWork, err := findWorkItem(tx, entry.OrderNumber, entry.WorkName)
		switch {
		case err == nil && oldWork.ID == newWork.ID:
			if err := adjustSpentHours(tx, newWork.ID, in.Hours.Sub(entry.Hours)); err != nil {
				return err
			}
		case err == nil:
			if err := adjustSpentHours(tx, oldWork.ID, entry.Hours.Neg()); err != nil {
				return err
			}
			if err := adjustSpentHours(tx, newWork.ID, in.Hours); err != nil {
				return err
			}
		case errors.Is(err, models.ErrNotFound):
			if err := adjustSpentHours(tx, newWork.ID, in.Hours); err != nil {
				return err
			}
		default:
			return err
		}

		updates := map[string]interface{}{
			"employee_name":     ref.Name,
			"personnel_number":  ref.PersonnelNumber,
			"department":        employee.Department,
			"employee_category": employee.Category,
			"work_name":         in.WorkName,
			"hours":             in.Hours,
			"order_number":      in.OrderNumber,
			"order_name":        in.OrderName,
			"operation_date":    date,
		}
		if err := tx.Model(&entry).Updates(updates).Error; err != nil {
			return storageErr(err)
		}
		return nil
	})
}

// DeleteEntry removes an entry and returns its hours to the matching
// work-item total.
func (s *Service) DeleteEntry(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.TaskEntry
		if err := tx.First(&entry, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: task entry %d", models.ErrNotFound, id)
			}
			return storageErr(err)
		}

		if err := tx.Delete(&entry).Error; err != nil {
			return storageErr(err)
		}

		work, err := findWorkItem(tx, entry.OrderNumber, entry.WorkName)
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return adjustSpentHours(tx, work.ID, entry.Hours.Neg())
	})
}

func usedHours(tx *gorm.DB, personnelNumber string, date time.Time, excludeEntryID uint) (decimal.Decimal, error) {
	query := tx.Model(&models.TaskEntry{}).
		Select("COALESCE(SUM(hours), 0)").
		Where("personnel_number = ? AND operation_date = ?", personnelNumber, models.Date(date))
	if excludeEntryID != 0 {
		query = query.Where("id <> ?", excludeEntryID)
	}

	var used decimal.Decimal
	if err := query.Row().Scan(&used); err != nil {
		return decimal.Zero, storageErr(err)
	}
	return used, nil
}

func findEmployee(tx *gorm.DB, personnelNumber string) (*models.Employee, error) {
	var employee models.Employee
	err := tx.Where("personnel_number = ?", personnelNumber).First(&employee).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return &employee, nil
}

// findWorkItem resolves the (order number, work name) pair an entry charges
// against. A missing pair is a hard failure: entries must never reference
// work the orders ledger does not know about.
func findWorkItem(tx *gorm.DB, orderNumber, workName string) (*models.WorkItem, error) {
	var work models.WorkItem
	err := tx.Model(&models.WorkItem{}).
		Select("works.*").
		Joins("JOIN orders ON orders.id = works.order_id").
		Where("orders.number = ? AND works.name = ?", orderNumber, workName).
		First(&work).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: work %q on order %q", models.ErrNotFound, workName, orderNumber)
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return &work, nil
}

func adjustSpentHours(tx *gorm.DB, workItemID uint, delta decimal.Decimal) error {
	err := tx.Model(&models.WorkItem{}).
		Where("id = ?", workItemID).
		UpdateColumn("spent_hours", gorm.Expr("spent_hours + ?", delta)).Error
	if err != nil {
		return storageErr(err)
	}
	return nil
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
}
