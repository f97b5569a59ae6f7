package ledger

import (
	"context"
	"io"
	"testing"
	"time"

	"workhours/database"
	"workhours/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewService(db, log), db
}

func seedEmployee(t *testing.T, db *gorm.DB, name, number, department string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Employee{
		Name:            name,
		PersonnelNumber: number,
		Department:      department,
		Category:        models.CategoryWorker,
	}).Error)
}

func seedWork(t *testing.T, db *gorm.DB, orderNumber, orderName, workName, planned string) uint {
	t.Helper()
	order := models.Order{Number: orderNumber, Name: orderName}
	err := db.Where("number = ?", orderNumber).First(&order).Error
	if err != nil {
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
		require.NoError(t, db.Create(&order).Error)
	}
	work := models.WorkItem{
		OrderID:      order.ID,
		Name:         workName,
		PlannedHours: dec(planned),
		SpentHours:   decimal.Zero,
	}
	require.NoError(t, db.Create(&work).Error)
	return work.ID
}

func spentHours(t *testing.T, db *gorm.DB, workID uint) decimal.Decimal {
	t.Helper()
	var work models.WorkItem
	require.NoError(t, db.First(&work, workID).Error)
	return work.SpentHours
}

func addInput(employee, date string, rows ...EntryInput) AddInput {
	day, _ := models.ParseDate(date)
	return AddInput{EmployeeData: employee, OperationDate: day, Entries: rows}
}

func row(hours, orderNumber, workName string) EntryInput {
	return EntryInput{
		Hours:       dec(hours),
		OrderNumber: orderNumber,
		OrderName:   orderNumber + " name",
		WorkName:    workName,
	}
}

func TestAddEntriesCapacityBoundary(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedEmployee(t, db, "Ivanov Ivan", "1001", "Assembly shop")
	workID := seedWork(t, db, "X-1", "Rig X-1", "Assembly", "100")

	_, err := svc.AddEntries(ctx, addInput("Ivanov Ivan (1001)", "2025-01-10", row("5.00", "X-1", "Assembly")))
	require.NoError(t, err)

	// 5.00 + 3.25 = 8.25, exactly the cap.
	_, err = svc.AddEntries(ctx, addInput("Ivanov Ivan (1001)", "2025-01-10", row("3.25", "X-1", "Assembly")))
	require.NoError(t, err)

	_, err = svc.AddEntries(ctx, addInput("Ivanov Ivan (1001)", "2025-01-10", row("0.01", "X-1", "Assembly")))
	var capacityErr *models.CapacityExceededError
	require.ErrorAs(t, err, &capacityErr)
	assert.Equal(t, "0.00", capacityErr.Free.StringFixed(2))

	assert.True(t, spentHours(t, db, workID).Equal(dec("8.25")))
}

func TestAddEntriesOtherDateUnaffected(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedEmployee(t, db, "Ivanov Ivan", "1001", "Assembly shop")
	seedWork(t, db, "X-1", "Rig X-1", "Assembly", "100")

	_, err := svc.AddEntries(ctx, addInput("Ivanov Ivan (1001)", "2025-01-10", row("8.25", "X-1", "Assembly")))
	require.NoError(t, err)

	// A full day does not consume the next day's allowance.
	_, err = svc.AddEntries(ctx, addInput("Ivanov Ivan (1001)", "2025-01-11", row("8.25", "X-1", "Assembly")))
	require.NoError(t, err)
}

func TestAddEntriesBatchCapacity(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedEmployee(t, db, "Ivanov Ivan", "1001", "Assembly shop")
	workID := seedWork(t, db, "X-1", "Rig X-1", "Assembly", "100")

	_, err := svc.AddEntries(ctx, addInput("Ivanov Ivan (1001)", "2025-01-10",
		row("4.00", "X-1", "Assembly"),
		row("4.26", "X-1", "Assembly"),
	))
	var capacityErr *models.CapacityExceededError
	require.ErrorAs(t, err, &capacityErr)
	assert.Equal(t, "8.25", capacityErr.Free.StringFixed(2))

	var count int64
	db.Model(&models.TaskEntry{}).Count(&count)
	assert.Zero(t, count)
	assert.True(t, spentHours(t, db, workID).IsZero())
}

func TestAddEntriesValidation(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedEmployee(t, db, "Ivanov Ivan", "1001", "Assembly shop")
	seedWork(t, db, "X-1", "Rig X-1", "Assembly", "100")

	_, err := svc.AddEntries(ctx, addInput("Ivanov Ivan (1001)", "2025-01-10"))
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.AddEntries(ctx, addInput("Ivanov Ivan (1001)", "2025-01-10", row("0", "X-1", "Assembly")))
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.AddEntries(ctx, addInput("Ivanov Ivan (1001)", "2025-01-10", row("-1", "X-1", "Assembly")))
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.AddEntries(ctx, addInput("Ivanov Ivan 1001", "2025-01-10", row("1", "X-1", "Assembly")))
	assert.ErrorIs(t, err, models.ErrInvalidEmployeeFormat)

	_, err = svc.AddEntries(ctx, addInput("Petrov Petr (9999)", "2025-01-10", row("1", "X-1", "Assembly")))
	assert.ErrorIs(t, err, models.ErrEmployeeNotFound)
}

func TestAddEntriesUnknownWorkFailsWholeBatch(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedEmployee(t, db, "Ivanov Ivan", "1001", "Assembly shop")
	workID := seedWork(t, db, "X-1", "Rig X-1", "Assembly", "100")

	_, err := svc.AddEntries(ctx, addInput("Ivanov Ivan (1001)", "2025-01-10",
		row("1.00", "X-1", "Assembly"),
		row("1.00", "X-1", "No such work"),
	))
	require.ErrorIs(t, err, models.ErrNotFound)

	// The first row must have rolled back with the failing one.
	var count int64
	db.Model(&models.TaskEntry{}).Count(&count)
	assert.Zero(t, count)
	assert.True(t, spentHours(t, db, workID).IsZero())
}

func TestAddEntriesSnapshotsEmployee(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedEmployee(t, db, "Ivanov Ivan", "1001", "Assembly shop")
	seedWork(t, db, "X-1", "Rig X-1", "Assembly", "100")

	ids, err := svc.AddEntries(ctx, addInput("Ivanov Ivan (1001)", "2025-01-10", row("2.00", "X-1", "Assembly")))
	require.NoError(t, err)
	require.Len(t, ids, 1)

	// Renaming the department later must not rewrite the recorded entry.
	require.NoError(t, db.Model(&models.Employee{}).
		Where("personnel_number = ?", "1001").
		Update("department", "Welding shop").Error)

	var entry models.TaskEntry
	require.NoError(t, db.First(&entry, ids[0]).Error)
	assert.Equal(t, "Assembly shop", entry.Department)
	assert.Equal(t, models.CategoryWorker, entry.EmployeeCategory)
}

func TestEditEntryExcludesOwnHours(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedEmployee(t, db, "Ivanov Ivan", "1001", "Assembly shop")
	workID := seedWork(t, db, "X-1", "Rig X-1", "Assembly", "100")

	ids, err := svc.AddEntries(ctx, addInput("Ivanov Ivan (1001)", "2025-01-10", row("8.25", "X-1", "Assembly")))
	require.NoError(t, err)

	// Without the exclusion the day would already be full.
	err = svc.EditEntry(ctx, ids[0], EditInput{
		EmployeeData:  "Ivanov Ivan (1001)",
		OperationDate: mustDate("2025-01-10"),
		Hours:         dec("8.00"),
		OrderNumber:   "X-1",
		OrderName:     "Rig X-1",
		WorkName:      "Assembly",
	})
	require.NoError(t, err)
	assert.True(t, spentHours(t, db, workID).Equal(dec("8.00")))

	err = svc.EditEntry(ctx, ids[0], EditInput{
		EmployeeData:  "Ivanov Ivan (1001)",
		OperationDate: mustDate("2025-01-10"),
		Hours:         dec("8.26"),
		OrderNumber:   "X-1",
		OrderName:     "Rig X-1",
		WorkName:      "Assembly",
	})
	var capacityErr *models.CapacityExceededError
	require.ErrorAs(t, err, &capacityErr)
	assert.Equal(t, "8.25", capacityErr.Free.StringFixed(2))
}

func TestEditEntryMovesHoursBetweenWorks(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedEmployee(t, db, "Ivanov Ivan", "1001", "Assembly shop")
	assemblyID := seedWork(t, db, "X-1", "Rig X-1", "Assembly", "100")
	weldingID := seedWork(t, db, "Y-2", "Rig Y-2", "Welding", "50")

	ids, err := svc.AddEntries(ctx, addInput("Ivanov Ivan (1001)", "2025-01-10", row("3.00", "X-1", "Assembly")))
	require.NoError(t, err)

	err = svc.EditEntry(ctx, ids[0], EditInput{
		EmployeeData:  "Ivanov Ivan (1001)",
		OperationDate: mustDate("2025-01-10"),
		Hours:         dec("2.50"),
		OrderNumber:   "Y-2",
		OrderName:     "Rig Y-2",
		WorkName:      "Welding",
	})
	require.NoError(t, err)

	assert.True(t, spentHours(t, db, assemblyID).IsZero())
	assert.True(t, spentHours(t, db, weldingID).Equal(dec("2.50")))
}

func TestDeleteEntryRoundTrip(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedEmployee(t, db, "Ivanov Ivan", "1001", "Assembly shop")
	workID := seedWork(t, db, "X-1", "Rig X-1", "Assembly", "100")

	_, err := svc.AddEntries(ctx, addInput("Ivanov Ivan (1001)", "2025-01-10", row("2.75", "X-1", "Assembly")))
	require.NoError(t, err)
	before := spentHours(t, db, workID)

	ids, err := svc.AddEntries(ctx, addInput("Ivanov Ivan (1001)", "2025-01-11", row("4.00", "X-1", "Assembly")))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEntry(ctx, ids[0]))
	assert.True(t, spentHours(t, db, workID).Equal(before))

	assert.ErrorIs(t, svc.DeleteEntry(ctx, ids[0]), models.ErrNotFound)
}

func TestRunningTotalsNeverDrift(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedEmployee(t, db, "Ivanov Ivan", "1001", "Assembly shop")
	seedEmployee(t, db, "Petrova Anna", "1002", "Welding shop")
	workID := seedWork(t, db, "X-1", "Rig X-1", "Assembly", "100")

	_, err := svc.AddEntries(ctx, addInput("Ivanov Ivan (1001)", "2025-01-10", row("3.00", "X-1", "Assembly")))
	require.NoError(t, err)
	ids, err := svc.AddEntries(ctx, addInput("Petrova Anna (1002)", "2025-01-10", row("5.00", "X-1", "Assembly")))
	require.NoError(t, err)
	_, err = svc.AddEntries(ctx, addInput("Ivanov Ivan (1001)", "2025-01-12", row("1.25", "X-1", "Assembly")))
	require.NoError(t, err)

	require.NoError(t, svc.EditEntry(ctx, ids[0], EditInput{
		EmployeeData:  "Petrova Anna (1002)",
		OperationDate: mustDate("2025-01-10"),
		Hours:         dec("4.50"),
		OrderNumber:   "X-1",
		OrderName:     "Rig X-1",
		WorkName:      "Assembly",
	}))
	require.NoError(t, svc.DeleteEntry(ctx, ids[0]))

	// The running total must equal the raw ledger sum.
	var fromLedger decimal.Decimal
	err = db.Model(&models.TaskEntry{}).
		Select("COALESCE(SUM(hours), 0)").
		Where("order_number = ? AND work_name = ?", "X-1", "Assembly").
		Row().Scan(&fromLedger)
	require.NoError(t, err)

	assert.True(t, spentHours(t, db, workID).Equal(fromLedger),
		"running total %s, ledger sum %s", spentHours(t, db, workID), fromLedger)
	assert.True(t, fromLedger.Equal(dec("4.25")))
}

func TestFreeHours(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedEmployee(t, db, "Ivanov Ivan", "1001", "Assembly shop")
	seedWork(t, db, "X-1", "Rig X-1", "Assembly", "100")

	free, err := svc.FreeHours(ctx, "1001", mustDate("2025-01-10"), 0)
	require.NoError(t, err)
	assert.True(t, free.Equal(DailyCapacity))

	ids, err := svc.AddEntries(ctx, addInput("Ivanov Ivan (1001)", "2025-01-10", row("3.00", "X-1", "Assembly")))
	require.NoError(t, err)

	free, err = svc.FreeHours(ctx, "1001", mustDate("2025-01-10"), 0)
	require.NoError(t, err)
	assert.True(t, free.Equal(dec("5.25")))

	free, err = svc.FreeHours(ctx, "1001", mustDate("2025-01-10"), ids[0])
	require.NoError(t, err)
	assert.True(t, free.Equal(DailyCapacity))
}

func mustDate(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
