package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"workhours/ledger"
	"workhours/models"
	"workhours/report"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type TaskHandler struct {
	svc *ledger.Service
	agg *report.Aggregator
	db  *gorm.DB
	log *logrus.Logger
}

func NewTaskHandler(svc *ledger.Service, agg *report.Aggregator, db *gorm.DB, log *logrus.Logger) *TaskHandler {
	return &TaskHandler{
		svc: svc,
		agg: agg,
		db:  db,
		log: log,
	}
}

func filterFromQuery(q url.Values) (report.Filter, error) {
	f := report.Filter{
		Departments: q["departments"],
		Employee:    q.Get("employee_data"),
		OrderNumber: q.Get("order_number"),
		OrderName:   q.Get("order_name"),
		WorkName:    q.Get("work_name"),
	}

	if v := q.Get("start_date"); v != "" {
		date, err := models.ParseDate(v)
		if err != nil {
			return f, fmt.Errorf("%w: invalid start_date", models.ErrValidation)
		}
		f.StartDate = &date
	}
	if v := q.Get("end_date"); v != "" {
		date, err := models.ParseDate(v)
		if err != nil {
			return f, fmt.Errorf("%w: invalid end_date", models.ErrValidation)
		}
		f.EndDate = &date
	}
	return f, nil
}

// defaultToToday narrows an unbounded filter to the current date. The task
// table shows today's entries unless the caller asks for a range.
func defaultToToday(f report.Filter) report.Filter {
	if f.StartDate == nil && f.EndDate == nil {
		today := models.Date(time.Now())
		f.StartDate = &today
		f.EndDate = &today
	}
	return f
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r.URL.Query())
	if err != nil {
		respondError(w, err)
		return
	}

	tasks, err := h.agg.TasksInRange(r.Context(), defaultToToday(filter))
	if err != nil {
		respondError(w, err)
		return
	}

	total := decimal.Zero
	for _, task := range tasks {
		total = total.Add(task.Hours)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tasks":       tasks,
		"total_hours": total,
	})
}

type taskRowRequest struct {
	Hours       decimal.Decimal `json:"hours"`
	OrderNumber string          `json:"order_number" validate:"required"`
	OrderName   string          `json:"order_name"`
	WorkName    string          `json:"work_name" validate:"required"`
}

type createTasksRequest struct {
	EmployeeData  string           `json:"employee_data" validate:"required"`
	OperationDate string           `json:"operation_date"`
	Tasks         []taskRowRequest `json:"tasks" validate:"required,min=1,dive"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTasksRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	date := models.Date(time.Now())
	if req.OperationDate != "" {
		parsed, err := models.ParseDate(req.OperationDate)
		if err != nil {
			respondError(w, fmt.Errorf("%w: invalid operation_date", models.ErrValidation))
			return
		}
		date = parsed
	}

	in := ledger.AddInput{
		EmployeeData:  req.EmployeeData,
		OperationDate: date,
	}
	for _, row := range req.Tasks {
		in.Entries = append(in.Entries, ledger.EntryInput{
			Hours:       row.Hours,
			OrderNumber: row.OrderNumber,
			OrderName:   row.OrderName,
			WorkName:    row.WorkName,
		})
	}

	ids, err := h.svc.AddEntries(r.Context(), in)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{"ids": ids})
}

type updateTaskRequest struct {
	EmployeeData  string          `json:"employee_data" validate:"required"`
	OperationDate string          `json:"operation_date" validate:"required"`
	Hours         decimal.Decimal `json:"hours"`
	OrderNumber   string          `json:"order_number" validate:"required"`
	OrderName     string          `json:"order_name"`
	WorkName      string          `json:"work_name" validate:"required"`
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	date, err := models.ParseDate(req.OperationDate)
	if err != nil {
		respondError(w, fmt.Errorf("%w: invalid operation_date", models.ErrValidation))
		return
	}

	err = h.svc.EditEntry(r.Context(), id, ledger.EditInput{
		EmployeeData:  req.EmployeeData,
		OperationDate: date,
		Hours:         req.Hours,
		OrderNumber:   req.OrderNumber,
		OrderName:     req.OrderName,
		WorkName:      req.WorkName,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondMessage(w, http.StatusOK, "task entry updated")
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.svc.DeleteEntry(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	respondMessage(w, http.StatusOK, "task entry deleted")
}

// Export streams the filtered task list plus per-employee daily totals as a
// workbook.
func (h *TaskHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r.URL.Query())
	if err != nil {
		respondError(w, err)
		return
	}

	tasks, err := h.agg.TasksInRange(r.Context(), defaultToToday(filter))
	if err != nil {
		respondError(w, err)
		return
	}

	workbook, err := report.BuildTasksWorkbook(tasks, report.EmployeeTotals(tasks))
	if err != nil {
		respondError(w, err)
		return
	}

	streamWorkbook(w, workbook, report.ExportFilename("report", time.Now().Format(models.DateFormat)))
}

// SuggestEmployees returns "Name (Number)" completions for an employee field.
func (h *TaskHandler) SuggestEmployees(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	var employees []models.Employee
	err := h.db.
		Where("name LIKE ? OR personnel_number LIKE ?", "%"+query+"%", "%"+query+"%").
		Limit(10).
		Find(&employees).Error
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err))
		return
	}

	suggestions := make([]string, 0, len(employees))
	for _, e := range employees {
		suggestions = append(suggestions, e.Ref().String())
	}
	respondJSON(w, http.StatusOK, suggestions)
}

// SuggestOrders completes order numbers (default) or names (field=name).
func (h *TaskHandler) SuggestOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	column := "number"
	if r.URL.Query().Get("field") == "name" {
		column = "name"
	}

	var suggestions []string
	err := h.db.Model(&models.Order{}).
		Where(column+" LIKE ?", "%"+query+"%").
		Limit(10).
		Pluck(column, &suggestions).Error
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err))
		return
	}
	respondJSON(w, http.StatusOK, suggestions)
}

// OrderWorks lists an order's work items with planned, spent and remaining
// hours, the data behind the entry form's work picker.
func (h *TaskHandler) OrderWorks(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	var order models.Order
	if err := h.db.Where("number = ?", number).First(&order).Error; err != nil {
		respondError(w, fmt.Errorf("%w: order %q", models.ErrNotFound, number))
		return
	}

	var works []models.WorkItem
	if err := h.db.Where("order_id = ?", order.ID).Order("id").Find(&works).Error; err != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err))
		return
	}

	type workRow struct {
		ID             uint            `json:"id"`
		Name           string          `json:"name"`
		PlannedHours   decimal.Decimal `json:"planned_hours"`
		SpentHours     decimal.Decimal `json:"spent_hours"`
		RemainingHours decimal.Decimal `json:"remaining_hours"`
	}
	rows := make([]workRow, 0, len(works))
	for i := range works {
		rows = append(rows, workRow{
			ID:             works[i].ID,
			Name:           works[i].Name,
			PlannedHours:   works[i].PlannedHours,
			SpentHours:     works[i].SpentHours,
			RemainingHours: works[i].RemainingHours(),
		})
	}
	respondJSON(w, http.StatusOK, rows)
}

// OrderSummary reports an order's aggregate planned/spent/remaining hours.
func (h *TaskHandler) OrderSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.agg.OrderSummary(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func idParam(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id", models.ErrValidation)
	}
	return uint(id), nil
}

func streamWorkbook(w http.ResponseWriter, f *excelize.File, filename string) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	if err := f.Write(w); err != nil {
		logrus.WithError(err).Error("failed to stream workbook")
	}
}
