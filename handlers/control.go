package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"workhours/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ControlHandler serves the advanced-permission master-data surface:
// employees, orders, work items, login accounts and the overview counters.
// Uniqueness is checked explicitly before each insert so duplicates come
// back as a clean conflict, not a driver error.
type ControlHandler struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewControlHandler(db *gorm.DB, log *logrus.Logger) *ControlHandler {
	return &ControlHandler{db: db, log: log}
}

// --- employees ---

type employeeRequest struct {
	Name            string          `json:"name" validate:"required"`
	PersonnelNumber string          `json:"personnel_number" validate:"required"`
	Department      string          `json:"department" validate:"required"`
	Category        models.Category `json:"category" validate:"required"`
}

func (h *ControlHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	query := h.db.Model(&models.Employee{})
	if name := r.URL.Query().Get("name"); name != "" {
		query = query.Where("name = ?", name)
	}
	if number := r.URL.Query().Get("personnel_number"); number != "" {
		query = query.Where("personnel_number = ?", number)
	}

	var employees []models.Employee
	if err := query.Order("id").Find(&employees).Error; err != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err))
		return
	}
	respondJSON(w, http.StatusOK, employees)
}

func (h *ControlHandler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if !req.Category.Valid() {
		respondError(w, fmt.Errorf("%w: unknown category %q", models.ErrValidation, req.Category))
		return
	}

	if h.exists(&models.Employee{}, "personnel_number = ?", 0, req.PersonnelNumber) {
		respondError(w, fmt.Errorf("%w: personnel number %q", models.ErrDuplicateKey, req.PersonnelNumber))
		return
	}

	employee := models.Employee{
		Name:            req.Name,
		PersonnelNumber: req.PersonnelNumber,
		Department:      req.Department,
		Category:        req.Category,
	}
	if err := h.db.Create(&employee).Error; err != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err))
		return
	}
	respondJSON(w, http.StatusCreated, employee)
}

func (h *ControlHandler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req employeeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if !req.Category.Valid() {
		respondError(w, fmt.Errorf("%w: unknown category %q", models.ErrValidation, req.Category))
		return
	}

	var employee models.Employee
	if err := h.db.First(&employee, id).Error; err != nil {
		respondError(w, fmt.Errorf("%w: employee %d", models.ErrNotFound, id))
		return
	}

	if h.exists(&models.Employee{}, "personnel_number = ?", id, req.PersonnelNumber) {
		respondError(w, fmt.Errorf("%w: personnel number %q", models.ErrDuplicateKey, req.PersonnelNumber))
		return
	}

	employee.Name = req.Name
	employee.PersonnelNumber = req.PersonnelNumber
	employee.Department = req.Department
	employee.Category = req.Category
	if err := h.db.Save(&employee).Error; err != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err))
		return
	}
	respondJSON(w, http.StatusOK, employee)
}

func (h *ControlHandler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, &models.Employee{}, "employee")
}

// --- orders ---

type orderRequest struct {
	Number string `json:"number" validate:"required"`
	Name   string `json:"name" validate:"required"`
}

func (h *ControlHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	query := h.db.Model(&models.Order{})
	if number := r.URL.Query().Get("number"); number != "" {
		query = query.Where("number = ?", number)
	}
	if name := r.URL.Query().Get("name"); name != "" {
		query = query.Where("name = ?", name)
	}

	var orders []models.Order
	if err := query.Order("id").Find(&orders).Error; err != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err))
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *ControlHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if h.exists(&models.Order{}, "number = ?", 0, req.Number) {
		respondError(w, fmt.Errorf("%w: order number %q", models.ErrDuplicateKey, req.Number))
		return
	}

	order := models.Order{Number: req.Number, Name: req.Name}
	if err := h.db.Create(&order).Error; err != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err))
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (h *ControlHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	var order models.Order
	if err := h.db.First(&order, id).Error; err != nil {
		respondError(w, fmt.Errorf("%w: order %d", models.ErrNotFound, id))
		return
	}

	if h.exists(&models.Order{}, "number = ?", id, req.Number) {
		respondError(w, fmt.Errorf("%w: order number %q", models.ErrDuplicateKey, req.Number))
		return
	}

	order.Number = req.Number
	order.Name = req.Name
	if err := h.db.Save(&order).Error; err != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err))
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *ControlHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, &models.Order{}, "order")
}

// --- work items ---

type createWorkRequest struct {
	OrderNumber  string          `json:"order_number" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	PlannedHours decimal.Decimal `json:"planned_hours"`
}

type updateWorkRequest struct {
	Name         string          `json:"name" validate:"required"`
	PlannedHours decimal.Decimal `json:"planned_hours"`
}

func (h *ControlHandler) ListWorks(w http.ResponseWriter, r *http.Request) {
	query := h.db.Model(&models.WorkItem{}).
		Select("works.*").
		Joins("JOIN orders ON orders.id = works.order_id")
	if number := r.URL.Query().Get("order_number"); number != "" {
		query = query.Where("orders.number = ?", number)
	}
	if name := r.URL.Query().Get("name"); name != "" {
		query = query.Where("works.name = ?", name)
	}

	var works []models.WorkItem
	if err := query.Order("works.id").Find(&works).Error; err != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err))
		return
	}
	respondJSON(w, http.StatusOK, works)
}

func (h *ControlHandler) CreateWork(w http.ResponseWriter, r *http.Request) {
	var req createWorkRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.PlannedHours.IsNegative() {
		respondError(w, fmt.Errorf("%w: planned hours must not be negative", models.ErrValidation))
		return
	}

	var order models.Order
	err := h.db.Where("number = ?", req.OrderNumber).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, fmt.Errorf("%w: order %q", models.ErrNotFound, req.OrderNumber))
		return
	}
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err))
		return
	}

	if h.exists(&models.WorkItem{}, "order_id = ? AND name = ?", 0, order.ID, req.Name) {
		respondError(w, fmt.Errorf("%w: work %q on order %q", models.ErrDuplicateKey, req.Name, req.OrderNumber))
		return
	}

	work := models.WorkItem{
		OrderID:      order.ID,
		Name:         req.Name,
		PlannedHours: req.PlannedHours,
		SpentHours:   decimal.Zero,
	}
	if err := h.db.Create(&work).Error; err != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err))
		return
	}
	respondJSON(w, http.StatusCreated, work)
}

func (h *ControlHandler) UpdateWork(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req updateWorkRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.PlannedHours.IsNegative() {
		respondError(w, fmt.Errorf("%w: planned hours must not be negative", models.ErrValidation))
		return
	}

	var work models.WorkItem
	if err := h.db.First(&work, id).Error; err != nil {
		respondError(w, fmt.Errorf("%w: work item %d", models.ErrNotFound, id))
		return
	}

	if h.exists(&models.WorkItem{}, "order_id = ? AND name = ?", id, work.OrderID, req.Name) {
		respondError(w, fmt.Errorf("%w: work %q", models.ErrDuplicateKey, req.Name))
		return
	}

	work.Name = req.Name
	work.PlannedHours = req.PlannedHours
	if err := h.db.Save(&work).Error; err != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err))
		return
	}
	respondJSON(w, http.StatusOK, work)
}

func (h *ControlHandler) DeleteWork(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, &models.WorkItem{}, "work item")
}

// --- users ---

type userRequest struct {
	Name             string                  `json:"name" validate:"required"`
	Department       string                  `json:"department"`
	Login            string                  `json:"login" validate:"required"`
	Password         string                  `json:"password"`
	PermissionsLevel models.PermissionsLevel `json:"permissions_level" validate:"required"`
	Enabled          *bool                   `json:"enabled"`
}

func (h *ControlHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := h.db.Order("id").Find(&users).Error; err != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err))
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// CreateUser provisions an account. Password is optional: an account created
// without one stays unusable until its owner completes registration.
func (h *ControlHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if !req.PermissionsLevel.Valid() {
		respondError(w, fmt.Errorf("%w: unknown permissions level %q", models.ErrValidation, req.PermissionsLevel))
		return
	}

	if h.exists(&models.User{}, "login = ?", 0, req.Login) {
		respondError(w, fmt.Errorf("%w: login %q", models.ErrDuplicateKey, req.Login))
		return
	}

	user := models.User{
		Name:             req.Name,
		Department:       req.Department,
		Login:            req.Login,
		PermissionsLevel: req.PermissionsLevel,
		Enabled:          req.Enabled == nil || *req.Enabled,
	}
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondError(w, err)
			return
		}
		user.PasswordHash = string(hashed)
	}

	if err := h.db.Create(&user).Error; err != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err))
		return
	}
	h.log.WithField("login", user.Login).Info("user account provisioned")
	respondJSON(w, http.StatusCreated, user)
}

func (h *ControlHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if !req.PermissionsLevel.Valid() {
		respondError(w, fmt.Errorf("%w: unknown permissions level %q", models.ErrValidation, req.PermissionsLevel))
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		respondError(w, fmt.Errorf("%w: user %d", models.ErrNotFound, id))
		return
	}

	if h.exists(&models.User{}, "login = ?", id, req.Login) {
		respondError(w, fmt.Errorf("%w: login %q", models.ErrDuplicateKey, req.Login))
		return
	}

	user.Name = req.Name
	user.Department = req.Department
	user.Login = req.Login
	user.PermissionsLevel = req.PermissionsLevel
	if req.Enabled != nil {
		user.Enabled = *req.Enabled
	}
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondError(w, err)
			return
		}
		user.PasswordHash = string(hashed)
	}

	if err := h.db.Save(&user).Error; err != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err))
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (h *ControlHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, &models.User{}, "user")
}

// ResetUserPassword clears the stored hash so the account owner can register
// again with a new password.
func (h *ControlHandler) ResetUserPassword(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		respondError(w, fmt.Errorf("%w: user %d", models.ErrNotFound, id))
		return
	}

	if err := h.db.Model(&user).Update("password_hash", "").Error; err != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err))
		return
	}
	h.log.WithField("login", user.Login).Info("user password reset")
	respondMessage(w, http.StatusOK, "password reset")
}

// --- overview ---

func (h *ControlHandler) Overview(w http.ResponseWriter, r *http.Request) {
	var orders, employees, tasks int64
	if err := h.db.Model(&models.Order{}).Count(&orders).Error; err != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err))
		return
	}
	if err := h.db.Model(&models.Employee{}).Count(&employees).Error; err != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err))
		return
	}
	if err := h.db.Model(&models.TaskEntry{}).Count(&tasks).Error; err != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{
		"total_orders":    orders,
		"total_employees": employees,
		"total_tasks":     tasks,
	})
}

// exists runs the explicit pre-insert uniqueness check; excludeID lets an
// update skip the row being edited.
func (h *ControlHandler) exists(model interface{}, condition string, excludeID uint, args ...interface{}) bool {
	query := h.db.Model(model).Where(condition, args...)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	query.Count(&count)
	return count > 0
}

func (h *ControlHandler) deleteByID(w http.ResponseWriter, r *http.Request, model interface{}, label string) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	result := h.db.Delete(model, id)
	if result.Error != nil {
		respondError(w, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, result.Error))
		return
	}
	if result.RowsAffected == 0 {
		respondError(w, fmt.Errorf("%w: %s %d", models.ErrNotFound, label, id))
		return
	}
	respondMessage(w, http.StatusOK, label+" deleted")
}
