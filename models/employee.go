package models

import (
	"fmt"
	"regexp"
	"time"
)

type Category string

const (
	CategoryWorker     Category = "worker"
	CategorySpecialist Category = "specialist"
	CategoryManager    Category = "manager"
)

// DisplayName returns the human-readable label used on report sheets.
func (c Category) DisplayName() string {
	switch c {
	case CategoryWorker:
		return "Worker"
	case CategorySpecialist:
		return "Specialist"
	case CategoryManager:
		return "Lead specialist"
	}
	return string(c)
}

func (c Category) Valid() bool {
	switch c {
	case CategoryWorker, CategorySpecialist, CategoryManager:
		return true
	}
	return false
}

// Employee is the master-data record behind a personnel number. Task entries
// reference it weakly: they copy name, department and category at write time.
type Employee struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Name            string    `gorm:"not null;size:200" json:"name"`
	PersonnelNumber string    `gorm:"uniqueIndex;not null;size:20" json:"personnel_number"`
	Department      string    `gorm:"not null;size:200" json:"department"`
	Category        Category  `gorm:"not null;size:20" json:"category"`
}

func (Employee) TableName() string {
	return "employees"
}

// Ref returns the display form operators type into employee fields.
func (e *Employee) Ref() EmployeeRef {
	return EmployeeRef{Name: e.Name, PersonnelNumber: e.PersonnelNumber}
}

// EmployeeRef is the parsed form of the "<Name> (<PersonnelNumber>)"
// convention used wherever an operator free-types an employee reference.
type EmployeeRef struct {
	Name            string `json:"name"`
	PersonnelNumber string `json:"personnel_number"`
}

func (r EmployeeRef) String() string {
	return fmt.Sprintf("%s (%s)", r.Name, r.PersonnelNumber)
}

var employeeRefPattern = regexp.MustCompile(`^([\p{L}\p{N}_\s]+?)\s\((\d+)\)$`)

// ParseEmployeeRef parses an employee display string. Malformed input yields
// ErrInvalidEmployeeFormat, never a panic.
func ParseEmployeeRef(value string) (EmployeeRef, error) {
	m := employeeRefPattern.FindStringSubmatch(value)
	if m == nil {
		return EmployeeRef{}, ErrInvalidEmployeeFormat
	}
	return EmployeeRef{Name: m[1], PersonnelNumber: m[2]}, nil
}
