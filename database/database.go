package database

import (
	"workhours/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres, migrates the schema and seeds the default admin
// account. The returned handle is passed explicitly into every service and
// handler; there is no package-level connection.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := seedDefaultAdmin(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the tasks, works, orders, employees and users
// tables. Exported so tests can run the same schema against SQLite.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Employee{},
		&models.Order{},
		&models.WorkItem{},
		&models.TaskEntry{},
	)
}

func seedDefaultAdmin(db *gorm.DB) error {
	var count int64
	db.Model(&models.User{}).Where("login = ?", "admin").Count(&count)
	if count > 0 {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Login:            "admin",
		Name:             "Administrator",
		PasswordHash:     string(hashedPassword),
		PermissionsLevel: models.LevelAdvanced,
		Enabled:          true,
	}

	if result := db.Create(&admin); result.Error != nil {
		return result.Error
	}

	logrus.Info("default admin user created (login: admin, password: admin)")
	return nil
}
