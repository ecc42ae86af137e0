package database

import (
	"lengolf-closing/internal/config"
	"lengolf-closing/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error
	logger := config.GetLogger()

	// TranslateError lets the closing store see gorm.ErrDuplicatedKey when
	// two terminals race on the same closing_date.
	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatalf("could not connect to database: %v", err)
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.Sale{},
		&models.Reconciliation{},
		&models.AuditLog{},
	)
	if err != nil {
		logger.Fatalf("AutoMigrate failed: %v", err)
	}

	logger.Info("database connected, migrations done")
}
