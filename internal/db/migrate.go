package db

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/cpq-app/internal/models"
	"github.com/diewo77/cpq-app/internal/payments"
)

func ConnectAndMigrate() (*gorm.DB, error) {
	dsn := GetNormalizedDSN()
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN is empty, check the environment configuration")
	}
	var db *gorm.DB
	var err error
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		fmt.Println("Retrying DB connection...", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}

	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	// Print masked DSN once for diagnostics (before migrations for visibility)
	masked := dsn
	if strings.Contains(masked, "password=") {
		re := regexp.MustCompile(`(password=)([^\s]+)`)
		masked = re.ReplaceAllString(masked, `${1}***`)
	}
	fmt.Println("[DB] Using DSN:", masked)
	// MIGRATIONS=1 runs sql migrations via golang-migrate; otherwise the
	// AutoMigrate fallback (dev convenience) keeps the schema current.
	if v := strings.ToLower(os.Getenv("MIGRATIONS")); v == "1" || v == "true" || v == "yes" {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range Models() {
			if migErr := db.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}

	// sanity check: ensure required core tables exist
	for _, table := range []string{"quotes", "invoices", "group_quotes"} {
		if !db.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	// Seeding only when explicitly requested (e.g. development) via DB_SEED=1|true
	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		seed(db)
	}
	return db, nil
}

// Models lists every persisted type, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.Role{}, &models.User{}, &models.Address{},
		&models.Organization{}, &models.Customer{},
		&models.GroupQuote{}, &models.GroupQuoteLineItem{},
		&models.Quote{}, &models.QuoteLineItem{}, &models.QuotePayment{},
		&models.Invoice{}, &models.InvoiceLineItem{},
		&payments.Charge{}, &models.AuditLog{},
	}
}

func seed(db *gorm.DB) {
	// Base roles
	for _, role := range []models.Role{
		{Name: "admin", Description: "Administrator"},
		{Name: "user", Description: "Default user role"},
	} {
		var existing models.Role
		if err := db.Where("name = ?", role.Name).First(&existing).Error; err == gorm.ErrRecordNotFound {
			db.Create(&role)
		}
	}
	// Demo organization + customer for development setups
	var org models.Organization
	if err := db.Where("name = ?", "Acme Corp").First(&org).Error; err == gorm.ErrRecordNotFound {
		addr := models.Address{Line1: "1 Main St", PostalCode: "75000", City: "Paris", Country: "FR", Kind: "billing"}
		if db.Create(&addr).Error == nil {
			org = models.Organization{Name: "Acme Corp", Email: "billing@acme.test", AddressID: addr.ID}
			db.Create(&org)
			customer := models.Customer{Name: "Acme Dev", Email: "dev@acme.test", AddressID: addr.ID, OrganizationID: &org.ID}
			db.Create(&customer)
		}
	}
}

// runSQLMigrations executes migrations in ./migrations using the
// golang-migrate file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", ToURLDSN(dsn))
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
