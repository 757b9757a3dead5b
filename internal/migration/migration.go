package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	apikeydomain "github.com/smallbiznis/bizadmin/internal/apikey/domain"
	clientdomain "github.com/smallbiznis/bizadmin/internal/client/domain"
	companydomain "github.com/smallbiznis/bizadmin/internal/companysettings/domain"
	invoicedomain "github.com/smallbiznis/bizadmin/internal/invoice/domain"
	projectdomain "github.com/smallbiznis/bizadmin/internal/project/domain"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB.

	return nil
}

// Models lists every table the service owns, parents first.
func Models() []any {
	return []any{
		&clientdomain.Client{},
		&projectdomain.Project{},
		&companydomain.CompanySettings{},
		&invoicedomain.Invoice{},
		&invoicedomain.LineItem{},
		&invoicedomain.InvoiceSequence{},
		&apikeydomain.APIKey{},
	}
}

// AutoMigrate creates the schema from the models for dialects without
// SQL migrations (sqlite, mysql).
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
