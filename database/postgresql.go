package database

import (
	"ClinicHub/models"
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NotifyChannel is the LISTEN/NOTIFY channel the row-change triggers publish on.
const NotifyChannel = "row_changes"

// watchedTables maps each table with a change trigger to the column holding
// its patient reference. Patients reference themselves through id.
var watchedTables = map[string]string{
	"patients":     "id",
	"appointments": "patient_id",
	"transactions": "patient_id",
	"tasks":        "patient_id",
	"tags":         "",
	"patient_tags": "patient_id",
	"messages":     "patient_id",
	"activities":   "patient_id",
}

// InitDB opens the PostgreSQL connection and configures it.
func InitDB(ctx context.Context, dsn string, dev bool) (*gorm.DB, error) {
	// Configure logging level based on environment
	logMode := logger.Silent
	if dev {
		logMode = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt: true,
		Logger:      logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database connection")
	}

	if err := configureConnectionPool(db); err != nil {
		return nil, err
	}

	if err := testDatabaseConnection(ctx, db); err != nil {
		return nil, err
	}

	log.Info().Msg("database connection established")
	return db, nil
}

// configureConnectionPool sets up the connection pool settings for the database.
func configureConnectionPool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get sql.DB from GORM")
	}
	sqlDB.SetMaxOpenConns(40)
	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
	return nil
}

// testDatabaseConnection verifies that the database connection is functional.
func testDatabaseConnection(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get sql.DB from GORM")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.Wrap(err, "failed to ping database")
	}
	return nil
}

// Migrate brings the schema up to date, installs the change-notify triggers
// on PostgreSQL and seeds the team roles.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.Patient{}, "Tags", &models.PatientTag{}); err != nil {
		return errors.Wrap(err, "failed to set up patient_tags join table")
	}

	err := db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Patient{},
		&models.Tag{},
		&models.PatientTag{},
		&models.Appointment{},
		&models.Transaction{},
		&models.Task{},
		&models.Message{},
		&models.Activity{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run migrations")
	}

	if db.Dialector.Name() == "postgres" {
		if err := installChangeTriggers(db); err != nil {
			return err
		}
	}

	if err := models.SeedRoles(db); err != nil {
		return errors.Wrap(err, "failed to seed roles")
	}
	return nil
}

const notifyFunctionSQL = `
CREATE OR REPLACE FUNCTION clinichub_notify_row_change() RETURNS trigger AS $$
DECLARE
	row_data jsonb;
	patient_ref text;
BEGIN
	IF TG_OP = 'DELETE' THEN
		row_data := to_jsonb(OLD);
	ELSE
		row_data := to_jsonb(NEW);
	END IF;
	IF TG_ARGV[1] <> '' THEN
		patient_ref := row_data ->> TG_ARGV[1];
	END IF;
	PERFORM pg_notify(TG_ARGV[0], json_build_object(
		'table', TG_TABLE_NAME,
		'op', lower(TG_OP),
		'id', COALESCE(row_data ->> 'id', ''),
		'patient_id', COALESCE(patient_ref, '')
	)::text);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;`

// installChangeTriggers creates one AFTER trigger per watched table calling
// pg_notify with {table, op, id, patient_id}.
func installChangeTriggers(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(notifyFunctionSQL).Error; err != nil {
			return errors.Wrap(err, "failed to create notify function")
		}
		for table, patientColumn := range watchedTables {
			trigger := table + "_notify_change"
			if err := tx.Exec(fmt.Sprintf("DROP TRIGGER IF EXISTS %s ON %s", trigger, table)).Error; err != nil {
				return errors.Wrapf(err, "failed to drop trigger on %s", table)
			}
			stmt := fmt.Sprintf(
				"CREATE TRIGGER %s AFTER INSERT OR UPDATE OR DELETE ON %s FOR EACH ROW EXECUTE FUNCTION clinichub_notify_row_change('%s', '%s')",
				trigger, table, NotifyChannel, patientColumn,
			)
			if err := tx.Exec(stmt).Error; err != nil {
				return errors.Wrapf(err, "failed to create trigger on %s", table)
			}
		}
		return nil
	})
}

// WatchedTables returns the tables that publish row changes.
func WatchedTables() []string {
	tables := make([]string, 0, len(watchedTables))
	for table := range watchedTables {
		tables = append(tables, table)
	}
	return tables
}
