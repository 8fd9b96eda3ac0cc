package repository

import (
	"fmt"

	"payout-service/internal/domain/payout"

	"gorm.io/gorm"
)

// InitSchema handles the database schema migration.
// It runs Gorm auto-migration and then adds the check constraints gorm tags
// cannot express.
func InitSchema(db *gorm.DB) error {
	if err := AutoMigrate(db); err != nil {
		return err
	}

	// We use 'DO $$ BEGIN ... END $$' block to safely add constraints only if they don't exist.
	constraints := []string{
		`DO $$ BEGIN
			ALTER TABLE payouts ADD CONSTRAINT chk_payouts_amount_min CHECK (amount >= 0.01);
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE payouts ADD CONSTRAINT chk_payouts_currency CHECK (currency IN ('USD', 'EUR', 'RUB', 'GBP'));
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE payouts ADD CONSTRAINT chk_payouts_status CHECK (status IN ('pending', 'processing', 'completed', 'failed', 'cancelled'));
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
	}

	for _, c := range constraints {
		if err := db.Exec(c).Error; err != nil {
			return fmt.Errorf("failed to add constraint: %w", err)
		}
	}

	return nil
}

// AutoMigrate creates or alters the tables for every persisted model.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&payout.Payout{}); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	return nil
}

// DropSchema removes every table owned by this service.
func DropSchema(db *gorm.DB) error {
	if err := db.Migrator().DropTable(&payout.Payout{}); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	return nil
}
