package migrations

import (
	"github.com/jmylchreest/tvarr/internal/models"
	"gorm.io/gorm"
)

// migrationBSRecorderSchema creates the recorder, record, and account
// tables using GORM AutoMigrate.
func migrationBSRecorderSchema() Migration {
	return Migration{
		Version:     "001",
		Description: "Create recorders, records, and accounts tables",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				&models.AccountRow{},
				&models.RecorderRow{},
				&models.RecordRow{},
			)
		},
		Down: func(tx *gorm.DB) error {
			tables := []string{"records", "recorders", "accounts"}
			for _, table := range tables {
				if tx.Migrator().HasTable(table) {
					if err := tx.Migrator().DropTable(table); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
}
