package models

import (
	"fmt"

	"gorm.io/gorm"
)

// profileColumns are the columns added to users after the first release.
// Older databases only carry id, username, email, password and oauth_github.
var profileColumns = []string{
	"FirstName",
	"LastName",
	"Address",
	"City",
	"Country",
	"PostalCode",
	"AboutMe",
	"Position",
	"ProfileImage",
}

// PatchReport describes what PatchUserColumns changed.
type PatchReport struct {
	CreatedTable bool
	Added        []string
}

// AutoMigrate creates or updates every table the server owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{})
}

// PatchUserColumns brings an existing users table up to date without
// touching rows: it creates the table when missing, otherwise adds each
// missing profile column.
func PatchUserColumns(db *gorm.DB) (*PatchReport, error) {
	m := db.Migrator()
	report := &PatchReport{}

	if !m.HasTable(&User{}) {
		if err := m.CreateTable(&User{}); err != nil {
			return nil, fmt.Errorf("create users table: %w", err)
		}
		report.CreatedTable = true
		return report, nil
	}

	for _, field := range profileColumns {
		if m.HasColumn(&User{}, field) {
			continue
		}
		if err := m.AddColumn(&User{}, field); err != nil {
			return report, fmt.Errorf("add column %s: %w", field, err)
		}
		report.Added = append(report.Added, field)
	}
	return report, nil
}
