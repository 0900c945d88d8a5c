/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"gorm.io/gorm"

	"github.com/friendsincode/vibedeck/internal/models"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		// Account-level models
		&models.User{},
		&models.APIKey{},
		&models.AuditLog{},

		// Household resources
		&models.Household{},
		&models.Speaker{},
		&models.DeviceToken{},
		&models.VibeTag{},
		&models.VibeRule{},
	); err != nil {
		return err
	}

	return normalizeLegacyRuleTypes(database)
}

// normalizeLegacyRuleTypes rewrites rule_type values written by early
// builds that stored the empty string instead of 'base'.
func normalizeLegacyRuleTypes(database *gorm.DB) error {
	return database.Exec(
		"UPDATE vibe_rules SET rule_type = 'base' WHERE rule_type = '' OR rule_type IS NULL",
	).Error
}
