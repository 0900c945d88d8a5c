/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// AuditAction enumerates auditable actions.
type AuditAction string

const (
	AuditActionAPIKeyCreate AuditAction = "apikey.create"
	AuditActionAPIKeyRevoke AuditAction = "apikey.revoke"
	AuditActionRuleWrite    AuditAction = "rule.write"
)

// AuditLog records who did what, when.
type AuditLog struct {
	ID          string         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string         `gorm:"type:uuid;index" json:"user_id,omitempty"`
	HouseholdID string         `gorm:"type:uuid;index" json:"household_id,omitempty"`
	Action      AuditAction    `gorm:"type:varchar(64);index" json:"action"`
	Details     map[string]any `gorm:"serializer:json" json:"details,omitempty"`
	IPAddress   string         `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	Timestamp   time.Time      `gorm:"index" json:"timestamp"`
	CreatedAt   time.Time      `json:"created_at"`
}
