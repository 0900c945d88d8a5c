/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/friendsincode/vibedeck/internal/models"
	"github.com/friendsincode/vibedeck/internal/timerules"
)

var importRulesCmd = &cobra.Command{
	Use:   "import-rules",
	Short: "Import vibe rules from a YAML file",
	Long:  "Load a household's vibe rules from a YAML file, validating each rule against the existing set before writing",
	RunE:  runImportRules,
}

var (
	importRulesFile   string
	importRulesDryRun bool
)

func init() {
	rootCmd.AddCommand(importRulesCmd)

	importRulesCmd.Flags().StringVar(&importRulesFile, "file", "", "Path to the rules YAML file (required)")
	importRulesCmd.Flags().BoolVar(&importRulesDryRun, "dry-run", false, "Validate without writing")
	_ = importRulesCmd.MarkFlagRequired("file")
}

// rulesFile is the YAML document layout for rule imports.
type rulesFile struct {
	HouseholdID string `yaml:"household_id"`
	Rules       []struct {
		Name         string   `yaml:"name"`
		StartHour    int      `yaml:"start_hour"`
		EndHour      int      `yaml:"end_hour"`
		AllowedVibes []string `yaml:"allowed_vibes"`
		RuleType     string   `yaml:"rule_type"`
		Days         []int    `yaml:"days"`
	} `yaml:"rules"`
}

func runImportRules(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	raw, err := os.ReadFile(importRulesFile)
	if err != nil {
		return fmt.Errorf("read rules file: %w", err)
	}

	var doc rulesFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse rules file: %w", err)
	}
	if doc.HouseholdID == "" {
		return errors.New("rules file must set household_id")
	}
	if len(doc.Rules) == 0 {
		return errors.New("rules file contains no rules")
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	store := timerules.NewStore(database, logger)
	ctx := context.Background()

	imported := 0
	for i, entry := range doc.Rules {
		vibes := make([]models.Vibe, 0, len(entry.AllowedVibes))
		for _, v := range entry.AllowedVibes {
			vibes = append(vibes, models.Vibe(v))
		}

		rule := models.VibeRule{
			HouseholdID:  doc.HouseholdID,
			Name:         entry.Name,
			StartHour:    entry.StartHour,
			EndHour:      entry.EndHour,
			AllowedVibes: vibes,
			RuleType:     models.VibeRuleType(entry.RuleType),
			Days:         entry.Days,
		}
		if rule.RuleType == "" {
			rule.RuleType = models.RuleBase
		}

		if importRulesDryRun {
			existing, err := store.List(ctx, doc.HouseholdID)
			if err != nil {
				return fmt.Errorf("load existing rules: %w", err)
			}
			if err := timerules.Validate(rule, existing); err != nil {
				return fmt.Errorf("rule %d (%s): %w", i+1, entry.Name, err)
			}
			logger.Info().Int("index", i+1).Str("name", entry.Name).Msg("rule valid (dry run)")
			continue
		}

		saved, err := store.Save(ctx, rule)
		if err != nil {
			return fmt.Errorf("rule %d (%s): %w", i+1, entry.Name, err)
		}
		logger.Info().Uint("rule_id", saved.ID).Str("name", saved.Name).Msg("rule imported")
		imported++
	}

	logger.Info().
		Str("household_id", doc.HouseholdID).
		Int("imported", imported).
		Bool("dry_run", importRulesDryRun).
		Msg("rule import finished")
	return nil
}
