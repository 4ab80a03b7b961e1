// Package config loads opx's process-start environment settings (spec.md
// §6's table name / ARN / region table) and hot-reloads the rate-limit
// tunables file (the kill switch is read from its store instead), replacing any package-level mutable state with
// one Deps-style struct built once at startup (spec.md §9's "shared
// module-level state" redesign flag).
package config

import "os"

// Settings is the fixed environment configuration spec.md §6 enumerates.
// Every field is read once at process start; nothing here changes for the
// life of the process (the tunables Watcher hot-reloads are a separate,
// smaller file).
type Settings struct {
	AuditTableName       string
	ConfigTableName      string
	OutcomeTableName     string
	CalibrationTableName string
	SummaryTableName     string
	SnapshotTableName    string
	IncidentsTableName   string
	EvidenceTableName    string
	SignalsTableName     string
	PromotionsTableName  string

	PatternExtractionFunctionName string
	CalibrationFunctionName       string
	SnapshotFunctionName          string

	AlertTopicARN       string
	CloudWatchNamespace string
	EventBusName        string
	Region              string
}

// Load reads Settings from the process environment, applying spec.md §6's
// one documented default (CLOUDWATCH_NAMESPACE=LearningOperations).
func Load() Settings {
	return Settings{
		AuditTableName:       os.Getenv("AUDIT_TABLE_NAME"),
		ConfigTableName:      os.Getenv("CONFIG_TABLE_NAME"),
		OutcomeTableName:     os.Getenv("OUTCOME_TABLE_NAME"),
		CalibrationTableName: os.Getenv("CALIBRATION_TABLE_NAME"),
		SummaryTableName:     os.Getenv("SUMMARY_TABLE_NAME"),
		SnapshotTableName:    os.Getenv("SNAPSHOT_TABLE_NAME"),
		IncidentsTableName:   os.Getenv("INCIDENTS_TABLE_NAME"),
		EvidenceTableName:    os.Getenv("EVIDENCE_TABLE_NAME"),
		SignalsTableName:     os.Getenv("SIGNALS_TABLE_NAME"),
		PromotionsTableName:  os.Getenv("PROMOTIONS_TABLE_NAME"),

		PatternExtractionFunctionName: os.Getenv("PATTERN_EXTRACTION_FUNCTION_NAME"),
		CalibrationFunctionName:       os.Getenv("CALIBRATION_FUNCTION_NAME"),
		SnapshotFunctionName:          os.Getenv("SNAPSHOT_FUNCTION_NAME"),

		AlertTopicARN:       os.Getenv("ALERT_TOPIC_ARN"),
		CloudWatchNamespace: getenvDefault("CLOUDWATCH_NAMESPACE", "LearningOperations"),
		EventBusName:        os.Getenv("EVENT_BUS_NAME"),
		Region:              os.Getenv("AWS_REGION"),
	}
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
