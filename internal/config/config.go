// =============================================================================
// Campaign Reconciler - Configuration Module
// =============================================================================
//
// This module loads the single YAML file that drives a reconciliation run:
// where the three inputs live, how they are read, how the merges are keyed,
// and where the reconciled report is written.
//
// LOADING:
//   Load reads the file, Parse unmarshals it, then defaults are applied and
//   the result is validated. A validation failure is a ConfigurationError.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/campaign-reconciler/internal/types"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the settings for a reconciliation run.
type Config struct {
	// =========================================================================
	// INPUT SETTINGS
	// =========================================================================

	// ServedReport is the path to the served-report CSV export.
	// Default: "./inputs/dcm_reports/report.csv"
	ServedReport string `yaml:"served_report"`

	// PlanDir is the directory scanned for media plan CSV files.
	// Default: "./inputs/plans"
	PlanDir string `yaml:"plan_dir"`

	// PlanPattern is the glob used inside PlanDir.
	// Default: "*Media Plan*.csv"
	PlanPattern string `yaml:"plan_pattern"`

	// ProgrammaticDir is the directory scanned for programmatic spend
	// reports. When no file matches, the programmatic merge is skipped.
	// Default: "./inputs/programmatic_reports"
	ProgrammaticDir string `yaml:"programmatic_dir"`

	// ProgrammaticPattern is the glob used inside ProgrammaticDir.
	// Files ending in .csv are read as CSV, anything else as XLSX.
	// Default: "*.xlsx"
	ProgrammaticPattern string `yaml:"programmatic_pattern"`

	// ProgrammaticSheet is the worksheet holding the spend rows.
	// Default: "Raw Data"
	ProgrammaticSheet string `yaml:"programmatic_sheet"`

	// CSVSettings controls how the served report and plans are read.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputDir is where the reconciled report and run summary are written.
	// Default: "./final_reports"
	OutputDir string `yaml:"output_dir"`

	// OutputFormat is "xlsx" or "csv".
	// Default: "xlsx"
	OutputFormat string `yaml:"output_format"`

	// OutputSheet names the worksheet when OutputFormat is "xlsx".
	// Default: "Raw Data"
	OutputSheet string `yaml:"output_sheet"`

	// OutputNameFormat defines the output file name.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {date}      - Current date (YYYYMMDD)
	// Default: "reconciled_{timestamp}_{uuid}"
	OutputNameFormat string `yaml:"output_name_format"`

	// SQLitePath, when set, also stores the reconciled rows in a SQLite
	// database.
	SQLitePath string `yaml:"sqlite_path"`

	// SQLiteTable is the result table name.
	// Default: "reconciled_rows"
	SQLiteTable string `yaml:"sqlite_table"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is the path to the log file. Empty logs to stdout.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency bounds how many plan or programmatic files are read at
	// once. Set to 1 for sequential loading.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps the run going when the balance audit reports
	// discrepancies. Load and merge failures always stop the run.
	// Default: true
	ContinueOnError *bool `yaml:"continue_on_error"`

	// Merge holds the join settings.
	Merge MergeSettings `yaml:"merge"`

	// Pacing holds the monthly commitment settings.
	Pacing PacingSettings `yaml:"pacing"`
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for reading CSV files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields.
	// Common values: "," (comma), "|" (pipe), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows for tabular CSV sources.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// DataStartRow is the 1-indexed row where data begins for tabular CSV
	// sources.
	// Default: HeaderRows + 1
	DataStartRow int `yaml:"data_start_row"`

	// Encoding is the character encoding of the file.
	// Supported: "UTF-8", "UTF-16", "ISO-8859-1", "Windows-1252"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`
}

// =============================================================================
// MERGE SETTINGS STRUCTURE
// =============================================================================

// MergeSettings configures the plan and programmatic merges.
type MergeSettings struct {
	// PlanJoinOn are the columns the plan is joined on. Must contain
	// "Placement".
	// Default: ["Campaign", "Placement"]
	PlanJoinOn []string `yaml:"plan_join_on"`

	// ProgrammaticJoinOn are the columns spend is joined on. Must contain
	// "Placement" or "Placement ID".
	// Default: ["Placement"]
	ProgrammaticJoinOn []string `yaml:"programmatic_join_on"`

	// SortBy orders the served rows before the plan merge.
	// Default: ["Site (DCM)", "Placement"]
	SortBy []string `yaml:"sort_by"`

	// SpendColumn is the spend measure in programmatic sources.
	// Default: "Spend"
	SpendColumn string `yaml:"spend_column"`

	// CostColumn is the served cost column replaced by programmatic spend.
	// Default: "Media Cost"
	CostColumn string `yaml:"cost_column"`

	// SpendWeightBy switches spend redistribution to weighted mode using the
	// named served column, for example "Impressions".
	SpendWeightBy string `yaml:"spend_weight_by"`

	// PlacementNamePattern is the regular expression vendor placement names
	// match.
	// Default: "^[A-Za-z0-9]+(_[^_]+){3,}$"
	PlacementNamePattern string `yaml:"placement_name_pattern"`

	// RedistributePlanMeasures are the plan columns split across served rows
	// that share a plan key.
	// Default: ["Planned Units", "Planned Cost"]
	RedistributePlanMeasures []string `yaml:"redistribute_plan_measures"`
}

// PacingSettings configures the monthly commitment columns.
type PacingSettings struct {
	// Enabled adds "Media Type" and "Monthly Commitment" to the output.
	// Default: true
	Enabled *bool `yaml:"enabled"`
}

// DefaultPlacementNamePattern is the merge.placement_name_pattern default.
const DefaultPlacementNamePattern = types.DefaultPlacementNamePattern

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Load reads and validates a configuration file.
//
// PARAMETERS:
//   - configPath: The path to the YAML configuration file.
//
// RETURNS:
//   - A pointer to the Config struct with defaults applied.
//   - An error if the file cannot be read, parsed or validated.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return cfg, nil
}

// Parse unmarshals YAML configuration, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration holding only default values.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// ShouldContinueOnError reports the effective continue_on_error setting.
func (c *Config) ShouldContinueOnError() bool {
	return c.ContinueOnError == nil || *c.ContinueOnError
}

// PacingEnabled reports the effective pacing.enabled setting.
func (c *Config) PacingEnabled() bool {
	return c.Pacing.Enabled == nil || *c.Pacing.Enabled
}

// applyDefaults sets default values for any unset option.
func applyDefaults(cfg *Config) {
	if cfg.ServedReport == "" {
		cfg.ServedReport = "./inputs/dcm_reports/report.csv"
	}
	if cfg.PlanDir == "" {
		cfg.PlanDir = "./inputs/plans"
	}
	if cfg.PlanPattern == "" {
		cfg.PlanPattern = "*Media Plan*.csv"
	}
	if cfg.ProgrammaticDir == "" {
		cfg.ProgrammaticDir = "./inputs/programmatic_reports"
	}
	if cfg.ProgrammaticPattern == "" {
		cfg.ProgrammaticPattern = "*.xlsx"
	}
	if cfg.ProgrammaticSheet == "" {
		cfg.ProgrammaticSheet = "Raw Data"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./final_reports"
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "xlsx"
	}
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	if cfg.OutputSheet == "" {
		cfg.OutputSheet = "Raw Data"
	}
	if cfg.OutputNameFormat == "" {
		cfg.OutputNameFormat = "reconciled_{timestamp}_{uuid}"
	}
	if cfg.SQLiteTable == "" {
		cfg.SQLiteTable = "reconciled_rows"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = 4
	}

	// CSV settings defaults.
	if cfg.CSVSettings.Delimiter == "" {
		cfg.CSVSettings.Delimiter = ","
	}
	if cfg.CSVSettings.HeaderRows == 0 {
		cfg.CSVSettings.HeaderRows = 1
	}
	if cfg.CSVSettings.DataStartRow == 0 {
		cfg.CSVSettings.DataStartRow = cfg.CSVSettings.HeaderRows + 1
	}
	if cfg.CSVSettings.Encoding == "" {
		cfg.CSVSettings.Encoding = "UTF-8"
	}

	// Merge defaults.
	m := &cfg.Merge
	if len(m.PlanJoinOn) == 0 {
		m.PlanJoinOn = []string{types.ColumnCampaign, types.ColumnPlacement}
	}
	if len(m.ProgrammaticJoinOn) == 0 {
		m.ProgrammaticJoinOn = []string{types.ColumnPlacement}
	}
	if len(m.SortBy) == 0 {
		m.SortBy = []string{types.ColumnSiteDCM, types.ColumnPlacement}
	}
	if m.SpendColumn == "" {
		m.SpendColumn = types.ColumnSpend
	}
	if m.CostColumn == "" {
		m.CostColumn = types.ColumnMediaCost
	}
	if m.PlacementNamePattern == "" {
		m.PlacementNamePattern = DefaultPlacementNamePattern
	}
	if len(m.RedistributePlanMeasures) == 0 {
		m.RedistributePlanMeasures = []string{types.ColumnPlannedUnits, types.ColumnPlannedCost}
	}
}

// validate checks option values. Directories are not created here; the
// reconciler creates the output directory when it writes.
func validate(cfg *Config) error {
	switch cfg.OutputFormat {
	case "xlsx", "csv":
	default:
		return &types.ConfigurationError{Field: "output_format", Message: fmt.Sprintf("unsupported format %q (want xlsx or csv)", cfg.OutputFormat)}
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &types.ConfigurationError{Field: "log_level", Message: fmt.Sprintf("unknown level %q", cfg.LogLevel)}
	}

	if cfg.MaxConcurrency < 1 {
		return &types.ConfigurationError{Field: "max_concurrency", Message: "must be at least 1"}
	}

	if cfg.CSVSettings.HeaderRows < 1 {
		return &types.ConfigurationError{Field: "csv_settings.header_rows", Message: "must be at least 1"}
	}

	if !slices.Contains(cfg.Merge.PlanJoinOn, types.ColumnPlacement) {
		return &types.ConfigurationError{Field: "merge.plan_join_on", Message: "must include \"Placement\""}
	}

	if !slices.Contains(cfg.Merge.ProgrammaticJoinOn, types.ColumnPlacement) &&
		!slices.Contains(cfg.Merge.ProgrammaticJoinOn, types.ColumnPlacementID) {
		return &types.ConfigurationError{Field: "merge.programmatic_join_on", Message: "must include \"Placement\" or \"Placement ID\""}
	}

	if _, err := regexp.Compile(cfg.Merge.PlacementNamePattern); err != nil {
		return &types.ConfigurationError{Field: "merge.placement_name_pattern", Message: err.Error()}
	}

	return nil
}
