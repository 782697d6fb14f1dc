// =============================================================================
// Campaign Reconciler - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - plan
//   - merge
//   - reconciler
//
// =============================================================================

package types

// =============================================================================
// PLAN COLUMN NAMES
// =============================================================================

// Column names carried by a plan table and by every reconciled row.
const (
	ColumnCampaign      = "Campaign"
	ColumnPlacement     = "Placement"
	ColumnPlannedUnits  = "Planned Units"
	ColumnPlannedCost   = "Planned Cost"
	ColumnRate          = "Rate"
	ColumnStartDate     = "Placement Start Date"
	ColumnEndDate       = "Placement End Date"
	ColumnPlacementID   = "Placement ID"
	ColumnSiteDCM       = "Site (DCM)"
	ColumnSpend         = "Spend"
	ColumnMediaCost     = "Media Cost"
	ColumnImpressions   = "Impressions"
	ColumnDate          = "Date"
	ColumnMonthlyCommit = "Monthly Commitment"
	ColumnMediaType     = "Media Type"
)

// PlanColumns is the fixed column order of a plan table.
var PlanColumns = []string{
	ColumnCampaign,
	ColumnPlacement,
	ColumnPlannedUnits,
	ColumnPlannedCost,
	ColumnRate,
	ColumnStartDate,
	ColumnEndDate,
}

// DefaultPlacementNamePattern matches vendor placement names made of at
// least four underscore-separated parts, such as
// "SITE_Display_300x250_Prospecting".
const DefaultPlacementNamePattern = `^[A-Za-z0-9]+(_[^_]+){3,}$`

// =============================================================================
// PLACEMENT RECORD
// =============================================================================

// PlacementRecord is one placement line from the media plan.
// Children of a package share the package rate and dates and receive an even
// share of its units and cost.
type PlacementRecord struct {
	// CampaignName is the campaign the placement belongs to.
	CampaignName string

	// PlacementName is the placement identifier used to join against the
	// served report.
	PlacementName string

	// PlannedUnits is the number of units (impressions, clicks) bought.
	PlannedUnits float64

	// PlannedCost is the planned spend for the placement.
	PlannedCost float64

	// Rate is the unit rate.
	Rate float64

	// StartDate and EndDate are kept as they appear in the plan.
	StartDate string
	EndDate   string
}
