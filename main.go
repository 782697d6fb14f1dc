// =============================================================================
// Campaign Reconciler - Main Entry Point
// =============================================================================
//
// USAGE:
//   reconciler reconcile   - Reconcile the served report with plans and spend
//   reconciler plan        - Print the exploded placements of media plans
//   reconciler version     - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : parsing, merging, auditing and output
//   - pkg/       : shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/campaign-reconciler/cmd"
)

func main() {
	cmd.Execute()
}
