package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/dqlens/internal/models"
	"github.com/ppiankov/dqlens/internal/storage"
	"github.com/ppiankov/dqlens/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a snapshot against the dqlens/v1 schema",
	Long: `Validate checks that a YAML or JSON snapshot conforms to the dqlens/v1
schema: known categories, statuses, trends and severities, catalog metric
names, complete table keys, unique IDs, seed scores within [0,1] and
parsable rule schedules.

Returns exit 0 if valid, exit 2 if invalid with details on stderr.

Example:
  dqlens validate snapshot.yaml
  dqlens validate .dqlens/snapshots/2024-01-20T10-00-00.json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	format, err := storage.FormatForPath(filePath)
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	snap, err := validator.New().ValidateData(data, format, filePath)
	if err != nil {
		return err
	}

	if err := validator.ValidateTimestamp(snap.Timestamp, now()); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] %v\n", err)
	}

	fmt.Printf("VALID: conforms to %s (%d observations, %d tables, %d rules)\n",
		models.SnapshotVersion, len(snap.Observations), len(snap.Tables), len(snap.Rules))
	logDebug("Snapshot timestamp %s", snap.Timestamp.Format(time.RFC3339))
	return nil
}
