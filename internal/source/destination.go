package source

import (
	"context"
	"fmt"

	"github.com/tabsdata-labs/tabsdata-go/internal/domain"
	"github.com/tabsdata-labs/tabsdata-go/internal/frame"
)

// TableDestination writes result frames to the request's output table
// locations with regenerated system columns.
type TableDestination struct {
	tables []string
	deps   Deps
}

func (d *TableDestination) Kind() Kind           { return KindTable }
func (d *TableDestination) TableNames() []string { return d.tables }

func (d *TableDestination) Consume(ctx context.Context, outputs []*frame.Frame, targets []domain.Table, stamp frame.Stamp) ([]domain.ModifiedTable, error) {
	modified := make([]domain.ModifiedTable, 0, len(outputs))
	for i, output := range outputs {
		target := targets[i]
		declared := d.tables[i]
		if target.Name != declared {
			d.deps.Logger.Warn("output table name differs from declared destination table",
				"request_name", target.Name, "declared_name", declared, "slot", i)
		}
		if output == nil {
			// The function chose not to produce this slot.
			d.deps.Logger.Warn("no result for output table, skipping", "table", declared, "slot", i)
			continue
		}
		if err := output.Validate(); err != nil {
			return nil, fmt.Errorf("result for table %s invalid: %w", declared, err)
		}
		if target.Location.IsNull() {
			return nil, fmt.Errorf("output table %s has no storage location", declared)
		}
		stamped := frame.WithSystemColumns(output, stamp)
		if err := d.deps.Store.Write(ctx, target.Location, stamped); err != nil {
			return nil, fmt.Errorf("export table %s: %w", declared, err)
		}
		meta := stamped.Meta()
		d.deps.Logger.Info("output table written",
			"table", declared, "rows", meta.RowCount, "schema_hash", meta.SchemaHash)
		modified = append(modified, domain.ModifiedTable{Name: declared, Meta: meta})
	}
	return modified, nil
}
