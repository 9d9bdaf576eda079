package execution

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tabsdata-labs/tabsdata-go/internal/domain"
	"github.com/tabsdata-labs/tabsdata-go/internal/request"
)

const responseSchemaV1 = "tabsdata.function_response.v1"

// responseDocument is what the platform reads back after the subprocess
// exits: which tables changed and whether the checkpoint moved.
type responseDocument struct {
	Schema         string                 `yaml:"schema"`
	ExecutionID    string                 `yaml:"execution_id"`
	TransactionID  string                 `yaml:"transaction_id"`
	Work           int                    `yaml:"work"`
	TriggeredOn    string                 `yaml:"triggered_on,omitempty"`
	Status         string                 `yaml:"status"`
	ModifiedTables []domain.ModifiedTable `yaml:"modified_tables"`
	Offset         *domain.ModifiedTable  `yaml:"offset,omitempty"`
}

func writeResponse(path string, inv *request.Invocation, modified []domain.ModifiedTable, offsetReport *domain.ModifiedTable) error {
	if modified == nil {
		modified = []domain.ModifiedTable{}
	}
	doc := responseDocument{
		Schema:         responseSchemaV1,
		ExecutionID:    inv.ExecutionID,
		TransactionID:  inv.TransactionID,
		Work:           inv.Work,
		Status:         "done",
		ModifiedTables: modified,
		Offset:         offsetReport,
	}
	if !inv.TriggeredOn.IsZero() {
		doc.TriggeredOn = inv.TriggeredOn.UTC().Format(time.RFC3339Nano)
	}
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
