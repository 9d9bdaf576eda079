package frame

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// System columns carry platform-managed row metadata. They are regenerated
// on every write of a new snapshot, never copied from input frames.
const (
	SystemColumnID          = "td_id"
	SystemColumnVersion     = "td_version"
	SystemColumnTransaction = "td_transaction"
	SystemColumnTriggeredOn = "td_triggered_on"
)

// Stamp identifies the snapshot being written.
type Stamp struct {
	Version       string
	TransactionID string
	TriggeredOn   time.Time
}

// NewStamp mints a fresh snapshot version for one write.
func NewStamp(transactionID string, triggeredOn time.Time) Stamp {
	return Stamp{
		Version:       uuid.NewString(),
		TransactionID: transactionID,
		TriggeredOn:   triggeredOn,
	}
}

func IsSystemColumn(name string) bool {
	return strings.HasPrefix(name, "td_")
}

// WithSystemColumns returns a copy of the frame with system columns
// stripped and regenerated from the stamp. User columns are preserved in
// order.
func WithSystemColumns(f *Frame, stamp Stamp) *Frame {
	rows := 0
	user := make([]Column, 0, len(f.Columns))
	for _, col := range f.Columns {
		if IsSystemColumn(col.Name) {
			continue
		}
		user = append(user, col)
		rows = len(col.Values)
	}

	ids := make([]string, rows)
	versions := make([]string, rows)
	transactions := make([]string, rows)
	triggered := make([]string, rows)
	triggeredValue := stamp.TriggeredOn.UTC().Format(time.RFC3339Nano)
	for i := 0; i < rows; i++ {
		ids[i] = uuid.NewString()
		versions[i] = stamp.Version
		transactions[i] = stamp.TransactionID
		triggered[i] = triggeredValue
	}

	columns := make([]Column, 0, len(user)+4)
	columns = append(columns,
		Column{Name: SystemColumnID, Type: TypeString, Values: ids},
		Column{Name: SystemColumnVersion, Type: TypeString, Values: versions},
		Column{Name: SystemColumnTransaction, Type: TypeString, Values: transactions},
		Column{Name: SystemColumnTriggeredOn, Type: TypeTimestamp, Values: triggered},
	)
	columns = append(columns, user...)
	return &Frame{Columns: columns}
}

// SnapshotVersion reads the snapshot version recorded by a previous write,
// empty when the frame carries no system columns.
func SnapshotVersion(f *Frame) string {
	col, ok := f.Column(SystemColumnVersion)
	if !ok || len(col.Values) == 0 {
		return ""
	}
	return col.Values[0]
}

// UserColumns returns the frame's columns minus platform-managed ones.
func UserColumns(f *Frame) []Column {
	if f == nil {
		return nil
	}
	user := make([]Column, 0, len(f.Columns))
	for _, col := range f.Columns {
		if !IsSystemColumn(col.Name) {
			user = append(user, col)
		}
	}
	return user
}
