package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tabsdata-labs/tabsdata-go/internal/domain"
	"github.com/tabsdata-labs/tabsdata-go/internal/frame"
	"github.com/tabsdata-labs/tabsdata-go/internal/platform/postgres"
)

// SQLSource ingests rows past the current checkpoint. The query embeds one
// placeholder for the offset value and must order by the offset key
// ascending; the last row's value becomes the next checkpoint.
type SQLSource struct {
	spec   SQLSpec
	tables []string
	deps   Deps

	// db overrides the URL-based pool in tests.
	db *sql.DB
}

func (s *SQLSource) Kind() Kind                { return KindSQL }
func (s *SQLSource) TableNames() []string      { return s.tables }
func (s *SQLSource) ReturnsOffsetValues() bool { return true }

func (s *SQLSource) open(ctx context.Context) (*sql.DB, func(), error) {
	if s.db != nil {
		return s.db, func() {}, nil
	}
	if s.spec.Driver != "" && s.spec.Driver != "postgres" {
		return nil, nil, fmt.Errorf("sql source driver %q unsupported", s.spec.Driver)
	}
	db, err := postgres.Open(ctx, postgres.DefaultConfig(s.spec.URL))
	if err != nil {
		return nil, nil, fmt.Errorf("connect sql source: %w", err)
	}
	return db, func() { _ = db.Close() }, nil
}

func (s *SQLSource) Produce(ctx context.Context, _ []domain.InputSlot, currentOffset map[string]string) (Produced, error) {
	offsetValue := currentOffset[s.spec.OffsetKey]
	if offsetValue == "" {
		offsetValue = s.spec.InitialValue
	}

	db, closeDB, err := s.open(ctx)
	if err != nil {
		return Produced{}, err
	}
	defer closeDB()

	rows, err := db.QueryContext(ctx, s.spec.Query, offsetValue)
	if err != nil {
		return Produced{}, fmt.Errorf("sql source query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ingested, lastOffset, err := s.collect(rows)
	if err != nil {
		return Produced{}, err
	}

	if ingested.Rows() == 0 {
		s.deps.Logger.Info("sql source returned no new rows", "offset_key", s.spec.OffsetKey, "offset", offsetValue)
		return Produced{
			Inputs:       nilInputs(s.tables),
			OffsetUpdate: ReaffirmUpdate(),
		}, nil
	}
	s.deps.Logger.Info("sql rows ingested",
		"rows", ingested.Rows(), "offset_key", s.spec.OffsetKey, "next_offset", lastOffset)

	inputs := []Input{}
	if len(s.tables) > 0 {
		inputs = append(inputs, Input{Name: s.tables[0], Frame: ingested})
	} else {
		inputs = append(inputs, Input{Frame: ingested})
	}
	return Produced{
		Inputs:       inputs,
		OffsetUpdate: map[string]string{s.spec.OffsetKey: lastOffset},
	}, nil
}

func (s *SQLSource) collect(rows *sql.Rows) (*frame.Frame, string, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, "", fmt.Errorf("sql source columns: %w", err)
	}
	offsetIndex := -1
	columns := make([]frame.Column, len(names))
	for i, name := range names {
		columns[i] = frame.Column{Name: name, Type: frame.TypeString}
		if strings.EqualFold(name, s.spec.OffsetKey) {
			offsetIndex = i
		}
	}
	if offsetIndex == -1 {
		return nil, "", fmt.Errorf("sql source query does not select offset key %q", s.spec.OffsetKey)
	}

	values := make([]any, len(names))
	targets := make([]any, len(names))
	for i := range values {
		targets[i] = &values[i]
	}
	lastOffset := ""
	for rows.Next() {
		if err := rows.Scan(targets...); err != nil {
			return nil, "", fmt.Errorf("sql source scan: %w", err)
		}
		for i := range columns {
			columns[i].Values = append(columns[i].Values, formatSQLValue(values[i]))
		}
		lastOffset = formatSQLValue(values[offsetIndex])
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("sql source rows: %w", err)
	}
	return &frame.Frame{Columns: columns}, lastOffset, nil
}

func formatSQLValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", v)
	}
}
