// Package frame holds the in-memory columnar representation moved between
// table storage and user functions. It is deliberately thin: the platform's
// computation engine lives elsewhere, the harness only needs a stable
// snapshot shape with schema metadata.
package frame

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tabsdata-labs/tabsdata-go/internal/domain"
)

// Column types form a closed set; snapshots with unknown types are rejected
// at decode time.
const (
	TypeString    = "string"
	TypeInt       = "int64"
	TypeFloat     = "float64"
	TypeBool      = "bool"
	TypeTimestamp = "timestamp"
)

type Column struct {
	Name   string
	Type   string
	Values []string
}

// Frame is an ordered set of equally sized columns. Values are carried as
// strings; typed interpretation belongs to the computation engine.
type Frame struct {
	Columns []Column
}

var ErrEmptyColumnName = errors.New("frame column name must not be empty")

func knownType(columnType string) bool {
	switch columnType {
	case TypeString, TypeInt, TypeFloat, TypeBool, TypeTimestamp:
		return true
	}
	return false
}

func (f *Frame) Validate() error {
	if f == nil {
		return errors.New("frame is nil")
	}
	seen := make(map[string]struct{}, len(f.Columns))
	rows := -1
	for _, col := range f.Columns {
		name := strings.TrimSpace(col.Name)
		if name == "" {
			return ErrEmptyColumnName
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("frame column %q duplicated", name)
		}
		seen[name] = struct{}{}
		if !knownType(col.Type) {
			return fmt.Errorf("frame column %q has unsupported type %q", name, col.Type)
		}
		if rows == -1 {
			rows = len(col.Values)
			continue
		}
		if len(col.Values) != rows {
			return fmt.Errorf("frame column %q has %d values, expected %d", name, len(col.Values), rows)
		}
	}
	return nil
}

func (f *Frame) Rows() int {
	if f == nil || len(f.Columns) == 0 {
		return 0
	}
	return len(f.Columns[0].Values)
}

func (f *Frame) Column(name string) (Column, bool) {
	if f == nil {
		return Column{}, false
	}
	for _, col := range f.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// Meta computes the snapshot metadata reported for lineage.
func (f *Frame) Meta() domain.TableMeta {
	if f == nil {
		return domain.TableMeta{}
	}
	return domain.TableMeta{
		ColumnCount: len(f.Columns),
		RowCount:    f.Rows(),
		SchemaHash:  SchemaHash(f),
	}
}

// SingleRow builds a one-row frame of string columns from a mapping. Used
// by the offset ledger, whose persisted table encodes checkpoint keys as
// columns of a single row.
func SingleRow(values map[string]string) *Frame {
	frame := &Frame{Columns: make([]Column, 0, len(values))}
	for _, key := range sortedKeys(values) {
		frame.Columns = append(frame.Columns, Column{
			Name:   key,
			Type:   TypeString,
			Values: []string{values[key]},
		})
	}
	return frame
}

// RowStrings flattens a single-row frame back into a mapping. Errors if the
// frame holds anything other than exactly one row.
func RowStrings(f *Frame) (map[string]string, error) {
	if f == nil {
		return nil, errors.New("frame is nil")
	}
	if rows := f.Rows(); rows != 1 {
		return nil, fmt.Errorf("expected single-row frame, got %d rows", rows)
	}
	values := make(map[string]string, len(f.Columns))
	for _, col := range f.Columns {
		values[col.Name] = col.Values[0]
	}
	return values, nil
}
