package frame

import (
	"testing"
	"time"
)

func TestSchemaHash_OrderIndependent(t *testing.T) {
	a := &Frame{Columns: []Column{
		{Name: "a", Type: TypeString},
		{Name: "b", Type: TypeInt},
		{Name: "c", Type: TypeBool},
	}}
	b := &Frame{Columns: []Column{
		{Name: "c", Type: TypeBool},
		{Name: "a", Type: TypeString},
		{Name: "b", Type: TypeInt},
	}}
	if SchemaHash(a) != SchemaHash(b) {
		t.Fatalf("expected permuted schemas to hash identically")
	}
}

func TestSchemaHash_TypeSensitive(t *testing.T) {
	a := &Frame{Columns: []Column{{Name: "a", Type: TypeString}}}
	b := &Frame{Columns: []Column{{Name: "a", Type: TypeInt}}}
	if SchemaHash(a) == SchemaHash(b) {
		t.Fatalf("expected type change to change the hash")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		frame   *Frame
		wantErr bool
	}{
		{
			name: "valid",
			frame: &Frame{Columns: []Column{
				{Name: "a", Type: TypeString, Values: []string{"1", "2"}},
				{Name: "b", Type: TypeInt, Values: []string{"3", "4"}},
			}},
		},
		{
			name: "ragged columns",
			frame: &Frame{Columns: []Column{
				{Name: "a", Type: TypeString, Values: []string{"1", "2"}},
				{Name: "b", Type: TypeInt, Values: []string{"3"}},
			}},
			wantErr: true,
		},
		{
			name:    "empty name",
			frame:   &Frame{Columns: []Column{{Name: " ", Type: TypeString}}},
			wantErr: true,
		},
		{
			name:    "unknown type",
			frame:   &Frame{Columns: []Column{{Name: "a", Type: "decimal"}}},
			wantErr: true,
		},
		{
			name: "duplicate name",
			frame: &Frame{Columns: []Column{
				{Name: "a", Type: TypeString},
				{Name: "a", Type: TypeInt},
			}},
			wantErr: true,
		},
	}
	for _, tc := range tests {
		err := tc.frame.Validate()
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
	}
}

func TestCodecRoundTrip(t *testing.T) {
	in := &Frame{Columns: []Column{
		{Name: "id", Type: TypeInt, Values: []string{"1", "2"}},
		{Name: "name", Type: TypeString, Values: []string{"x", "y"}},
	}}
	raw, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() err=%v", err)
	}
	out, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal() err=%v", err)
	}
	if out.Rows() != 2 || len(out.Columns) != 2 {
		t.Fatalf("round trip lost shape: rows=%d cols=%d", out.Rows(), len(out.Columns))
	}
	if SchemaHash(in) != SchemaHash(out) {
		t.Fatalf("round trip changed schema hash")
	}
}

func TestUnmarshal_RejectsForeignSchema(t *testing.T) {
	if _, err := Unmarshal([]byte(`{"schema":"other.v9","columns":[]}`)); err == nil {
		t.Fatalf("expected schema rejection")
	}
}

func TestWithSystemColumns_Regenerates(t *testing.T) {
	triggered := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := &Frame{Columns: []Column{
		{Name: SystemColumnVersion, Type: TypeString, Values: []string{"stale"}},
		{Name: "value", Type: TypeString, Values: []string{"v"}},
	}}
	out := WithSystemColumns(in, NewStamp("txn-1", triggered))

	version := SnapshotVersion(out)
	if version == "" || version == "stale" {
		t.Fatalf("expected regenerated version, got %q", version)
	}
	txn, ok := out.Column(SystemColumnTransaction)
	if !ok || txn.Values[0] != "txn-1" {
		t.Fatalf("transaction column not stamped: %+v", txn)
	}
	if got := len(UserColumns(out)); got != 1 {
		t.Fatalf("expected 1 user column, got %d", got)
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}
}

func TestSingleRowRoundTrip(t *testing.T) {
	values := map[string]string{"last_modified": "2024-01-01T00:00:00Z", "cursor": "42"}
	f := SingleRow(values)
	got, err := RowStrings(f)
	if err != nil {
		t.Fatalf("RowStrings() err=%v", err)
	}
	if len(got) != 2 || got["cursor"] != "42" {
		t.Fatalf("round trip mismatch: %v", got)
	}
}

func TestRowStrings_RejectsMultiRow(t *testing.T) {
	f := &Frame{Columns: []Column{{Name: "k", Type: TypeString, Values: []string{"a", "b"}}}}
	if _, err := RowStrings(f); err == nil {
		t.Fatalf("expected multi-row rejection")
	}
}
