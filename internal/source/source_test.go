package source

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/tabsdata-labs/tabsdata-go/internal/domain"
	"github.com/tabsdata-labs/tabsdata-go/internal/frame"
	"github.com/tabsdata-labs/tabsdata-go/internal/storage"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	resolver := storage.NewResolver()
	resolver.Register("file", storage.NewLocalStore())
	return Deps{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:         resolver,
		PluginsFolder: t.TempDir(),
		WorkFolder:    t.TempDir(),
	}
}

func TestSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{name: "table ok", spec: Spec{Kind: KindTable, Tables: []string{"a"}}},
		{name: "table without tables", spec: Spec{Kind: KindTable}, wantErr: true},
		{name: "file ok", spec: Spec{Kind: KindFile, Tables: []string{"a"}, File: &FileSpec{Folder: "/in", Format: "csv"}}},
		{name: "file bad format", spec: Spec{Kind: KindFile, File: &FileSpec{Folder: "/in", Format: "parquet"}}, wantErr: true},
		{name: "sql ok", spec: Spec{Kind: KindSQL, SQL: &SQLSpec{URL: "postgres://", Query: "select 1", OffsetKey: "id"}}},
		{name: "sql missing offset key", spec: Spec{Kind: KindSQL, SQL: &SQLSpec{URL: "postgres://", Query: "select 1"}}, wantErr: true},
		{name: "plugin ok", spec: Spec{Kind: KindPlugin, Plugin: &PluginSpec{File: "in.plugin"}}},
		{name: "plugin without file", spec: Spec{Kind: KindPlugin, Plugin: &PluginSpec{}}, wantErr: true},
		{name: "unknown kind", spec: Spec{Kind: "queue"}, wantErr: true},
	}
	for _, tc := range tests {
		err := tc.spec.Validate()
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
	}
}

func TestTableSourceProduce(t *testing.T) {
	ctx := context.Background()
	deps := testDeps(t)

	stored := &frame.Frame{Columns: []frame.Column{
		{Name: "id", Type: frame.TypeInt, Values: []string{"1"}},
	}}
	location := domain.Location{URI: "file://" + filepath.ToSlash(filepath.Join(t.TempDir(), "orders.json"))}
	if err := deps.Store.Write(ctx, location, stored); err != nil {
		t.Fatalf("seed: %v", err)
	}

	src, err := NewSource(Spec{Kind: KindTable, Tables: []string{"orders", "archive"}}, deps)
	if err != nil {
		t.Fatalf("NewSource() err=%v", err)
	}

	slots := []domain.InputSlot{
		// Name mismatch is advisory only.
		{Table: &domain.Table{Name: "orders_renamed", Location: location}},
		{Versions: &domain.TableVersions{Name: "archive", Versions: []domain.Table{
			{Name: "archive", Location: location},
			{Name: "archive", Location: domain.Location{}},
		}}},
	}
	produced, err := src.Produce(ctx, slots, nil)
	if err != nil {
		t.Fatalf("Produce() err=%v", err)
	}
	if len(produced.Inputs) != 2 {
		t.Fatalf("inputs=%d, want 2", len(produced.Inputs))
	}
	if produced.Inputs[0].Frame == nil || produced.Inputs[0].Frame.Rows() != 1 {
		t.Fatalf("slot 0 frame wrong: %+v", produced.Inputs[0])
	}
	group := produced.Inputs[1].Frames
	if len(group) != 2 || group[0] == nil || group[1] != nil {
		t.Fatalf("version group wrong: loaded=%v", group)
	}
	if produced.OffsetUpdate != nil {
		t.Fatalf("table source must not surface offsets")
	}
}

func TestTableSourceProduce_NullLocationSoft(t *testing.T) {
	deps := testDeps(t)
	src, err := NewSource(Spec{Kind: KindTable, Tables: []string{"orders"}}, deps)
	if err != nil {
		t.Fatalf("NewSource() err=%v", err)
	}
	produced, err := src.Produce(context.Background(), []domain.InputSlot{
		{Table: &domain.Table{Name: "orders", Location: domain.Location{}}},
	}, nil)
	if err != nil {
		t.Fatalf("Produce() err=%v", err)
	}
	if produced.Inputs[0].Frame != nil {
		t.Fatalf("expected nil frame for null location")
	}
}

func TestTableDestinationConsume(t *testing.T) {
	ctx := context.Background()
	deps := testDeps(t)
	dst, err := NewDestination(DestinationSpec{Kind: KindTable, Tables: []string{"enriched", "audit"}}, deps)
	if err != nil {
		t.Fatalf("NewDestination() err=%v", err)
	}

	target := domain.Location{URI: "file://" + filepath.ToSlash(filepath.Join(t.TempDir(), "enriched.json"))}
	outputs := []*frame.Frame{
		{Columns: []frame.Column{{Name: "total", Type: frame.TypeFloat, Values: []string{"9.5"}}}},
		nil, // function conditionally skipped this slot
	}
	targets := []domain.Table{
		{Name: "enriched", Location: target},
		{Name: "audit", Location: domain.Location{}},
	}
	stamp := frame.NewStamp("txn-1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	modified, err := dst.Consume(ctx, outputs, targets, stamp)
	if err != nil {
		t.Fatalf("Consume() err=%v", err)
	}
	if len(modified) != 1 || modified[0].Name != "enriched" {
		t.Fatalf("modified=%+v", modified)
	}
	if modified[0].Meta.RowCount != 1 || modified[0].Meta.SchemaHash == "" {
		t.Fatalf("meta wrong: %+v", modified[0].Meta)
	}

	written, err := deps.Store.Read(ctx, target)
	if err != nil {
		t.Fatalf("Read() err=%v", err)
	}
	if frame.SnapshotVersion(written) == "" {
		t.Fatalf("written table missing regenerated system columns")
	}
}

func TestTableDestination_NullLocationFatalForProducedResult(t *testing.T) {
	deps := testDeps(t)
	dst, err := NewDestination(DestinationSpec{Kind: KindTable, Tables: []string{"enriched"}}, deps)
	if err != nil {
		t.Fatalf("NewDestination() err=%v", err)
	}
	outputs := []*frame.Frame{
		{Columns: []frame.Column{{Name: "a", Type: frame.TypeString, Values: []string{"x"}}}},
	}
	targets := []domain.Table{{Name: "enriched", Location: domain.Location{}}}
	if _, err := dst.Consume(context.Background(), outputs, targets, frame.NewStamp("t", time.Now())); err == nil {
		t.Fatalf("expected error writing produced result to null location")
	}
}
