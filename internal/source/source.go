package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tabsdata-labs/tabsdata-go/internal/domain"
	"github.com/tabsdata-labs/tabsdata-go/internal/frame"
	"github.com/tabsdata-labs/tabsdata-go/internal/storage"
)

// Input is one resolved input parameter for the user function: a single
// frame, or an ordered list of frames for a version-group slot. A nil
// frame means the slot had no data.
type Input struct {
	Name   string
	Frame  *frame.Frame
	Frames []*frame.Frame
}

// Produced is the outcome of input resolution. OffsetUpdate is nil for
// sources that do not surface checkpoints.
type Produced struct {
	Inputs       []Input
	OffsetUpdate any
}

// Source resolves the function's input parameters from the request's
// declared slots.
type Source interface {
	Kind() Kind
	TableNames() []string
	ReturnsOffsetValues() bool
	Produce(ctx context.Context, slots []domain.InputSlot, currentOffset map[string]string) (Produced, error)
}

// Destination persists the function's results and reports what was
// written for the lineage response.
type Destination interface {
	Kind() Kind
	TableNames() []string
	Consume(ctx context.Context, outputs []*frame.Frame, targets []domain.Table, stamp frame.Stamp) ([]domain.ModifiedTable, error)
}

// Deps are the injected collaborators every strategy shares.
type Deps struct {
	Logger *slog.Logger
	Store  *storage.Resolver
	// PluginsFolder holds the bundle's plugin executables.
	PluginsFolder string
	// WorkFolder is invocation-private scratch space for plugin exchanges.
	WorkFolder string
}

// NewSource builds the strategy declared by the bundle descriptor.
func NewSource(spec Spec, deps Deps) (Source, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("source configuration invalid: %w", err)
	}
	switch spec.Kind {
	case KindTable:
		return &TableSource{tables: spec.Tables, deps: deps}, nil
	case KindFile:
		return &FileSource{spec: *spec.File, tables: spec.Tables, deps: deps}, nil
	case KindSQL:
		return &SQLSource{spec: *spec.SQL, tables: spec.Tables, deps: deps}, nil
	case KindPlugin:
		return &PluginSource{spec: *spec.Plugin, tables: spec.Tables, deps: deps}, nil
	}
	return nil, fmt.Errorf("unknown source kind %q", spec.Kind)
}

// NewDestination builds the declared output strategy.
func NewDestination(spec DestinationSpec, deps Deps) (Destination, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("destination configuration invalid: %w", err)
	}
	switch spec.Kind {
	case KindTable:
		return &TableDestination{tables: spec.Tables, deps: deps}, nil
	case KindPlugin:
		return &PluginDestination{spec: *spec.Plugin, tables: spec.Tables, deps: deps}, nil
	}
	return nil, fmt.Errorf("unknown destination kind %q", spec.Kind)
}
