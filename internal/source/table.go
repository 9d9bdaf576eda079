package source

import (
	"context"
	"fmt"

	"github.com/tabsdata-labs/tabsdata-go/internal/domain"
	"github.com/tabsdata-labs/tabsdata-go/internal/frame"
)

// TableSource loads declared platform tables. Upstream versioning makes
// table inputs fully reproducible, so this kind never surfaces offsets.
type TableSource struct {
	tables []string
	deps   Deps
}

func (s *TableSource) Kind() Kind                { return KindTable }
func (s *TableSource) TableNames() []string      { return s.tables }
func (s *TableSource) ReturnsOffsetValues() bool { return false }

func (s *TableSource) Produce(ctx context.Context, slots []domain.InputSlot, _ map[string]string) (Produced, error) {
	produced := Produced{Inputs: make([]Input, 0, len(slots))}
	for i, slot := range slots {
		declared := s.tables[i]
		if name := slot.Name(); name != declared {
			// Names are advisory; the storage location is authoritative.
			s.deps.Logger.Warn("input table name differs from declared source table",
				"request_name", name, "declared_name", declared, "slot", i)
		}
		if slot.IsVersioned() {
			input := Input{Name: declared, Frames: make([]*frame.Frame, 0, len(slot.Versions.Versions))}
			for _, version := range slot.Versions.Versions {
				loaded, err := s.loadTable(ctx, version)
				if err != nil {
					return Produced{}, err
				}
				input.Frames = append(input.Frames, loaded)
			}
			produced.Inputs = append(produced.Inputs, input)
			continue
		}
		loaded, err := s.loadTable(ctx, *slot.Table)
		if err != nil {
			return Produced{}, err
		}
		produced.Inputs = append(produced.Inputs, Input{Name: declared, Frame: loaded})
	}
	return produced, nil
}

// loadTable returns a nil frame, not an error, when the slot has no
// storage location: "no data to import" is a legal state.
func (s *TableSource) loadTable(ctx context.Context, table domain.Table) (*frame.Frame, error) {
	if table.Location.IsNull() {
		s.deps.Logger.Warn("input table has no storage location, importing no data", "table", table.Name)
		return nil, nil
	}
	loaded, err := s.deps.Store.Read(ctx, table.Location)
	if err != nil {
		return nil, fmt.Errorf("import table %s: %w", table.Name, err)
	}
	return loaded, nil
}
