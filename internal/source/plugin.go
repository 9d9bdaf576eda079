package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/tabsdata-labs/tabsdata-go/internal/domain"
	"github.com/tabsdata-labs/tabsdata-go/internal/frame"
)

// User plugins are bundle-shipped executables, never deserialized objects.
// They run in their own process and exchange snapshots through an
// invocation-private folder:
//
//	source:      plugin --mode source --offset <file> --output <folder>
//	destination: plugin --mode destination --input <folder>
//
// A source plugin writes one <table>.json snapshot per declared table and
// may write offset.json with its next checkpoint.

var ErrSourcePluginNotFound = errors.New("source plugin not found")

const pluginOffsetFile = "offset.json"

// PluginSource delegates input production to a bundled executable.
type PluginSource struct {
	spec   PluginSpec
	tables []string
	deps   Deps
}

func (s *PluginSource) Kind() Kind                { return KindPlugin }
func (s *PluginSource) TableNames() []string      { return s.tables }
func (s *PluginSource) ReturnsOffsetValues() bool { return true }

func (s *PluginSource) Produce(ctx context.Context, _ []domain.InputSlot, currentOffset map[string]string) (Produced, error) {
	binary := filepath.Join(s.deps.PluginsFolder, s.spec.File)
	if _, err := os.Stat(binary); err != nil {
		// A declared input must always resolve to something runnable.
		return Produced{}, fmt.Errorf("%w: %s", ErrSourcePluginNotFound, binary)
	}

	exchange := filepath.Join(s.deps.WorkFolder, "plugin-source")
	if err := os.MkdirAll(exchange, 0o755); err != nil {
		return Produced{}, fmt.Errorf("create plugin exchange folder: %w", err)
	}
	offsetPath := filepath.Join(exchange, pluginOffsetFile)
	if err := writeJSON(offsetPath, currentOffset); err != nil {
		return Produced{}, err
	}

	cmd := exec.CommandContext(ctx, binary,
		"--mode", "source",
		"--offset", offsetPath,
		"--output", exchange,
	)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return Produced{}, fmt.Errorf("source plugin %s failed: %w", s.spec.File, err)
	}

	produced := Produced{Inputs: make([]Input, 0, len(s.tables))}
	for _, table := range s.tables {
		path := filepath.Join(exchange, table+".json")
		raw, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			s.deps.Logger.Warn("source plugin produced no data for table", "table", table)
			produced.Inputs = append(produced.Inputs, Input{Name: table})
			continue
		}
		if err != nil {
			return Produced{}, fmt.Errorf("read plugin output for %s: %w", table, err)
		}
		parsed, err := frame.Unmarshal(raw)
		if err != nil {
			return Produced{}, fmt.Errorf("plugin output for %s invalid: %w", table, err)
		}
		produced.Inputs = append(produced.Inputs, Input{Name: table, Frame: parsed})
	}

	update, err := readPluginOffset(offsetPath, currentOffset)
	if err != nil {
		return Produced{}, err
	}
	produced.OffsetUpdate = update
	return produced, nil
}

// readPluginOffset picks up the checkpoint the plugin left behind. An
// untouched file means "keep the current one".
func readPluginOffset(path string, previous map[string]string) (any, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return ReaffirmUpdate(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read plugin offset: %w", err)
	}
	var next map[string]string
	if err := json.Unmarshal(raw, &next); err != nil {
		return nil, fmt.Errorf("plugin offset invalid: %w", err)
	}
	if len(next) == len(previous) {
		same := true
		for key, value := range previous {
			if next[key] != value {
				same = false
				break
			}
		}
		if same {
			return ReaffirmUpdate(), nil
		}
	}
	return next, nil
}

// PluginDestination hands result frames to a bundled executable instead of
// writing platform tables.
type PluginDestination struct {
	spec   PluginSpec
	tables []string
	deps   Deps
}

func (d *PluginDestination) Kind() Kind           { return KindPlugin }
func (d *PluginDestination) TableNames() []string { return d.tables }

func (d *PluginDestination) Consume(ctx context.Context, outputs []*frame.Frame, targets []domain.Table, stamp frame.Stamp) ([]domain.ModifiedTable, error) {
	binary := filepath.Join(d.deps.PluginsFolder, d.spec.File)
	if _, err := os.Stat(binary); err != nil {
		return nil, fmt.Errorf("destination plugin missing: %s: %w", binary, err)
	}

	exchange := filepath.Join(d.deps.WorkFolder, "plugin-destination")
	if err := os.MkdirAll(exchange, 0o755); err != nil {
		return nil, fmt.Errorf("create plugin exchange folder: %w", err)
	}

	modified := make([]domain.ModifiedTable, 0, len(outputs))
	for i, output := range outputs {
		declared := d.tables[i]
		if output == nil {
			d.deps.Logger.Warn("no result for output table, skipping", "table", declared, "slot", i)
			continue
		}
		if err := output.Validate(); err != nil {
			return nil, fmt.Errorf("result for table %s invalid: %w", declared, err)
		}
		stamped := frame.WithSystemColumns(output, stamp)
		raw, err := frame.Marshal(stamped)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(filepath.Join(exchange, declared+".json"), raw, 0o644); err != nil {
			return nil, fmt.Errorf("stage plugin input for %s: %w", declared, err)
		}
		modified = append(modified, domain.ModifiedTable{Name: declared, Meta: stamped.Meta()})
	}

	cmd := exec.CommandContext(ctx, binary,
		"--mode", "destination",
		"--input", exchange,
	)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("destination plugin %s failed: %w", d.spec.File, err)
	}
	return modified, nil
}

func writeJSON(path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
