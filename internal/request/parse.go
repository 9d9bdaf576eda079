package request

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tabsdata-labs/tabsdata-go/internal/domain"
)

const (
	VersionV1 = "v1"
	VersionV2 = "v2"
)

type locationWire struct {
	URI       string `yaml:"uri"`
	EnvPrefix string `yaml:"env_prefix"`
}

type tableWire struct {
	Name     string       `yaml:"name"`
	Location locationWire `yaml:"location"`
}

type slotWire struct {
	Name     string       `yaml:"name"`
	Location locationWire `yaml:"location"`
	Versions []tableWire  `yaml:"versions"`
}

type envelopeV1 struct {
	Version           string       `yaml:"version"`
	Work              int          `yaml:"work"`
	ExecutionID       string       `yaml:"execution_id"`
	TransactionID     string       `yaml:"transaction_id"`
	TriggeredOn       string       `yaml:"triggered_on"`
	FunctionBundleURI string       `yaml:"function_bundle_uri"`
	FunctionData      locationWire `yaml:"function_data"`
	Input             []slotWire   `yaml:"input"`
	Output            []tableWire  `yaml:"output"`
	SystemInput       []tableWire  `yaml:"system_input"`
	SystemOutput      []tableWire  `yaml:"system_output"`
}

type envelopeV2 struct {
	Version       string `yaml:"version"`
	Work          int    `yaml:"work"`
	ExecutionID   string `yaml:"execution_id"`
	TransactionID string `yaml:"transaction_id"`
	Info          struct {
		TriggeredOn    string       `yaml:"triggered_on"`
		FunctionBundle locationWire `yaml:"function_bundle"`
		FunctionData   locationWire `yaml:"function_data"`
	} `yaml:"info"`
	Input        []slotWire  `yaml:"input"`
	Output       []tableWire `yaml:"output"`
	SystemInput  []tableWire `yaml:"system_input"`
	SystemOutput []tableWire `yaml:"system_output"`
}

// Parse decodes a request document of either wire generation into the
// canonical Invocation. The generation comes from the version field when
// present, otherwise from structural probing.
func Parse(raw []byte) (*Invocation, error) {
	version, err := detectVersion(raw)
	if err != nil {
		return nil, err
	}
	if err := validateAgainstSchema(version, raw); err != nil {
		return nil, fmt.Errorf("request document invalid (%s): %w", version, err)
	}

	var inv *Invocation
	switch version {
	case VersionV1:
		var envelope envelopeV1
		if err := yaml.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("decode v1 request: %w", err)
		}
		inv, err = envelope.normalize()
	case VersionV2:
		var envelope envelopeV2
		if err := yaml.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("decode v2 request: %w", err)
		}
		inv, err = envelope.normalize()
	}
	if err != nil {
		return nil, err
	}
	if err := inv.validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

func detectVersion(raw []byte) (string, error) {
	var probe struct {
		Version string         `yaml:"version"`
		Info    map[string]any `yaml:"info"`
	}
	if err := yaml.Unmarshal(raw, &probe); err != nil {
		return "", fmt.Errorf("decode request: %w", err)
	}
	switch strings.TrimSpace(probe.Version) {
	case VersionV1:
		return VersionV1, nil
	case VersionV2:
		return VersionV2, nil
	case "":
		if probe.Info != nil {
			return VersionV2, nil
		}
		return VersionV1, nil
	default:
		return "", fmt.Errorf("unsupported request version %q", probe.Version)
	}
}

func parseTriggeredOn(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	triggered, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse triggered_on %q: %w", value, err)
	}
	return triggered, nil
}

func (w locationWire) domain() domain.Location {
	return domain.Location{URI: w.URI, EnvPrefix: w.EnvPrefix}
}

func (w tableWire) domain() domain.Table {
	return domain.Table{Name: w.Name, Location: w.Location.domain()}
}

func tablesFromWire(wires []tableWire) []domain.Table {
	tables := make([]domain.Table, 0, len(wires))
	for _, wire := range wires {
		tables = append(tables, wire.domain())
	}
	return tables
}

func slotsFromWire(wires []slotWire) []domain.InputSlot {
	slots := make([]domain.InputSlot, 0, len(wires))
	for _, wire := range wires {
		if wire.Versions != nil {
			group := &domain.TableVersions{Name: wire.Name}
			for _, version := range wire.Versions {
				group.Versions = append(group.Versions, version.domain())
			}
			slots = append(slots, domain.InputSlot{Versions: group})
			continue
		}
		table := wire.tableWire().domain()
		slots = append(slots, domain.InputSlot{Table: &table})
	}
	return slots
}

func (w slotWire) tableWire() tableWire {
	return tableWire{Name: w.Name, Location: w.Location}
}

func (e envelopeV1) normalize() (*Invocation, error) {
	triggered, err := parseTriggeredOn(e.TriggeredOn)
	if err != nil {
		return nil, err
	}
	return &Invocation{
		Work:              e.Work,
		ExecutionID:       e.ExecutionID,
		TransactionID:     e.TransactionID,
		TriggeredOn:       triggered,
		FunctionBundleURI: e.FunctionBundleURI,
		FunctionData:      e.FunctionData.domain(),
		Input:             slotsFromWire(e.Input),
		Output:            tablesFromWire(e.Output),
		SystemInput:       tablesFromWire(e.SystemInput),
		SystemOutput:      tablesFromWire(e.SystemOutput),
	}, nil
}

func (e envelopeV2) normalize() (*Invocation, error) {
	triggered, err := parseTriggeredOn(e.Info.TriggeredOn)
	if err != nil {
		return nil, err
	}
	return &Invocation{
		Work:              e.Work,
		ExecutionID:       e.ExecutionID,
		TransactionID:     e.TransactionID,
		TriggeredOn:       triggered,
		FunctionBundleURI: e.Info.FunctionBundle.URI,
		FunctionData:      e.Info.FunctionData.domain(),
		Input:             slotsFromWire(e.Input),
		Output:            tablesFromWire(e.Output),
		SystemInput:       tablesFromWire(e.SystemInput),
		SystemOutput:      tablesFromWire(e.SystemOutput),
	}, nil
}
