// Package source holds the closed set of input/output strategies a
// function can declare. The strategy is chosen at bundle-build time and
// dispatched through one interface; there is no runtime deserialization of
// executable objects, user plugins run behind a subprocess boundary.
package source

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindTable  Kind = "table"
	KindFile   Kind = "file"
	KindSQL    Kind = "sql"
	KindPlugin Kind = "plugin"
)

// Spec is the decorator-declared input configuration persisted inside the
// bundle descriptor. Exactly one payload matches the kind.
type Spec struct {
	Kind   Kind        `yaml:"kind"`
	Tables []string    `yaml:"tables"`
	File   *FileSpec   `yaml:"file,omitempty"`
	SQL    *SQLSpec    `yaml:"sql,omitempty"`
	Plugin *PluginSpec `yaml:"plugin,omitempty"`
}

// FileSpec ingests local files. The offset tracks the newest modification
// time seen, so repeated runs skip files already ingested.
type FileSpec struct {
	Folder  string `yaml:"folder"`
	Pattern string `yaml:"pattern"`
	Format  string `yaml:"format"` // csv or ndjson
}

// SQLSpec ingests rows the offset has not seen yet. The query must embed
// one placeholder ($1) for the current offset value of OffsetKey.
type SQLSpec struct {
	Driver       string `yaml:"driver"`
	URL          string `yaml:"url"`
	Query        string `yaml:"query"`
	OffsetKey    string `yaml:"offset_key"`
	InitialValue string `yaml:"initial_value"`
}

// PluginSpec names an executable under the bundle's plugins folder.
type PluginSpec struct {
	File string `yaml:"file"`
}

// DestinationSpec is the declared output configuration. Outputs are either
// declarative table writes or a plugin.
type DestinationSpec struct {
	Kind   Kind        `yaml:"kind"`
	Tables []string    `yaml:"tables"`
	Plugin *PluginSpec `yaml:"plugin,omitempty"`
}

// ReturnsOffsetValues reports whether this source kind surfaces a new
// checkpoint after a run. Table inputs are fully versioned upstream and
// never do.
func (s Spec) ReturnsOffsetValues() bool {
	switch s.Kind {
	case KindFile, KindSQL, KindPlugin:
		return true
	}
	return false
}

// AllowsZeroTables reports whether an empty declared table list is legal
// for this kind. SQL and plugin sources synthesize their own inputs.
func (s Spec) AllowsZeroTables() bool {
	return s.Kind == KindSQL || s.Kind == KindPlugin
}

func (s Spec) Validate() error {
	switch s.Kind {
	case KindTable:
		if len(s.Tables) == 0 {
			return errors.New("table source declares no tables")
		}
	case KindFile:
		if s.File == nil {
			return errors.New("file source is missing its file payload")
		}
		if strings.TrimSpace(s.File.Folder) == "" {
			return errors.New("file source is missing folder")
		}
		switch s.File.Format {
		case "csv", "ndjson":
		default:
			return fmt.Errorf("file source format %q unsupported", s.File.Format)
		}
	case KindSQL:
		if s.SQL == nil {
			return errors.New("sql source is missing its sql payload")
		}
		if strings.TrimSpace(s.SQL.URL) == "" || strings.TrimSpace(s.SQL.Query) == "" {
			return errors.New("sql source requires url and query")
		}
		if strings.TrimSpace(s.SQL.OffsetKey) == "" {
			return errors.New("sql source requires offset_key")
		}
	case KindPlugin:
		if s.Plugin == nil || strings.TrimSpace(s.Plugin.File) == "" {
			return errors.New("plugin source requires a plugin file")
		}
	default:
		return fmt.Errorf("unknown source kind %q", s.Kind)
	}
	return nil
}

func (d DestinationSpec) Validate() error {
	switch d.Kind {
	case KindTable:
		if len(d.Tables) == 0 {
			return errors.New("table destination declares no tables")
		}
	case KindPlugin:
		if d.Plugin == nil || strings.TrimSpace(d.Plugin.File) == "" {
			return errors.New("plugin destination requires a plugin file")
		}
	default:
		return fmt.Errorf("unknown destination kind %q", d.Kind)
	}
	return nil
}
