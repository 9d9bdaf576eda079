package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/tabsdata-labs/tabsdata-go/internal/domain"
	"github.com/tabsdata-labs/tabsdata-go/internal/frame"
)

// offsetKeyLastModified tracks the newest file modification time ingested
// so far, so repeated runs skip what was already seen.
const offsetKeyLastModified = "last_modified"

// FileSource ingests local files matching a pattern, incrementally by
// modification time.
type FileSource struct {
	spec   FileSpec
	tables []string
	deps   Deps
}

func (s *FileSource) Kind() Kind                { return KindFile }
func (s *FileSource) TableNames() []string      { return s.tables }
func (s *FileSource) ReturnsOffsetValues() bool { return true }

func (s *FileSource) Produce(ctx context.Context, slots []domain.InputSlot, currentOffset map[string]string) (Produced, error) {
	cutoff := time.Time{}
	if raw, ok := currentOffset[offsetKeyLastModified]; ok && raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return Produced{}, fmt.Errorf("stored %s offset %q unparseable: %w", offsetKeyLastModified, raw, err)
		}
		cutoff = parsed
	}

	paths, newest, err := s.pendingFiles(cutoff)
	if err != nil {
		return Produced{}, err
	}
	if len(paths) == 0 {
		s.deps.Logger.Info("no new files to ingest", "folder", s.spec.Folder, "pattern", s.spec.Pattern)
		return Produced{
			Inputs:       nilInputs(s.tables),
			OffsetUpdate: ReaffirmUpdate(),
		}, nil
	}

	ingested, err := s.readFiles(ctx, paths)
	if err != nil {
		return Produced{}, err
	}
	s.deps.Logger.Info("files ingested", "count", len(paths), "rows", ingested.Rows())

	return Produced{
		Inputs:       []Input{{Name: s.tables[0], Frame: ingested}},
		OffsetUpdate: map[string]string{offsetKeyLastModified: newest.UTC().Format(time.RFC3339Nano)},
	}, nil
}

func (s *FileSource) pendingFiles(cutoff time.Time) ([]string, time.Time, error) {
	pattern := s.spec.Pattern
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(s.spec.Folder, pattern))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("scan source folder: %w", err)
	}
	sort.Strings(matches)

	newest := cutoff
	pending := make([]string, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("stat source file: %w", err)
		}
		if info.IsDir() || !info.ModTime().After(cutoff) {
			continue
		}
		pending = append(pending, path)
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	return pending, newest, nil
}

func (s *FileSource) readFiles(ctx context.Context, paths []string) (*frame.Frame, error) {
	var combined *frame.Frame
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var parsed *frame.Frame
		var err error
		switch s.spec.Format {
		case "csv":
			parsed, err = readCSV(path)
		case "ndjson":
			parsed, err = readNDJSON(path)
		default:
			return nil, fmt.Errorf("file source format %q unsupported", s.spec.Format)
		}
		if err != nil {
			return nil, fmt.Errorf("ingest %s: %w", path, err)
		}
		combined, err = appendFrames(combined, parsed)
		if err != nil {
			return nil, fmt.Errorf("ingest %s: %w", path, err)
		}
	}
	return combined, nil
}

func readCSV(path string) (*frame.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &frame.Frame{}, nil
	}
	header := records[0]
	columns := make([]frame.Column, len(header))
	for i, name := range header {
		columns[i] = frame.Column{Name: name, Type: frame.TypeString, Values: make([]string, 0, len(records)-1)}
	}
	for _, record := range records[1:] {
		for i := range columns {
			columns[i].Values = append(columns[i].Values, record[i])
		}
	}
	return &frame.Frame{Columns: columns}, nil
}

func readNDJSON(path string) (*frame.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	var rows []map[string]any
	names := map[string]struct{}{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var row map[string]any
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("line %d: %w", len(rows)+1, err)
		}
		for name := range row {
			names[name] = struct{}{}
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	columns := make([]frame.Column, len(ordered))
	for i, name := range ordered {
		columns[i] = frame.Column{Name: name, Type: frame.TypeString, Values: make([]string, 0, len(rows))}
	}
	for _, row := range rows {
		for i, name := range ordered {
			value := ""
			if item, ok := row[name]; ok && item != nil {
				value = fmt.Sprintf("%v", item)
			}
			columns[i].Values = append(columns[i].Values, value)
		}
	}
	return &frame.Frame{Columns: columns}, nil
}

func appendFrames(base, extra *frame.Frame) (*frame.Frame, error) {
	if base == nil || len(base.Columns) == 0 {
		return extra, nil
	}
	if extra == nil || len(extra.Columns) == 0 {
		return base, nil
	}
	if frame.SchemaHash(base) != frame.SchemaHash(extra) {
		return nil, fmt.Errorf("ingested files disagree on schema")
	}
	byName := make(map[string]frame.Column, len(extra.Columns))
	for _, col := range extra.Columns {
		byName[col.Name] = col
	}
	columns := make([]frame.Column, len(base.Columns))
	for i, col := range base.Columns {
		merged := col
		merged.Values = append(append([]string{}, col.Values...), byName[col.Name].Values...)
		columns[i] = merged
	}
	return &frame.Frame{Columns: columns}, nil
}

func nilInputs(tables []string) []Input {
	inputs := make([]Input, 0, len(tables))
	for _, name := range tables {
		inputs = append(inputs, Input{Name: name})
	}
	return inputs
}

// ReaffirmUpdate is the dynamic form of "keep the stored checkpoint";
// it flows through offset.ParseUpdate unchanged.
func ReaffirmUpdate() any {
	return "SAME"
}
