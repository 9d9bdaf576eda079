package frame

import (
	"encoding/json"
	"fmt"
)

const snapshotSchemaV1 = "tabsdata.table_snapshot.v1"

type snapshotPayload struct {
	Schema  string                  `json:"schema"`
	Columns []snapshotColumnPayload `json:"columns"`
}

type snapshotColumnPayload struct {
	Name   string   `json:"name"`
	Type   string   `json:"type"`
	Values []string `json:"values"`
}

// Marshal serializes a frame as a versioned snapshot document with stable
// field names.
func Marshal(f *Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	payload := snapshotPayload{
		Schema:  snapshotSchemaV1,
		Columns: make([]snapshotColumnPayload, 0, len(f.Columns)),
	}
	for _, col := range f.Columns {
		payload.Columns = append(payload.Columns, snapshotColumnPayload{
			Name:   col.Name,
			Type:   col.Type,
			Values: col.Values,
		})
	}
	return json.Marshal(payload)
}

// Unmarshal parses a persisted snapshot document back into a frame.
func Unmarshal(raw []byte) (*Frame, error) {
	var payload snapshotPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if payload.Schema != snapshotSchemaV1 {
		return nil, fmt.Errorf("snapshot schema must be %q (got %q)", snapshotSchemaV1, payload.Schema)
	}
	frame := &Frame{Columns: make([]Column, 0, len(payload.Columns))}
	for _, col := range payload.Columns {
		values := col.Values
		if values == nil {
			values = []string{}
		}
		frame.Columns = append(frame.Columns, Column{
			Name:   col.Name,
			Type:   col.Type,
			Values: values,
		})
	}
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	return frame, nil
}
