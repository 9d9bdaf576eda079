package domain

// TableMeta is the schema metadata attached to every written snapshot and
// reported back for lineage comparison.
type TableMeta struct {
	ColumnCount int    `json:"column_count" yaml:"column_count"`
	RowCount    int    `json:"row_count" yaml:"row_count"`
	SchemaHash  string `json:"schema_hash" yaml:"schema_hash"`
}

// ModifiedTable is one entry of the response document's modified-tables
// report.
type ModifiedTable struct {
	Name string    `json:"name" yaml:"name"`
	Meta TableMeta `json:"meta_info" yaml:"meta_info"`
}
