package domain

// Table is a named reference to one persisted table snapshot.
type Table struct {
	Name     string
	Location Location
}

// TableVersions is an ordered group of historical versions of one table,
// newest last, requested together by a single input slot.
type TableVersions struct {
	Name     string
	Versions []Table
}

// InputSlot is the tagged union carried by a request input position:
// exactly one of Table or Versions is set.
type InputSlot struct {
	Table    *Table
	Versions *TableVersions
}

func (s InputSlot) Name() string {
	if s.Table != nil {
		return s.Table.Name
	}
	if s.Versions != nil {
		return s.Versions.Name
	}
	return ""
}

func (s InputSlot) IsVersioned() bool {
	return s.Versions != nil
}
