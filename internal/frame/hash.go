package frame

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// SchemaHash fingerprints a frame's schema for lineage comparison. Fields
// are sorted by column name before hashing so that column reordering does
// not change the hash; a type change on any column does.
func SchemaHash(f *Frame) string {
	if f == nil {
		return ""
	}
	fields := make([]string, 0, len(f.Columns))
	for _, col := range f.Columns {
		fields = append(fields, col.Name+"\x1f"+col.Type)
	}
	sort.Strings(fields)
	sum := sha256.Sum256([]byte(strings.Join(fields, "\x1e")))
	return hex.EncodeToString(sum[:])
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
