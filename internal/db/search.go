package db

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	ReturnFields []string
}

// ListQuery is the input for a filtered, optionally sorted listing.
type ListQuery struct {
	IndexName    string
	Query        string // FT.SEARCH query string, "*" for all
	Offset       int
	Limit        int
	ReturnFields []string
	SortBy       string // optional SORTBY field
	SortDesc     bool
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
// Distance is the raw vector distance for KNN queries (zero otherwise).
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}

// VectorBytes encodes a float32 vector as the little-endian byte string
// RediSearch expects for VECTOR fields and KNN query parameters.
func VectorBytes(v []float32) string {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// TagEquals builds an FT.SEARCH tag-equality query for a single field.
func TagEquals(field, value string) string {
	return fmt.Sprintf("@%s:{%s}", field, tagEscaper.Replace(value))
}

// tagEscaper escapes RediSearch tag syntax characters in filter values.
var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)
