// Package linemap converts byte offsets into 1-based line/column locations.
//
// A LineMap is built from a sorted table of line-start byte offsets. Lookups
// binary-search that table, so they stay O(log n) for very long files.
// Columns are byte columns: a rule that only knows character (code point)
// indices must convert them with ByteOffset before building a location,
// otherwise locations drift on lines containing multi-byte UTF-8 text.
package linemap

import (
	"sort"
	"unicode/utf8"
)

// Location is a 1-based source range as reported on the wire.
type Location struct {
	Line    int `json:"line" mapstructure:"line"`
	Col     int `json:"col" mapstructure:"col"`
	EndLine int `json:"end_line" mapstructure:"end_line"`
	EndCol  int `json:"end_col" mapstructure:"end_col"`
}

// LineMap maps byte offsets to line/column pairs.
type LineMap struct {
	starts []int
	size   int // text length in bytes; -1 when unknown
}

// New computes the line-start table of text.
func New(text string) *LineMap {
	return &LineMap{
		starts: ComputeLineStarts(text),
		size:   len(text),
	}
}

// FromStarts wraps an existing line-start table, e.g. one shipped in a CST
// payload. size is the text length in bytes; pass a negative value when the
// text is not available, which disables clamping at the end.
// An empty table is treated as a single line starting at 0.
func FromStarts(starts []int, size int) *LineMap {
	if len(starts) == 0 {
		starts = []int{0}
	}
	if size < 0 {
		size = -1
	}
	return &LineMap{starts: starts, size: size}
}

// ComputeLineStarts returns the byte offset of every line start in text.
// The first entry is always 0.
func ComputeLineStarts(text string) []int {
	starts := make([]int, 1, 64)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// Starts returns the underlying line-start table.
func (m *LineMap) Starts() []int {
	return m.starts
}

// LineCount returns the number of lines.
func (m *LineMap) LineCount() int {
	return len(m.starts)
}

// Position returns the 1-based line and column of a byte offset.
func (m *LineMap) Position(offset int) (line, col int) {
	offset = m.clamp(offset)
	idx := lineIndex(m.starts, offset)
	return idx + 1, offset - m.starts[idx] + 1
}

// Loc converts a byte span to a Location.
func (m *LineMap) Loc(start, end int) Location {
	line, col := m.Position(start)
	endLine, endCol := m.Position(end)
	return Location{Line: line, Col: col, EndLine: endLine, EndCol: endCol}
}

func (m *LineMap) clamp(offset int) int {
	if offset < 0 {
		return 0
	}
	if m.size >= 0 && offset > m.size {
		return m.size
	}
	return offset
}

// lineIndex returns the largest i with starts[i] <= offset.
func lineIndex(starts []int, offset int) int {
	i := sort.Search(len(starts), func(i int) bool { return starts[i] > offset }) - 1
	if i < 0 {
		return 0
	}
	return i
}

// ByteSpanToLoc converts a byte span using a raw line-start table.
func ByteSpanToLoc(start, end int, starts []int) Location {
	return FromStarts(starts, -1).Loc(start, end)
}

// ByteOffset converts a character (code point) index into a byte offset in
// text by measuring the encoded length of the preceding characters.
// Indices past the end of text map to len(text).
func ByteOffset(text string, charIndex int) int {
	if charIndex <= 0 {
		return 0
	}
	offset := 0
	for n := 0; n < charIndex; n++ {
		if offset >= len(text) {
			return len(text)
		}
		_, size := utf8.DecodeRuneInString(text[offset:])
		offset += size
	}
	return offset
}

// SpanToLoc converts a character span to a Location using byte offsets.
// When starts is nil the line-start table is computed from text.
func SpanToLoc(text string, startChar, endChar int, starts []int) Location {
	var m *LineMap
	if starts == nil {
		m = New(text)
	} else {
		m = FromStarts(starts, len(text))
	}
	return m.Loc(ByteOffset(text, startChar), ByteOffset(text, endChar))
}

// PointToLoc converts a single character index and a length in characters
// into a Location.
func PointToLoc(text string, startChar, length int, starts []int) Location {
	return SpanToLoc(text, startChar, startChar+length, starts)
}
