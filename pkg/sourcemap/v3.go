package sourcemap

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	gosourcemap "github.com/go-sourcemap/sourcemap"
)

// v3Map is the Source Map v3 JSON shape the records round-trip through, so
// an off-the-shelf consumer can validate what the compiler emitted.
type v3Map struct {
	Version  int      `json:"version"`
	File     string   `json:"file"`
	Sources  []string `json:"sources"`
	Names    []string `json:"names"`
	Mappings string   `json:"mappings"`
}

const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// encodeVLQ writes one signed value in the base64 VLQ encoding source map
// mappings use.
func encodeVLQ(b *strings.Builder, value int) {
	v := value << 1
	if value < 0 {
		v = (-value << 1) | 1
	}
	for {
		digit := v & 0x1f
		v >>= 5
		if v > 0 {
			digit |= 0x20
		}
		b.WriteByte(base64Chars[digit])
		if v == 0 {
			break
		}
	}
}

// ToV3 converts records into a v3 source map JSON document. Every record
// becomes one generated segment on line 0, its generated column being the
// bytecode offset; lines/columns are converted to v3's 0-based convention.
func ToV3(records []Record, file string) ([]byte, error) {
	sources := make([]string, 0)
	sourceIdx := make(map[string]int)
	names := make([]string, 0)
	nameIdx := make(map[string]int)
	for _, r := range records {
		if _, ok := sourceIdx[r.File]; !ok {
			sourceIdx[r.File] = len(sources)
			sources = append(sources, r.File)
		}
		if _, ok := nameIdx[r.Function]; !ok {
			nameIdx[r.Function] = len(names)
			names = append(names, r.Function)
		}
	}

	sorted := append([]Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	var mappings strings.Builder
	prevCol, prevSrc, prevLine, prevSrcCol, prevName := 0, 0, 0, 0, 0
	for i, r := range sorted {
		if i > 0 {
			mappings.WriteByte(',')
		}
		encodeVLQ(&mappings, r.Offset-prevCol)
		encodeVLQ(&mappings, sourceIdx[r.File]-prevSrc)
		encodeVLQ(&mappings, (r.Line-1)-prevLine)
		encodeVLQ(&mappings, (r.Col-1)-prevSrcCol)
		encodeVLQ(&mappings, nameIdx[r.Function]-prevName)
		prevCol, prevSrc, prevLine, prevSrcCol, prevName = r.Offset, sourceIdx[r.File], r.Line-1, r.Col-1, nameIdx[r.Function]
	}

	return json.Marshal(v3Map{
		Version:  3,
		File:     file,
		Sources:  sources,
		Names:    names,
		Mappings: mappings.String(),
	})
}

// Validate round-trips records through the v3 encoding and checks that a
// standard consumer resolves every offset back to the file and function
// the compiler recorded. Line/column numeric fidelity is covered by the
// plain-text Encode/Decode pair; this check guards the mapping structure
// itself (segment ordering, VLQ deltas, source/name tables).
func Validate(records []Record, file string) error {
	if len(records) == 0 {
		return nil
	}
	data, err := ToV3(records, file)
	if err != nil {
		return fmt.Errorf("encode v3: %w", err)
	}
	consumer, err := gosourcemap.Parse(file, data)
	if err != nil {
		return fmt.Errorf("parse v3: %w", err)
	}
	for _, r := range records {
		src, fn, _, _, ok := consumer.Source(1, r.Offset)
		if !ok {
			return fmt.Errorf("offset %d: no mapping resolved", r.Offset)
		}
		if src != r.File {
			return fmt.Errorf("offset %d: resolved source %q, recorded %q", r.Offset, src, r.File)
		}
		if fn != r.Function {
			return fmt.Errorf("offset %d: resolved function %q, recorded %q", r.Offset, fn, r.Function)
		}
	}
	return nil
}
