// Package bytesize parses and prints human-readable memory sizes such as
// "64Mi" or "10MB" for configuration files.
package bytesize

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/invopop/jsonschema"
)

// ByteSize is a size in bytes.
type ByteSize uint64

const (
	B  ByteSize = 1
	KB ByteSize = 1000
	MB ByteSize = 1000 * KB
	GB ByteSize = 1000 * MB

	KiB ByteSize = 1024
	MiB ByteSize = 1024 * KiB
	GiB ByteSize = 1024 * MiB
)

// units is ordered largest first so Compact picks the biggest exact unit.
var units = []struct {
	suffix string
	size   ByteSize
}{
	{"Gi", GiB},
	{"G", GB},
	{"Mi", MiB},
	{"M", MB},
	{"Ki", KiB},
	{"K", KB},
}

func lookupUnit(suffix string) (ByteSize, bool) {
	s := strings.TrimSuffix(strings.ToLower(suffix), "b")
	if s == "" {
		return B, true
	}
	for _, u := range units {
		if strings.ToLower(u.suffix) == s {
			return u.size, true
		}
	}
	return 0, false
}

// Parse parses "512", "1.5Mi", "64MiB", "10MB" and friends. Units are case
// insensitive; a trailing "B" is optional.
func Parse(s string) (ByteSize, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	i := strings.IndexFunc(t, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	})
	num, suffix := t, ""
	if i >= 0 {
		num, suffix = t[:i], strings.TrimSpace(t[i:])
	}
	if num == "" {
		return 0, fmt.Errorf("invalid byte size %q: missing number", s)
	}

	mult, ok := lookupUnit(suffix)
	if !ok {
		return 0, fmt.Errorf("invalid byte size %q: unknown unit %q", s, suffix)
	}

	if strings.Contains(num, ".") {
		f, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
		}
		return ByteSize(f * float64(mult)), nil
	}

	n, err := strconv.ParseUint(num, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	return ByteSize(n) * mult, nil
}

// Compact prints the size with the largest unit that divides it exactly,
// so that Parse(b.Compact()) == b.
func (b ByteSize) Compact() string {
	if b == 0 {
		return "0"
	}
	for _, u := range units {
		if b%u.size == 0 {
			return strconv.FormatUint(uint64(b/u.size), 10) + u.suffix
		}
	}
	return strconv.FormatUint(uint64(b), 10)
}

// String prints an approximate binary-unit size for humans.
func (b ByteSize) String() string {
	switch {
	case b >= GiB:
		return fmt.Sprintf("%.1fGiB", float64(b)/float64(GiB))
	case b >= MiB:
		return fmt.Sprintf("%.1fMiB", float64(b)/float64(MiB))
	case b >= KiB:
		return fmt.Sprintf("%.1fKiB", float64(b)/float64(KiB))
	default:
		return fmt.Sprintf("%dB", uint64(b))
	}
}

func (b *ByteSize) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.Compact()), nil
}

// JSONSchema describes ByteSize as either a number of bytes or a string
// with a unit suffix.
func (ByteSize) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "integer", Minimum: "0"},
			{Type: "string", Pattern: `^\s*\d+(\.\d+)?\s*([KMG]i?)?B?\s*$`},
		},
		Description: `size in bytes, or with a unit suffix such as "64Mi" or "10MB"`,
	}
}
