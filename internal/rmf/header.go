package rmf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	MinSupportedVersion float32 = 1.6
	MaxSupportedVersion float32 = 2.2
	Magic                       = "RMF"

	// VersionSize is the width of the leading version field.
	VersionSize = 4
	HeaderSize  = VersionSize + len(Magic)
)

// HeaderPolicy decides what a header validation failure does to a load.
type HeaderPolicy int

const (
	// PolicyStrict fails the load on an unsupported version or bad magic.
	PolicyStrict HeaderPolicy = iota
	// PolicyLenient reports header failures as warnings and keeps decoding.
	PolicyLenient
)

func (p HeaderPolicy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyLenient:
		return "lenient"
	default:
		return "unknown"
	}
}

func ParseHeaderPolicy(raw string) (HeaderPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "strict":
		return PolicyStrict, nil
	case "lenient", "warn":
		return PolicyLenient, nil
	default:
		return PolicyStrict, fmt.Errorf("unknown header policy %q", raw)
	}
}

// Header is the fixed document prefix: version then magic.
type Header struct {
	Version float32
	Magic   string
}

// ReadHeader reads the version and magic fields at the cursor. It performs no
// validation beyond the bounds checks of the cursor itself.
func ReadHeader(c *Cursor, magicLen int) (Header, error) {
	v, err := c.F32()
	if err != nil {
		return Header{}, fmt.Errorf("read version: %w", err)
	}
	m, err := c.FixedString(magicLen)
	if err != nil {
		return Header{Version: v}, fmt.Errorf("read magic: %w", err)
	}
	return Header{Version: v, Magic: m}, nil
}

// VersionSupported reports whether v lies in the closed interval [lo, hi].
func VersionSupported(v, lo, hi float32) bool {
	return v >= lo && v <= hi
}

func formatVersion(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

// Validate checks h against the supported version range and magic. The
// returned error joins every failure.
func (o Options) Validate(h Header) error {
	var errs []error
	if !VersionSupported(h.Version, o.MinVersion, o.MaxVersion) {
		errs = append(errs, fmt.Errorf("%w %s (only versions %s through %s are supported)",
			ErrUnsupportedVersion, formatVersion(h.Version), formatVersion(o.MinVersion), formatVersion(o.MaxVersion)))
	}
	if h.Magic != o.Magic {
		errs = append(errs, fmt.Errorf("%w %q", ErrInvalidMagic, h.Magic))
	}
	return errors.Join(errs...)
}
