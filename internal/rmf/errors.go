package rmf

import "errors"

var (
	ErrNoData             = errors.New("rmf: no data")
	ErrLoadInProgress     = errors.New("rmf: load already in progress")
	ErrUnsupportedVersion = errors.New("rmf: unsupported version")
	ErrInvalidMagic       = errors.New("rmf: invalid magic")
	ErrOutOfRange         = errors.New("rmf: read out of range")
	ErrUnbalancedTrace    = errors.New("rmf: unbalanced trace")
)

// Kind classifies a load error. The set is closed; anything not produced by
// this package is KindDecoder.
type Kind int

const (
	KindNone Kind = iota
	KindNoData
	KindLoadInProgress
	KindUnsupportedVersion
	KindInvalidMagic
	KindOutOfRange
	KindUnbalancedTrace
	KindDecoder
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindNoData:
		return "no_data"
	case KindLoadInProgress:
		return "load_in_progress"
	case KindUnsupportedVersion:
		return "unsupported_version"
	case KindInvalidMagic:
		return "invalid_magic"
	case KindOutOfRange:
		return "out_of_range"
	case KindUnbalancedTrace:
		return "unbalanced_trace"
	case KindDecoder:
		return "decoder"
	default:
		return "unknown"
	}
}

// KindOf maps err onto its Kind. Joined header errors report the version
// failure first.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNoData):
		return KindNoData
	case errors.Is(err, ErrLoadInProgress):
		return KindLoadInProgress
	case errors.Is(err, ErrOutOfRange):
		return KindOutOfRange
	case errors.Is(err, ErrUnsupportedVersion):
		return KindUnsupportedVersion
	case errors.Is(err, ErrInvalidMagic):
		return KindInvalidMagic
	case errors.Is(err, ErrUnbalancedTrace):
		return KindUnbalancedTrace
	default:
		return KindDecoder
	}
}
