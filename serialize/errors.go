// Package serialize implements the binary and JSON codecs for
// ContinuationState (spec §4.I): a positional (no per-field keys),
// Kind-tagged, self-describing wire format
// wrapped in an outer LZ4 frame, plus a logically-equivalent JSON sibling.
// Grounded on the teacher's runtime serialization helpers for VM values
// (values package's own encode/decode use of length-prefixed, tagged
// binary) and on vm/errors.go's sentinel-plus-wrapper error style.
package serialize

import (
	"errors"
	"fmt"
)

var (
	// ErrDisallowedType is raised when a dynamic type outside the closed
	// values.Kind set is encountered on encode or decode.
	ErrDisallowedType = errors.New("value type not in the allow-list")
	// ErrMalformedChain is raised when a FrameRecord chain is longer than
	// maxFrameCount (a cyclic chain included): on encode by both codecs, and
	// on JSONCodec decode. BinaryCodec decode reports an oversized declared
	// frame count as ErrLimitExceeded instead.
	ErrMalformedChain = errors.New("malformed frame record chain")
	// ErrTruncated is raised when the input ends before a declared field's
	// length is satisfied.
	ErrTruncated = errors.New("truncated input")
	// ErrLimitExceeded is raised when a length-prefixed field declares a
	// size beyond the codec's sanity bound, before any allocation happens.
	ErrLimitExceeded = errors.New("declared size exceeds decode limit")
	// ErrUnsupportedVersion names a decoded state whose version field does
	// not match frame.CurrentVersion. Neither codec checks the version on
	// decode, so neither returns it; validator.TryValidate reports a mismatch
	// as validator.ErrUnsupportedVersion.
	ErrUnsupportedVersion = errors.New("unsupported continuation state version")
)

// DisallowedTypeError carries the offending tag byte / Kind value alongside
// ErrDisallowedType.
type DisallowedTypeError struct {
	Context string
	Tag     byte
}

func (e *DisallowedTypeError) Error() string {
	return fmt.Sprintf("%s: %s: tag 0x%02x", ErrDisallowedType, e.Context, e.Tag)
}

func (e *DisallowedTypeError) Unwrap() error { return ErrDisallowedType }
