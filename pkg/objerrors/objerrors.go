// Package objerrors collects the error taxonomy from spec.md §7 as
// sentinel errors, wrapped with fmt.Errorf("%w: ...") the same way the
// teacher's pkg/utils.MakeError and pkg/hw/cpu.makeError do. Callers use
// errors.Is/errors.As, never string matching.
package objerrors

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedArch — LoadError: the object's architecture is not
	// one objdiff knows how to decode.
	ErrUnsupportedArch = errors.New("unsupported architecture")
	// ErrMalformedHeader — LoadError: the ELF/COFF header could not be
	// parsed.
	ErrMalformedHeader = errors.New("malformed object header")
	// ErrTruncatedSection — LoadError: a section's declared size runs
	// past the end of the file.
	ErrTruncatedSection = errors.New("truncated section")

	// ErrDecode — DecodeError: a single instruction failed to decode.
	// Recovered locally by the scanner (an <invalid> InstructionRef is
	// emitted); this sentinel is used for the diagnostic record only.
	ErrDecode = errors.New("instruction decode error")

	// ErrRelocationUnresolved — RelocationError: a relocation's target
	// symbol could not be resolved; display shows "<unhandled
	// relocation>" and the relocation is kept with object.SymbolSentinel.
	ErrRelocationUnresolved = errors.New("unresolved relocation target")
	// ErrImplicitAddend — RelocationError: the architecture could not
	// compute an implicit addend for a relocation format that needs one.
	ErrImplicitAddend = errors.New("unsupported implicit addend")

	// ErrAlignmentTooLarge — the Levenshtein matrix for a symbol pair
	// would exceed the safety cap; that symbol is rendered without a
	// diff.
	ErrAlignmentTooLarge = errors.New("alignment matrix too large")

	// ErrCancelledOrTimedOut — the aligner's deadline expired or its
	// cancellation flag was set; partial results are still returned.
	ErrCancelledOrTimedOut = errors.New("alignment cancelled or timed out")
)

// Wrap attaches additional context to a sentinel error, e.g.
// objerrors.Wrap(objerrors.ErrDecode, "at offset %d", offset).
func Wrap(err error, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{err}, args...)...)
}
