// Package decode exposes the Decoder boundary the engine's external
// collaborators implement: translating a vendor ballot file into the
// engine's RawBallot slice. Only the CSV decoder has a body; the rest
// register stubs that name the out-of-scope boundary explicitly instead
// of silently mishandling an unsupported --format flag.
package decode

import (
	"fmt"
	"io"

	"github.com/clearvote/rcvtab/internal/ir"
)

// BallotSource is a Decoder's complete output: the decoded ballots plus
// the decoder's own per-file diagnostics (rows skipped as malformed,
// for instance), which the CLI surfaces separately from fatal errors.
type BallotSource struct {
	Ballots  []ir.RawBallot
	Warnings []string
}

// Decoder translates one vendor ballot file format into a BallotSource.
type Decoder interface {
	Decode(r io.Reader) (BallotSource, error)
}

// ErrFormatNotImplemented is returned by every stub decoder registered
// for a --format value this engine recognizes but does not yet decode.
var ErrFormatNotImplemented = fmt.Errorf("decode: format not implemented")

type stubDecoder struct{ format string }

func (s stubDecoder) Decode(io.Reader) (BallotSource, error) {
	return BallotSource{}, fmt.Errorf("%s: %w", s.format, ErrFormatNotImplemented)
}

// registry maps --format values to their Decoder. Built once at package
// init; never mutated afterward.
var registry = map[string]Decoder{
	"csv":                      CSVDecoder{},
	"ess":                      stubDecoder{"ess"},
	"dominion":                 stubDecoder{"dominion"},
	"cdf":                      stubDecoder{"cdf"},
	"msforms":                  stubDecoder{"msforms"},
	"msforms_likert":           stubDecoder{"msforms_likert"},
	"msforms_likert_transpose": stubDecoder{"msforms_likert_transpose"},
	"csv_likert":               stubDecoder{"csv_likert"},
	"qualtrics":                stubDecoder{"qualtrics"},
}

// Lookup resolves a --format value to its Decoder, or reports that the
// name is not one the engine recognizes at all (distinct from a
// recognized-but-unimplemented format).
func Lookup(format string) (Decoder, bool) {
	d, ok := registry[format]
	return d, ok
}

// SupportedFormats lists every --format value the CLI accepts.
func SupportedFormats() []string {
	return []string{"ess", "dominion", "cdf", "msforms", "msforms_likert", "msforms_likert_transpose", "csv", "csv_likert", "qualtrics"}
}
