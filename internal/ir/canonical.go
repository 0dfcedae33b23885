package ir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON for an IRValue — the
// only serialization this package uses for content-addressed identity
// (ballot signatures, tiebreak digests). Restricting the input to the
// sealed IRValue family means floats are rejected by the type system
// itself; a nil value is rejected by a runtime check below. Nothing
// outside this package can construct an IRValue that MarshalCanonical
// doesn't already know how to render deterministically.
//
// Key differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings (and object keys) are NFC normalized
func MarshalCanonical(v IRValue) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("nil is forbidden in canonical JSON")
	}
	switch val := v.(type) {
	case IRString:
		return marshalCanonicalString(string(val))
	case IRInt:
		return []byte(fmt.Sprintf("%d", val)), nil
	case IRBool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case IRArray:
		return marshalCanonicalArray(val)
	case IRObject:
		return marshalCanonicalObject(val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// CanonicalChoiceArray renders a normalized ballot's choice sequence into
// the IRArray form BallotSignature hashes. Each choice becomes a
// single-field IRObject so the encoding is unambiguous between, say, an
// Overvote and a literal candidate named "Overvote" — this is the one
// point where the ballot domain actually flows through the canonical
// encoder rather than stopping at a generic value tree.
func CanonicalChoiceArray(choices []Choice) IRArray {
	arr := make(IRArray, len(choices))
	for i, c := range choices {
		switch v := c.(type) {
		case ChoiceCandidate:
			arr[i] = IRObject{"candidate": IRInt(v.ID)}
		case ChoiceOvervote:
			arr[i] = IRObject{"overvote": IRBool(true)}
		case ChoiceBlank:
			arr[i] = IRObject{"blank": IRBool(true)}
		case ChoiceUndeclaredWriteIn:
			arr[i] = IRObject{"uwi": IRBool(true)}
		default:
			panic("ir: unhandled Choice variant in CanonicalChoiceArray")
		}
	}
	return arr
}

// marshalCanonicalString produces canonical JSON string with NFC normalization.
// CRITICAL: RFC 8785 compliance:
// - No HTML escaping (<, >, & are NOT escaped)
// - U+2028 (LINE SEPARATOR) and U+2029 (PARAGRAPH SEPARATOR) are NOT escaped
// - Only control characters (U+0000-U+001F), backslash, and quote are escaped
func marshalCanonicalString(s string) ([]byte, error) {
	// NFC normalize at serialization boundary
	normalized := norm.NFC.String(s)

	// Use encoder with HTML escaping disabled
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // CRITICAL: <, >, & must NOT be escaped
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds trailing newline, remove it
	result := buf.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}

	// RFC 8785: the six-byte escape sequences Go's json.Encoder emits for
	// U+2028 and U+2029 (kept for JavaScript compatibility) are not valid
	// canonical output; the literal characters are required instead. A
	// literal backslash immediately followed by the text u2028/u2029 must
	// be left alone - only a real escape sequence from the encoder gets
	// unescaped.
	result = unescapeU2028U2029(result)

	return result, nil
}

// unescapeU2028U2029 converts the json.Encoder's U+2028/U+2029 escape
// sequences back to their literal characters per RFC 8785, leaving an
// escaped backslash followed by literal u2028/u2029 text alone.
func unescapeU2028U2029(data []byte) []byte {
	// Fast path: if no \u202 sequences, return unchanged
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	var result []byte
	i := 0
	for i < len(data) {
		// Look for a U+2028 or U+2029 escape sequence
		if i+6 <= len(data) && data[i] == '\\' && data[i+1] == 'u' && data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' {
			if data[i+5] == '8' || data[i+5] == '9' {
				// If we haven't started result yet, count backslashes from
				// data; otherwise count from result. An even number of
				// preceding backslashes (including zero) means this is a
				// real \u202x escape to unescape; an odd number means the
				// last backslash is escaping this one (\\u202x stays as-is).
				actualBackslashes := 0
				if result == nil {
					for j := i - 1; j >= 0 && data[j] == '\\'; j-- {
						actualBackslashes++
					}
				} else {
					for j := len(result) - 1; j >= 0 && result[j] == '\\'; j-- {
						actualBackslashes++
					}
				}

				if actualBackslashes%2 == 0 {
					if result == nil {
						result = make([]byte, 0, len(data))
						result = append(result, data[:i]...)
					}
					if data[i+5] == '8' {
						result = append(result, " "...)
					} else {
						result = append(result, " "...)
					}
					i += 6
					continue
				}
			}
		}

		if result != nil {
			result = append(result, data[i])
		}
		i++
	}

	if result == nil {
		return data
	}
	return result
}

// marshalCanonicalArray marshals an array to canonical JSON.
func marshalCanonicalArray(arr IRArray) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := MarshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// marshalCanonicalObject marshals an object to canonical JSON with RFC 8785 key ordering.
func marshalCanonicalObject(obj IRObject) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	// CRITICAL: RFC 8785 UTF-16 code unit ordering
	keys := obj.SortedKeys()

	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		// Marshal key (NFC normalized, no HTML escape)
		keyBytes, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		// Marshal value
		valBytes, err := MarshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
