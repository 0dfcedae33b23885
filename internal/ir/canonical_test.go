package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    IRValue
		expected string
	}{
		{"string", IRString("hello"), `"hello"`},
		{"empty string", IRString(""), `""`},
		{"int", IRInt(42), "42"},
		{"negative int", IRInt(-100), "-100"},
		{"zero", IRInt(0), "0"},
		{"max int64", IRInt(9223372036854775807), "9223372036854775807"},
		{"min int64", IRInt(-9223372036854775808), "-9223372036854775808"},
		{"bool true", IRBool(true), "true"},
		{"bool false", IRBool(false), "false"},
		{"empty array", IRArray{}, "[]"},
		{"empty object", IRObject{}, "{}"},
		{"array of ints", IRArray{IRInt(1), IRInt(2), IRInt(3)}, "[1,2,3]"},
		{"simple object", IRObject{"a": IRInt(1)}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := IRObject{
		"zebra": IRInt(1),
		"alpha": IRInt(2),
		"beta":  IRInt(3),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":3,"zebra":1}`, string(result))
}

func TestMarshalCanonicalNestedSortedKeys(t *testing.T) {
	obj := IRObject{
		"z": IRObject{
			"b": IRInt(1),
			"a": IRInt(2),
		},
		"a": IRInt(3),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"z":{"a":2,"b":1}}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+E000 vs U+10000 - UTF-16 order differs from UTF-8
	// This is THE critical test for RFC 8785 compliance
	obj := IRObject{
		"": IRInt(1), // UTF-16: 0xE000
		"\U00010000": IRInt(2), // UTF-16: 0xD800, 0xDC00 (surrogate pair)
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)

	// UTF-16 order: 0xD800 < 0xE000, so the U+10000 key comes first
	expected := `{"` + "\U00010000" + `":2,"` + "" + `":1}`
	assert.Equal(t, expected, string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	tests := []struct {
		name     string
		input    IRValue
		expected string
	}{
		{
			name:     "less than",
			input:    IRString("<script>"),
			expected: `"<script>"`,
		},
		{
			name:     "greater than",
			input:    IRString("</script>"),
			expected: `"</script>"`,
		},
		{
			name:     "ampersand",
			input:    IRString("a & b"),
			expected: `"a & b"`,
		},
		{
			name:     "all html chars",
			input:    IRString("<script>alert('xss')</script>"),
			expected: `"<script>alert('xss')</script>"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))

			assert.NotContains(t, string(result), "\\u003c")
			assert.NotContains(t, string(result), "\\u003e")
			assert.NotContains(t, string(result), "\\u0026")
		})
	}
}

func TestMarshalCanonicalHTMLInObject(t *testing.T) {
	obj := IRObject{
		"html": IRString("<script>alert('xss')</script>"),
		"amp":  IRString("a & b"),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)

	assert.Contains(t, string(result), "<script>")
	assert.Contains(t, string(result), "</script>")
	assert.Contains(t, string(result), "a & b")
	assert.NotContains(t, string(result), "\\u003c")
	assert.NotContains(t, string(result), "\\u003e")
	assert.NotContains(t, string(result), "\\u0026")
}

func TestMarshalCanonicalRejectsNull(t *testing.T) {
	_, err := MarshalCanonical(IRValue(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil is forbidden")
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	// NFC normalizes precomposed and decomposed accented forms to the same bytes.
	composed := "café"
	decomposed := "café"

	result1, err := MarshalCanonical(IRString(composed))
	require.NoError(t, err)

	result2, err := MarshalCanonical(IRString(decomposed))
	require.NoError(t, err)

	assert.Equal(t, result1, result2, "NFC normalization should make these equal")
}

func TestMarshalCanonicalNFCInObjectKeys(t *testing.T) {
	composed := "café"
	decomposed := "café"

	obj1 := IRObject{composed: IRInt(1)}
	obj2 := IRObject{decomposed: IRInt(1)}

	result1, err := MarshalCanonical(obj1)
	require.NoError(t, err)

	result2, err := MarshalCanonical(obj2)
	require.NoError(t, err)

	assert.Equal(t, result1, result2, "NFC normalization should make object keys equal")
}

func TestMarshalCanonicalCompactOutput(t *testing.T) {
	obj := IRObject{
		"array": IRArray{IRInt(1), IRInt(2)},
		"bool":  IRBool(true),
		"int":   IRInt(42),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)

	assert.NotContains(t, string(result), " ")
	assert.NotContains(t, string(result), "\n")
	assert.NotContains(t, string(result), "\t")
}

func TestMarshalCanonicalStringEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(IRString(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalU2028U2029NotEscaped(t *testing.T) {
	// RFC 8785: U+2028 (LINE SEPARATOR) and U+2029 (PARAGRAPH SEPARATOR) should NOT be escaped.
	// Only control characters (U+0000-U+001F), backslash, and quote should be escaped.
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "U+2028 LINE SEPARATOR",
			input:    "hello world",
			expected: "\"hello world\"",
		},
		{
			name:     "U+2029 PARAGRAPH SEPARATOR",
			input:    "hello world",
			expected: "\"hello world\"",
		},
		{
			name:     "both U+2028 and U+2029",
			input:    "a b c",
			expected: "\"a b c\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(IRString(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))

			assert.NotContains(t, string(result), ` `, "U+2028 should not be escaped per RFC 8785")
			assert.NotContains(t, string(result), ` `, "U+2029 should not be escaped per RFC 8785")
		})
	}
}

func TestMarshalCanonicalU2028U2029InObject(t *testing.T) {
	obj := IRObject{
		"key with separators": IRString("value with separators"),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)

	assert.NotContains(t, string(result), ` `)
	assert.NotContains(t, string(result), ` `)

	assert.Contains(t, string(result), " ")
	assert.Contains(t, string(result), " ")
}

func TestMarshalCanonicalLiteralBackslashU2028(t *testing.T) {
	// Strings containing a literal backslash followed by the text "u2028"
	// must not be affected by the U+2028 unescaping pass - only a real
	// escape sequence emitted by the encoder gets rewritten.
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "literal backslash-u2028 text",
			input:    `the escape sequence is  `,
			expected: `"the escape sequence is \\u2028"`,
		},
		{
			name:     "literal backslash-u2029 text",
			input:    `the escape sequence is  `,
			expected: `"the escape sequence is \\u2029"`,
		},
		{
			name:     "mixed literal and actual",
			input:    "literal \\u2028 and actual  ",
			expected: "\"literal \\\\u2028 and actual  \"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(IRString(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestCanonicalChoiceArrayDistinguishesVariants(t *testing.T) {
	choices := []Choice{
		ChoiceCandidate{ID: 1},
		ChoiceOvervote{},
		ChoiceBlank{},
		ChoiceUndeclaredWriteIn{},
	}

	arr := CanonicalChoiceArray(choices)
	assert.Len(t, arr, 4)

	sig1 := MustBallotSignature(arr)
	sig2 := MustBallotSignature(CanonicalChoiceArray([]Choice{ChoiceCandidate{ID: 1}}))
	assert.NotEqual(t, sig1, sig2)
}

func TestCanonicalChoiceArrayOrderSensitive(t *testing.T) {
	a := CanonicalChoiceArray([]Choice{ChoiceCandidate{ID: 1}, ChoiceCandidate{ID: 2}})
	b := CanonicalChoiceArray([]Choice{ChoiceCandidate{ID: 2}, ChoiceCandidate{ID: 1}})
	assert.NotEqual(t, MustBallotSignature(a), MustBallotSignature(b))
}

func TestCanonicalChoiceArrayStableForIdenticalSequences(t *testing.T) {
	choices := []Choice{ChoiceCandidate{ID: 1}, ChoiceBlank{}, ChoiceCandidate{ID: 3}}
	sig1 := MustBallotSignature(CanonicalChoiceArray(choices))
	sig2 := MustBallotSignature(CanonicalChoiceArray(choices))
	assert.Equal(t, sig1, sig2)
}
