package csvcodec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
	}{
		{
			name:  "empty input",
			input: "",
			want:  [][]string{{""}},
		},
		{
			name:  "single row without newline",
			input: "a,b,c",
			want:  [][]string{{"a", "b", "c"}},
		},
		{
			name:  "trailing newline yields blank row",
			input: "a,b\n1,2\n",
			want:  [][]string{{"a", "b"}, {"1", "2"}, {""}},
		},
		{
			name:  "crlf line endings",
			input: "a,b\r\n1,2\r\n",
			want:  [][]string{{"a", "b"}, {"1", "2"}, {""}},
		},
		{
			name:  "quoted comma",
			input: `"x,y",z`,
			want:  [][]string{{"x,y", "z"}},
		},
		{
			name:  "escaped quote",
			input: `"He said ""hi"", then left"`,
			want:  [][]string{{`He said "hi", then left`}},
		},
		{
			name:  "embedded newline",
			input: "\"line1\nline2\",b\n",
			want:  [][]string{{"line1\nline2", "b"}, {""}},
		},
		{
			name:  "cr kept inside quotes",
			input: "\"a\r\nb\"",
			want:  [][]string{{"a\r\nb"}},
		},
		{
			name:  "empty fields",
			input: ",,",
			want:  [][]string{{"", "", ""}},
		},
		{
			name:  "quote opens mid field",
			input: `ab"c,d"e,f`,
			want:  [][]string{{"abc,de", "f"}},
		},
		{
			name:  "unterminated quote runs to end",
			input: "\"abc,def\nghi",
			want:  [][]string{{"abc,def\nghi"}},
		},
		{
			name:  "blank line in the middle",
			input: "a\n\nb",
			want:  [][]string{{"a"}, {""}, {"b"}},
		},
		{
			name:  "multibyte text",
			input: "naïve,日本\n",
			want:  [][]string{{"naïve", "日本"}, {""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.input))
		})
	}
}

func TestIsBlankRow(t *testing.T) {
	assert.True(t, IsBlankRow([]string{""}))
	assert.False(t, IsBlankRow([]string{"", ""}))
	assert.False(t, IsBlankRow([]string{"x"}))
	assert.False(t, IsBlankRow(nil))
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"", ""},
		{"a,b", `"a,b"`},
		{`He said "hi", then left`, `"He said ""hi"", then left"`},
		{"two\nlines", "\"two\nlines\""},
		{"  spaced  ", "  spaced  "},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Quote(tt.in), "Quote(%q)", tt.in)
	}
}

type pair struct {
	name, note string
}

func pairField(p pair, col string) string {
	switch col {
	case "name":
		return p.name
	case "note":
		return p.note
	}
	return ""
}

func TestEncode(t *testing.T) {
	out := Encode([]string{"name", "note"}, []pair{
		{"a", "plain"},
		{"b", `He said "hi", then left`},
	}, pairField)

	want := "name,note\na,plain\nb,\"He said \"\"hi\"\", then left\"\n"
	assert.Equal(t, want, out)
}

func TestEncode_NoRows(t *testing.T) {
	out := Encode([]string{"name", "note"}, []pair(nil), pairField)
	assert.Equal(t, "name,note\n", out)
}

func TestEncodeRows_PadsShortRows(t *testing.T) {
	out := EncodeRows([]string{"a", "b", "c"}, [][]string{{"1"}, {"1", "2", "3", "4"}})
	assert.Equal(t, "a,b,c\n1,,\n1,2,3\n", out)
}

func TestRoundTrip(t *testing.T) {
	header := []string{"name", "note"}
	rows := []pair{
		{"comma", "a,b,c"},
		{"quote", `She said "no"`},
		{"newline", "first\nsecond"},
		{"all", "x,\"y\"\nz"},
		{"empty", ""},
		{"", "leading empty"},
		{"unicode", "Grüße, 世界"},
	}

	decoded := Decode(Encode(header, rows, pairField))

	require.True(t, IsBlankRow(decoded[len(decoded)-1]), "trailing newline should decode to a blank row")
	decoded = decoded[:len(decoded)-1]

	require.Len(t, decoded, len(rows)+1)
	assert.Equal(t, header, decoded[0])
	for i, r := range rows {
		assert.Equal(t, []string{r.name, r.note}, decoded[i+1], "row %d", i)
	}
}

func TestRoundTrip_QuotingExample(t *testing.T) {
	value := `He said "hi", then left`
	encoded := Quote(value)
	assert.Equal(t, `"He said ""hi"", then left"`, encoded)
	assert.Equal(t, [][]string{{value}}, Decode(encoded))
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"with bom", append([]byte{0xEF, 0xBB, 0xBF}, "a,b"...), "a,b"},
		{"without bom", []byte("a,b"), "a,b"},
		{"only bom", []byte{0xEF, 0xBB, 0xBF}, ""},
		{"partial bom kept", []byte{0xEF, 0xBB, 'a'}, "�a"},
		{"invalid byte", []byte{'a', 0xFF, 'b'}, "a�b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

func TestReadAll(t *testing.T) {
	text, err := ReadAll(strings.NewReader("\xEF\xBB\xBFProject,Server\n"), 0)
	require.NoError(t, err)
	assert.Equal(t, "Project,Server\n", text)

	text, err = ReadAll(strings.NewReader("12345"), 5)
	require.NoError(t, err)
	assert.Equal(t, "12345", text)

	_, err = ReadAll(strings.NewReader("123456"), 5)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestReadLimited_KeepsBytes(t *testing.T) {
	raw := "\xEF\xBB\xBFPK\x03\x04\xff"
	data, err := ReadLimited(strings.NewReader(raw), 0)
	require.NoError(t, err)
	assert.Equal(t, []byte(raw), data)

	_, err = ReadLimited(strings.NewReader(raw), 3)
	assert.ErrorIs(t, err, ErrTooLarge)
}
