package canonical

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalSortsKeysUTF16(t *testing.T) {
	obj := map[string]any{
		"b":   "second",
		"a":   "first",
		"aa":  "third",
		"A":   "upper",
		"é": "accent",
	}

	data, err := Marshal(obj)
	require.NoError(t, err)

	// UTF-16 code unit order: "A" (0x41) < "a" (0x61) < "aa" < "b" < "é" (0xE9)
	assert.Equal(t, `{"A":"upper","a":"first","aa":"third","b":"second","é":"accent"}`, string(data))
}

func TestMarshalNoHTMLEscaping(t *testing.T) {
	data, err := Marshal(map[string]any{"html": "<a href=\"x\">&amp;</a>"})
	require.NoError(t, err)
	assert.Equal(t, `{"html":"<a href=\"x\">&amp;</a>"}`, string(data))
}

func TestMarshalRejectsFloats(t *testing.T) {
	_, err := Marshal(map[string]any{"n": 1.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float")

	_, err = Marshal(map[string]any{"n": json.Number("1.5")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-integral")
}

func TestMarshalRejectsNull(t *testing.T) {
	_, err := Marshal(nil)
	require.Error(t, err)

	_, err = Marshal(map[string]any{"x": nil})
	require.Error(t, err)
}

func TestMarshalIntegralNumber(t *testing.T) {
	data, err := Marshal(map[string]any{"big": json.Number("9007199254740993")})
	require.NoError(t, err)
	// Would lose precision as float64; must survive verbatim.
	assert.Equal(t, `{"big":9007199254740993}`, string(data))
}

func TestMarshalLineSeparatorsLiteral(t *testing.T) {
	data, err := Marshal("a b c")
	require.NoError(t, err)
	assert.Equal(t, "\"a b c\"", string(data))

	// A literal backslash followed by the text "u2028" must stay escaped.
	data, err = Marshal(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(data))
}

func TestMarshalDeterministic(t *testing.T) {
	obj := map[string]any{
		"nested": map[string]any{"z": int64(1), "a": []any{"x", true, int64(3)}},
		"name":   "asset",
	}

	first, err := Marshal(obj)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Marshal(obj)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRoundtripIsolatesCopies(t *testing.T) {
	type payload struct {
		Desc string         `json:"desc"`
		Tags map[string]int `json:"tags"`
	}
	src := payload{Desc: "original", Tags: map[string]int{"n": 1}}

	copied, err := Roundtrip(src)
	require.NoError(t, err)

	src.Tags["n"] = 99
	assert.Equal(t, json.Number("1"), copied["tags"].(map[string]any)["n"],
		"snapshot must not observe later mutation")
}

func TestClaimDigestDomainSeparated(t *testing.T) {
	data := []byte("identical bytes")
	assert.NotEqual(t, ClaimDigest(data), ContentDigest(data),
		"same bytes under different domains must digest differently")
	assert.Len(t, ClaimDigest(data), 64, "SHA-256 hex is 64 characters")
}

func TestContentDigestDeterministic(t *testing.T) {
	d1 := ContentDigest([]byte{0x01, 0x02})
	d2 := ContentDigest([]byte{0x01, 0x02})
	d3 := ContentDigest([]byte{0x01, 0x03})
	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, d3)
}
