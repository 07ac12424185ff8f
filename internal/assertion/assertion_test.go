package assertion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tracemark/internal/schema"
)

func TestNewCreativeWork(t *testing.T) {
	a, err := NewCreativeWork(Person{Name: "Mike Cvet", Identifier: "mikecvet"})
	require.NoError(t, err)

	assert.Equal(t, KindCreativeWork, a.Kind())
	assert.Equal(t, LabelCreativeWork, a.Label())
	assert.NoError(t, a.Validate())

	authors := a.Data()["author"].([]any)
	require.Len(t, authors, 1)
	assert.Equal(t, "Mike Cvet", authors[0].(map[string]any)["name"])
}

func TestNewCreativeWorkRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		authors []Person
		field   string
	}{
		{"no authors", nil, "authors"},
		{"empty name", []Person{{Name: "", Identifier: "id"}}, "authors[0].name"},
		{"blank name", []Person{{Name: "   ", Identifier: "id"}}, "authors[0].name"},
		{"empty identifier", []Person{{Name: "n", Identifier: ""}}, "authors[0].identifier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCreativeWork(tt.authors...)
			require.Error(t, err)

			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestNewExif(t *testing.T) {
	raw := []byte(`{
		"@context": {"exif": "http://ns.adobe.com/exif/1.0/"},
		"exif:GPSLatitude": "48,15.7068N",
		"exif:GPSLongitude": "16,15.9996W",
		"exif:GPSTimeStamp": "2023-08-23T19:12:45Z"
	}`)

	a, err := NewExif(raw)
	require.NoError(t, err)
	assert.Equal(t, LabelExif, a.Label())
	assert.Equal(t, "48,15.7068N", a.Data()["exif:GPSLatitude"])
	assert.NoError(t, a.Validate())
}

func TestNewExifRejectsBadJSON(t *testing.T) {
	_, err := NewExif([]byte(`{not json`))
	assert.True(t, IsFieldError(err))
}

func TestNewCustomSnapshotsData(t *testing.T) {
	type mediaData struct {
		N    int    `json:"n"`
		Desc string `json:"desc"`
	}
	src := mediaData{N: 128, Desc: "descriptive string"}

	a, err := NewCustom("org.contentauth.test", src)
	require.NoError(t, err)
	assert.Equal(t, "org.contentauth.test", a.Label())

	// Mutating the returned copy must not affect the assertion.
	copied := a.Data()
	copied["desc"] = "mutated"
	assert.Equal(t, "descriptive string", a.Data()["desc"])
}

func TestNewCustomWithSchema(t *testing.T) {
	s, err := schema.Compile(`{n: int & >0, desc: string & !=""}`)
	require.NoError(t, err)

	_, err = NewCustom("org.example.data", map[string]any{"n": 1, "desc": "ok"}, WithSchema(s))
	assert.NoError(t, err)

	_, err = NewCustom("org.example.data", map[string]any{"n": -5, "desc": "ok"}, WithSchema(s))
	assert.True(t, IsFieldError(err), "schema violation surfaces as a field error")
}

func TestNewCustomRejectsFloats(t *testing.T) {
	_, err := NewCustom("org.example.data", map[string]any{"ratio": 0.5})
	assert.True(t, IsFieldError(err), "floats break canonical hashing and are rejected up front")
}

func TestCredentialDetection(t *testing.T) {
	a, err := NewCustom("credentials/nppa", map[string]any{"issuer": "https://nppa.org/"})
	require.NoError(t, err)
	assert.True(t, a.IsCredential())

	b, err := NewCustom("org.contentauth.test", map[string]any{"n": 1})
	require.NoError(t, err)
	assert.False(t, b.IsCredential())
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	a, err := NewCustom("org.contentauth.test", map[string]any{
		"n": 128, "m": 256, "desc": "descriptive string",
	})
	require.NoError(t, err)

	decoded, err := Decode(a.Encode())
	require.NoError(t, err)

	assert.Equal(t, a.Kind(), decoded.Kind())
	assert.Equal(t, a.Label(), decoded.Label())

	want, err := a.CanonicalBytes()
	require.NoError(t, err)
	got, err := decoded.CanonicalBytes()
	require.NoError(t, err)
	assert.Equal(t, want, got, "canonical bytes must survive encode/decode exactly")
}

func TestDecodeDefersValidation(t *testing.T) {
	// A structurally decodable but semantically broken assertion must
	// decode fine; Validate is where the problem surfaces.
	broken := Record{Kind: KindCreativeWork, Label: LabelCreativeWork, Data: []byte(`{"author":[]}`)}
	a, err := Decode(broken)
	require.NoError(t, err)
	assert.Error(t, a.Validate())
}
