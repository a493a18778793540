package response

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_PreferredFormat(t *testing.T) {
	payload, used, err := Decode([]byte(`{"value":[{"ID":1}]}`), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, FormatJSON, used)
	assert.Equal(t, map[string]any{"value": []any{map[string]any{"ID": json.Number("1")}}}, payload)
}

func TestDecode_FallsBackToAtom(t *testing.T) {
	raw, err := os.ReadFile("testdata/customers_feed.xml")
	require.NoError(t, err)

	rows, used, err := DecodeRows(raw, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, FormatAtom, used, "caller can tell the fallback happened")

	want := []any{
		map[string]any{
			"CustomerID":  "ALFKI",
			"CompanyName": "Alfreds Futterkiste",
			"Region":      nil,
			"Address":     map[string]any{"City": "Berlin", "PostalCode": "12209"},
		},
		map[string]any{
			"CustomerID":  "ANATR",
			"CompanyName": "Ana Trujillo Emparedados y helados",
			"Region":      nil,
			"Phones":      []any{"(5) 555-4729", "(5) 555-3745"},
		},
	}
	assert.Equal(t, want, rows)
}

func TestDecode_FallsBackToJSON(t *testing.T) {
	payload, used, err := DecodeRows([]byte(`{"d":{"results":[{"a":"b"}]}}`), FormatAtom)
	require.NoError(t, err)

	assert.Equal(t, FormatJSON, used)
	assert.Equal(t, []any{map[string]any{"a": "b"}}, payload)
}

func TestDecode_SingleAtomEntry(t *testing.T) {
	raw := `<entry xmlns="http://www.w3.org/2005/Atom" xmlns:m="m" xmlns:d="d">
  <content type="application/xml"><m:properties><d:ID>7</d:ID></m:properties></content>
</entry>`

	payload, used, err := Decode([]byte(raw), FormatAtom)
	require.NoError(t, err)
	assert.Equal(t, FormatAtom, used)
	assert.Equal(t, map[string]any{"ID": "7"}, payload)
}

func TestDecode_AtomCollections(t *testing.T) {
	raw := `<entry xmlns="http://www.w3.org/2005/Atom" xmlns:m="m" xmlns:d="d">
  <content type="application/xml"><m:properties>
    <d:Tags m:type="Collection(Edm.String)"/>
    <d:Emails m:type="Collection(Edm.String)"><d:element>a@x</d:element><d:element>b@x</d:element></d:Emails>
    <d:Name m:type="Edm.String"></d:Name>
  </m:properties></content>
</entry>`

	payload, _, err := Decode([]byte(raw), FormatAtom)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"Tags":   []any{},
		"Emails": []any{"a@x", "b@x"},
		"Name":   "",
	}, payload)
}

func TestDecode_EmptyBodyIsEmptyCollection(t *testing.T) {
	rows, used, err := DecodeRows([]byte("  "), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, used)
	assert.Equal(t, []any{}, rows)
}

func TestDecode_NotStructured(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "html page", raw: `<!DOCTYPE html><html><body><p>Sign in</body></html>`},
		{name: "plain text", raw: `Service Unavailable`},
		{name: "truncated json", raw: `{"value":[`},
		{name: "xml that is not atom", raw: `<error><message>bad</message></error>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tt.raw), FormatJSON)
			assert.ErrorIs(t, err, ErrNotStructured)
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("XML")
	require.NoError(t, err)
	assert.Equal(t, FormatAtom, f)

	_, err = ParseFormat("csv")
	assert.Error(t, err)
}
