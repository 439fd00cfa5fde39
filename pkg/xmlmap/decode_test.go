package xmlmap

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `<?xml version="1.0" encoding="utf-8" ?>
<amp:amp_ap_list version="1" xmlns:amp="http://www.airwave.com">
  <ap id="1">
    <name>AP001</name>
    <group id="2">Office</group>
    <radio index="1"><radio_type>bgn</radio_type></radio>
    <radio index="2"><radio_type>aN</radio_type></radio>
    <notes/>
  </ap>
</amp:amp_ap_list>`

func TestDecodeStructure(t *testing.T) {
	doc, err := DecodeBytes([]byte(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, []string{"amp:amp_ap_list"}, doc.Keys())

	root, ok := doc.Map("amp:amp_ap_list")
	require.True(t, ok)
	assert.Equal(t, []string{"@version", "@xmlns:amp", "ap"}, root.Keys())

	ap, ok := root.Map("ap")
	require.True(t, ok)
	assert.Equal(t, []string{"@id", "name", "group", "radio", "notes"}, ap.Keys())

	name, ok := ap.String("name")
	require.True(t, ok)
	assert.Equal(t, "AP001", name)

	group, ok := ap.Map("group")
	require.True(t, ok)
	id, _ := group.String("@id")
	assert.Equal(t, "2", id)
	text, _ := ap.String("group")
	assert.Equal(t, "Office", text)

	radios := ap.Maps("radio")
	require.Len(t, radios, 2)
	idx, _ := radios[1].String("@index")
	assert.Equal(t, "2", idx)

	notes, ok := ap.Get("notes")
	assert.True(t, ok)
	assert.Nil(t, notes)
}

func TestListNormalisesSingleValue(t *testing.T) {
	doc, err := DecodeBytes([]byte(`<root><item a="1"/></root>`))
	require.NoError(t, err)
	root, _ := doc.Map("root")

	assert.Len(t, root.List("item"), 1)
	assert.Len(t, root.Maps("item"), 1)
	assert.Nil(t, root.List("missing"))
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty", doc: ""},
		{name: "mismatched", doc: "<a><b></a></b>"},
		{name: "truncated", doc: "<a><b></b>"},
		{name: "two roots", doc: "<a/><b/>"},
		{name: "stray text", doc: "<a/>oops"},
		{name: "byte order mark only", doc: "\ufeff"},
		{name: "text after byte order mark", doc: "\ufeffoops<a/>"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeBytes([]byte(tc.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSyntax), "got %v", err)
		})
	}
}

func TestDecodeSkipsByteOrderMark(t *testing.T) {
	doc, err := DecodeBytes([]byte("\ufeff" + sampleDoc))
	require.NoError(t, err)

	root, ok := doc.Map("amp:amp_ap_list")
	require.True(t, ok)
	ap, ok := root.Map("ap")
	require.True(t, ok)
	name, _ := ap.String("name")
	assert.Equal(t, "AP001", name)
}

func TestDecodeLatin1AndEntities(t *testing.T) {
	doc := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><r><n>Caf\xe9&nbsp;1</n></r>")

	m, err := DecodeBytes(doc)
	require.NoError(t, err)
	r, _ := m.Map("r")
	n, _ := r.String("n")
	assert.Equal(t, "Caf\u00e9\u00a01", n)
}

func TestMarshalJSONKeepsOrder(t *testing.T) {
	m, err := DecodeBytes([]byte(`<r z="1"><b>2</b><a>3</a><a>4</a><e/></r>`))
	require.NoError(t, err)

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"r":{"@z":"1","b":"2","a":["3","4"],"e":null}}`, string(out))
}
