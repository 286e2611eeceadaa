package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_CallDocument(t *testing.T) {
	data := []byte(`<call model="K32:J:B:A:2011033000" srcid="00010203040506070809">` +
		`<cardmng cardid="E0040100DE52896C" cardtype="1" method="inquire" update="1"/></call>`)

	doc, err := NewTextCodec().Decode(data)
	require.NoError(t, err)

	assert.Equal(t, "call", doc.Name)
	assert.Equal(t, "K32:J:B:A:2011033000", doc.Attr("model"))

	module := doc.FirstChild()
	require.NotNil(t, module)
	assert.Equal(t, "cardmng", module.Name)
	assert.Equal(t, "inquire", module.Attr("method"))
	assert.Equal(t, AttrNone, module.Attr("command"))
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: ""},
		{name: "garbage", data: "\x00\x01\x02"},
		{name: "unterminated", data: "<call><cardmng/>"},
		{name: "two roots", data: "<a/><b/>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTextCodec().Decode([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	doc := New("response").Add(
		New("facility", "expire", "600").Add(
			New("location").Add(
				New("id").withText("CA-123"),
				Typed("type", TypeU8, "0"),
			),
			New("portfw").Add(
				TypedCount("globalip", TypeIP4, "1", "192.168.1.139"),
				Typed("globalport", TypeU16, "80"),
			),
		),
	)

	c := NewTextCodec()
	data, err := c.Encode(doc)
	require.NoError(t, err)

	back, err := c.Decode(data)
	require.NoError(t, err)
	assert.True(t, doc.Equal(back), "decoded document differs:\n%s", data)
}

func TestEncode_EscapesText(t *testing.T) {
	doc := New("response").Add(New("message", "text", `a<b>&"c`))
	c := NewTextCodec()
	data, err := c.Encode(doc)
	require.NoError(t, err)
	back, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, `a<b>&"c`, back.Child("message").Attr("text"))
}

func TestNode_SetAttrReplaces(t *testing.T) {
	n := New("cardmng", "status", "0")
	n.SetAttr("status", "116")
	assert.Equal(t, "116", n.Attr("status"))
	assert.Len(t, n.Attrs, 1)
}

func TestNode_ChildText(t *testing.T) {
	n := New("card").Add(
		Typed("refid", TypeStr, "E9D2DD02072F05C5"),
	)
	assert.Equal(t, "E9D2DD02072F05C5", n.ChildText("refid"))
	assert.Equal(t, AttrNone, n.ChildText("uid"))
}

// withText is a small test helper for fluent literals.
func (n *Node) withText(s string) *Node {
	n.Text = s
	return n
}
