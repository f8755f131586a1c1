package anthropic

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcore/core"
)

func TestBuildUserContent_ImageAttachmentsForwarded(t *testing.T) {
	m := &Model{opts: defaultOptions()}

	data := []byte{0x89, 0x50, 0x4e, 0x47}
	msg, err := core.NewInputMessage("describe this",
		core.Attachment{MimeType: "image/png", Data: data},
		core.Attachment{MimeType: "image/jpeg", URI: "https://example.com/cat.jpg"},
		core.Attachment{MimeType: "application/pdf", Data: []byte{0x25}},
	)
	require.NoError(t, err)

	content := m.buildUserContent(core.NewUserContent(msg).Parts)

	// Text plus both images; the pdf is not forwarded.
	require.Len(t, content, 3)

	require.NotNil(t, content[0].OfText)
	assert.Equal(t, "describe this", content[0].OfText.Text)

	require.NotNil(t, content[1].OfImage)
	require.NotNil(t, content[1].OfImage.Source.OfBase64)
	assert.Equal(t, base64.StdEncoding.EncodeToString(data), content[1].OfImage.Source.OfBase64.Data)

	require.NotNil(t, content[2].OfImage)
	require.NotNil(t, content[2].OfImage.Source.OfURL)
	assert.Equal(t, "https://example.com/cat.jpg", content[2].OfImage.Source.OfURL.URL)
}

func TestBuildUserContent_TextOnly(t *testing.T) {
	m := &Model{opts: defaultOptions()}

	content := m.buildUserContent([]core.Part{core.TextPart{Text: "plain"}})

	require.Len(t, content, 1)
	require.NotNil(t, content[0].OfText)
	assert.Equal(t, "plain", content[0].OfText.Text)
}
