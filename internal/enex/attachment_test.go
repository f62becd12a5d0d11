package enex

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAttachment(t *testing.T) {
	t.Run("decodes payload and builds storage reference", func(t *testing.T) {
		res := &Resource{
			Data: ResourceData{Encoding: "base64", Value: "aGVsbG8gd29ybGQ="},
			Mime: "text/plain",
			Attributes: ResourceAttributes{
				FileName: "hello.txt",
			},
		}

		att, data, err := ExtractAttachment(res, 42)
		require.NoError(t, err)

		assert.Equal(t, []byte("hello world"), data)
		assert.Equal(t, int64(42), att.DocumentID)
		assert.Equal(t, "hello.txt", att.Filename)
		assert.Equal(t, "text/plain", att.MimeType)
		assert.Equal(t, int64(11), att.ByteSize)

		sum := sha256.Sum256([]byte("hello world"))
		assert.Equal(t, "attachments/"+hex.EncodeToString(sum[:]), att.StorageKey)
	})

	t.Run("multiline base64 payload", func(t *testing.T) {
		res := &Resource{
			Data: ResourceData{Value: "aGVsbG8g\nd29ybGQ=\n"},
			Mime: "text/plain",
		}

		att, data, err := ExtractAttachment(res, 1)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello world"), data)
		assert.Equal(t, int64(11), att.ByteSize)
	})

	t.Run("decode failure propagates for the caller to skip", func(t *testing.T) {
		res := &Resource{
			Data: ResourceData{Encoding: "base64", Value: "!!! not base64 !!!"},
			Mime: "image/png",
		}

		att, data, err := ExtractAttachment(res, 1)
		assert.Error(t, err)
		assert.Nil(t, att)
		assert.Nil(t, data)
	})

	t.Run("unsupported encoding fails decode", func(t *testing.T) {
		res := &Resource{Data: ResourceData{Encoding: "hex", Value: "abcd"}}

		_, _, err := ExtractAttachment(res, 1)
		assert.Error(t, err)
	})

	t.Run("missing filename derives from hash and mime", func(t *testing.T) {
		res := &Resource{
			Data: ResourceData{Value: "aGVsbG8="},
			Mime: "image/png",
		}

		att, _, err := ExtractAttachment(res, 1)
		require.NoError(t, err)
		assert.Contains(t, att.Filename, "attachment-")
		assert.Contains(t, att.Filename, ".png")
	})

	t.Run("geometry and duration land in metadata", func(t *testing.T) {
		res := &Resource{
			Data:     ResourceData{Value: "aGVsbG8="},
			Mime:     "video/mp4",
			Width:    640,
			Height:   480,
			Duration: 12,
		}

		att, _, err := ExtractAttachment(res, 1)
		require.NoError(t, err)
		assert.Equal(t, "640", att.Metadata["width"])
		assert.Equal(t, "480", att.Metadata["height"])
		assert.Equal(t, "12", att.Metadata["duration"])
	})

	t.Run("empty mime defaults to octet-stream", func(t *testing.T) {
		res := &Resource{Data: ResourceData{Value: "aGVsbG8="}}

		att, _, err := ExtractAttachment(res, 1)
		require.NoError(t, err)
		assert.Equal(t, "application/octet-stream", att.MimeType)
	})
}

func TestExtractRecognitionText(t *testing.T) {
	t.Run("recognized words joined in order", func(t *testing.T) {
		payload := `<?xml version="1.0"?>
<recoIndex docType="handwritten" objType="image">
  <item x="10" y="10" w="50" h="20">
    <t w="90">grocery</t>
    <t w="40">groovy</t>
  </item>
  <item x="70" y="10" w="50" h="20">
    <t w="85">list</t>
  </item>
</recoIndex>`

		assert.Equal(t, "grocery list", extractRecognitionText(payload))
	})

	t.Run("malformed payload is swallowed", func(t *testing.T) {
		assert.Empty(t, extractRecognitionText("<recoIndex><item>"))
	})

	t.Run("empty payload", func(t *testing.T) {
		assert.Empty(t, extractRecognitionText(""))
	})
}
