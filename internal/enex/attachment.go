package enex

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"mime"
	"strconv"
	"strings"

	"github.com/stackpile/noteforge/internal/domain"
)

// ExtractAttachment decodes one resource into an Attachment record plus the
// raw payload bytes destined for blob storage. A payload that cannot be
// decoded returns an error the caller logs and skips; it never aborts note
// processing. Recognition text extraction is best-effort and silent.
func ExtractAttachment(res *Resource, documentID int64) (*domain.Attachment, []byte, error) {
	if res == nil {
		return nil, nil, fmt.Errorf("resource is nil")
	}

	data, err := decodePayload(res.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode resource payload: %w", err)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	att := &domain.Attachment{
		DocumentID:    documentID,
		Filename:      resourceFilename(res, hash),
		MimeType:      res.Mime,
		ByteSize:      int64(len(data)),
		StorageKey:    "attachments/" + hash,
		ExtractedText: extractRecognitionText(res.Recognition),
		Metadata:      resourceMetadata(res),
	}
	if att.MimeType == "" {
		att.MimeType = "application/octet-stream"
	}

	return att, data, nil
}

func decodePayload(data ResourceData) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(data.Encoding))
	if encoding != "" && encoding != "base64" {
		return nil, fmt.Errorf("unsupported resource encoding: %s", data.Encoding)
	}

	// Export payloads wrap base64 across lines.
	compact := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, data.Value)

	return base64.StdEncoding.DecodeString(compact)
}

func resourceFilename(res *Resource, hash string) string {
	if name := strings.TrimSpace(res.Attributes.FileName); name != "" {
		return name
	}

	ext := ""
	if exts, err := mime.ExtensionsByType(res.Mime); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	return "attachment-" + hash[:8] + ext
}

// recoIndex is the root of a resource recognition payload.
type recoIndex struct {
	XMLName xml.Name   `xml:"recoIndex"`
	Items   []recoItem `xml:"item"`
}

type recoItem struct {
	Texts []string `xml:"t"`
}

// extractRecognitionText pulls recognized words out of an OCR payload.
// Any decode or parse error yields an empty string.
func extractRecognitionText(payload string) string {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return ""
	}

	var index recoIndex
	decoder := xml.NewDecoder(strings.NewReader(payload))
	decoder.Strict = false
	if err := decoder.Decode(&index); err != nil {
		return ""
	}

	var words []string
	for _, item := range index.Items {
		// The first candidate per item carries the highest confidence.
		if len(item.Texts) > 0 && strings.TrimSpace(item.Texts[0]) != "" {
			words = append(words, strings.TrimSpace(item.Texts[0]))
		}
	}

	return strings.Join(words, " ")
}

func resourceMetadata(res *Resource) map[string]string {
	meta := make(map[string]string)
	if res.Width > 0 {
		meta["width"] = strconv.Itoa(res.Width)
	}
	if res.Height > 0 {
		meta["height"] = strconv.Itoa(res.Height)
	}
	if res.Duration > 0 {
		meta["duration"] = strconv.Itoa(res.Duration)
	}
	if res.Attributes.SourceURL != "" {
		meta["source_url"] = res.Attributes.SourceURL
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
