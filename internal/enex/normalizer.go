package enex

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/stackpile/noteforge/internal/domain"
)

// compactTimeLayout is the strict export timestamp format.
const compactTimeLayout = "20060102T150405Z"

// generalTimeLayouts are tried in order when the compact format does not match.
var generalTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var (
	noteWrapperOpenRe  = regexp.MustCompile(`(?i)<en-note[^>]*>`)
	noteWrapperCloseRe = regexp.MustCompile(`(?i)</en-note>`)
	mediaRe            = regexp.MustCompile(`(?i)<en-media[^>]*/?>`)
	todoCheckedRe      = regexp.MustCompile(`(?i)<en-todo[^>]*checked="true"[^>]*/?>`)
	todoRe             = regexp.MustCompile(`(?i)<en-todo[^>]*/?>`)
	tagRe              = regexp.MustCompile(`<[^>]*>`)
	wordProjectRe      = regexp.MustCompile(`(?i)^(\S+)\s+project$`)
	projectLabelRe     = regexp.MustCompile(`(?i)project`)
	areaLabelRe        = regexp.MustCompile(`(?i)area`)
)

// contextWhitelist are bare tag words folded into @-prefixed contexts.
var contextWhitelist = map[string]bool{
	"computer": true,
	"phone":    true,
	"office":   true,
	"home":     true,
	"errands":  true,
	"waiting":  true,
	"someday":  true,
}

// areaVocabulary are tags recognized as life areas when matched exactly.
var areaVocabulary = map[string]bool{
	"personal": true,
	"work":     true,
	"health":   true,
	"finance":  true,
	"family":   true,
	"learning": true,
}

// NormalizeNote converts one raw note into a Document draft. Recoverable
// issues (bad dates, missing tags, missing content) degrade to defaults;
// only a structurally absent note returns an error.
func NormalizeNote(n *Note) (*domain.Document, error) {
	if n == nil {
		return nil, domain.ErrEmptyNote
	}
	if n.Title == "" && n.Content == "" && n.GUID == "" {
		return nil, domain.ErrEmptyNote
	}

	now := time.Now().UTC()
	createdAt := ParseNoteTime(n.Created, now)
	updatedAt := ParseNoteTime(n.Updated, createdAt)

	contexts, project, area := ClassifyTags(n.Tags)

	doc := domain.NewDocument(
		DeriveSourceID(n),
		strings.TrimSpace(n.Title),
		ExtractPlainText(n.Content),
		contexts,
		createdAt,
		updatedAt,
	)
	doc.Project = project
	doc.Area = area
	doc.Metadata = noteMetadata(n)

	return doc, nil
}

// ExtractPlainText converts note markup to plain text. It never fails;
// missing content yields an empty string.
func ExtractPlainText(markup string) string {
	if markup == "" {
		return ""
	}

	text := noteWrapperOpenRe.ReplaceAllString(markup, "<div>")
	text = noteWrapperCloseRe.ReplaceAllString(text, "</div>")
	text = mediaRe.ReplaceAllString(text, " [Attachment] ")
	text = todoCheckedRe.ReplaceAllString(text, "☑ ")
	text = todoRe.ReplaceAllString(text, "☐ ")
	text = tagRe.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)

	return strings.Join(strings.Fields(text), " ")
}

// ClassifyTags partitions tags into contexts, a project and an area.
// Each category scans the tag list independently; the first match wins
// for project and area, while contexts form a set of every matching tag.
func ClassifyTags(tags []string) (contexts []string, project, area string) {
	seen := make(map[string]bool)
	addContext := func(c string) {
		if !seen[c] {
			seen[c] = true
			contexts = append(contexts, c)
		}
	}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if strings.HasPrefix(tag, "@") {
			addContext(tag)
		} else if contextWhitelist[strings.ToLower(tag)] {
			addContext("@" + strings.ToLower(tag))
		}
	}

	for _, tag := range tags {
		if name := projectFromTag(strings.TrimSpace(tag)); name != "" {
			project = name
			break
		}
	}

	for _, tag := range tags {
		if name := areaFromTag(strings.TrimSpace(tag)); name != "" {
			area = name
			break
		}
	}

	return contexts, project, area
}

func projectFromTag(tag string) string {
	if tag == "" {
		return ""
	}
	lower := strings.ToLower(tag)
	if strings.HasPrefix(lower, "p:") {
		return strings.TrimSpace(tag[2:])
	}
	if m := wordProjectRe.FindStringSubmatch(tag); m != nil {
		return strings.TrimSpace(m[1])
	}
	if strings.Contains(lower, "project") {
		stripped := projectLabelRe.ReplaceAllString(tag, "")
		return strings.Trim(stripped, " -_:")
	}
	return ""
}

func areaFromTag(tag string) string {
	if tag == "" {
		return ""
	}
	lower := strings.ToLower(tag)
	if strings.HasPrefix(lower, "a:") {
		return strings.TrimSpace(tag[2:])
	}
	if areaVocabulary[lower] {
		return lower
	}
	if strings.Contains(lower, "area") {
		stripped := areaLabelRe.ReplaceAllString(tag, "")
		return strings.Trim(stripped, " -_:")
	}
	return ""
}

// ParseNoteTime parses an export timestamp. The strict compact format is
// tried first, then general layouts; an unparseable or absent value
// degrades to the fallback instead of failing the note.
func ParseNoteTime(value string, fallback time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}

	if ts, err := time.Parse(compactTimeLayout, value); err == nil {
		return ts.UTC()
	}

	for _, layout := range generalTimeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC()
		}
	}

	return fallback
}

// DeriveSourceID returns the stable external identity for a note: its GUID,
// the attribute-block alternate GUID, or a deterministic content hash of
// title and creation timestamp.
func DeriveSourceID(n *Note) string {
	if n.GUID != "" {
		return n.GUID
	}
	if n.Attributes.GUID != "" {
		return n.Attributes.GUID
	}

	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s", n.Title, n.Created))
	return hex.EncodeToString(sum[:])
}

func noteMetadata(n *Note) map[string]string {
	meta := make(map[string]string)
	if n.Attributes.Author != "" {
		meta["author"] = n.Attributes.Author
	}
	if n.Attributes.Source != "" {
		meta["source"] = n.Attributes.Source
	}
	if n.Attributes.SourceURL != "" {
		meta["source_url"] = n.Attributes.SourceURL
	}
	if n.Attributes.SourceApplication != "" {
		meta["source_application"] = n.Attributes.SourceApplication
	}
	if len(n.Tags) > 0 {
		meta["tags"] = strings.Join(n.Tags, ",")
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
