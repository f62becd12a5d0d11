package enex

import (
	"testing"
	"time"

	"github.com/stackpile/noteforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlainText(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{
			name:   "empty content",
			markup: "",
			want:   "",
		},
		{
			name:   "plain wrapper",
			markup: `<en-note><div>Buy milk</div></en-note>`,
			want:   "Buy milk",
		},
		{
			name:   "media placeholder",
			markup: `<en-note>Receipt: <en-media hash="abc" type="image/png"/></en-note>`,
			want:   "Receipt: [Attachment]",
		},
		{
			name:   "checkboxes",
			markup: `<en-note><en-todo checked="true"/>done<br/><en-todo checked="false"/>pending</en-note>`,
			want:   "☑ done ☐ pending",
		},
		{
			name:   "collapses whitespace and entities",
			markup: "<en-note><div>  a &amp; b  </div>\n<div>c</div></en-note>",
			want:   "a & b c",
		},
		{
			name:   "strips xml prologue and doctype",
			markup: `<?xml version="1.0"?><!DOCTYPE en-note SYSTEM "http://xml.evernote.com/pub/enml2.dtd"><en-note>hello</en-note>`,
			want:   "hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPlainText(tt.markup))
		})
	}
}

func TestClassifyTags(t *testing.T) {
	t.Run("deterministic classification", func(t *testing.T) {
		contexts, project, area := ClassifyTags([]string{"project-apollo", "@computer", "finance"})

		assert.Equal(t, []string{"@computer"}, contexts)
		assert.Equal(t, "apollo", project)
		assert.Equal(t, "finance", area)
	})

	t.Run("empty tags yield nothing", func(t *testing.T) {
		contexts, project, area := ClassifyTags(nil)

		assert.Empty(t, contexts)
		assert.Empty(t, project)
		assert.Empty(t, area)
	})

	t.Run("whitelist words fold into contexts", func(t *testing.T) {
		contexts, _, _ := ClassifyTags([]string{"Phone", "errands", "misc"})

		assert.Equal(t, []string{"@phone", "@errands"}, contexts)
	})

	t.Run("contexts are a set", func(t *testing.T) {
		contexts, _, _ := ClassifyTags([]string{"computer", "@computer", "@errands", "Errands"})

		assert.Equal(t, []string{"@computer", "@errands"}, contexts)
	})

	t.Run("project prefix and pattern forms", func(t *testing.T) {
		_, project, _ := ClassifyTags([]string{"p:garden"})
		assert.Equal(t, "garden", project)

		_, project, _ = ClassifyTags([]string{"Apollo Project"})
		assert.Equal(t, "Apollo", project)
	})

	t.Run("first project wins", func(t *testing.T) {
		_, project, _ := ClassifyTags([]string{"p:first", "p:second"})
		assert.Equal(t, "first", project)
	})

	t.Run("area label and prefix forms", func(t *testing.T) {
		_, _, area := ClassifyTags([]string{"area-gardening"})
		assert.Equal(t, "gardening", area)

		_, _, area = ClassifyTags([]string{"a:hobbies"})
		assert.Equal(t, "hobbies", area)
	})
}

func TestParseNoteTime(t *testing.T) {
	fallback := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("compact and general formats agree", func(t *testing.T) {
		compact := ParseNoteTime("20230615T140000Z", fallback)
		general := ParseNoteTime("2023-06-15T14:00:00Z", fallback)

		assert.True(t, compact.Equal(general))
		assert.Equal(t, time.Date(2023, 6, 15, 14, 0, 0, 0, time.UTC), compact)
	})

	t.Run("unparseable degrades to fallback", func(t *testing.T) {
		assert.Equal(t, fallback, ParseNoteTime("not a date", fallback))
	})

	t.Run("missing degrades to fallback", func(t *testing.T) {
		assert.Equal(t, fallback, ParseNoteTime("", fallback))
	})
}

func TestDeriveSourceID(t *testing.T) {
	t.Run("guid wins", func(t *testing.T) {
		n := &Note{GUID: "guid-1", Attributes: NoteAttributes{GUID: "alt-1"}}
		assert.Equal(t, "guid-1", DeriveSourceID(n))
	})

	t.Run("alternate guid second", func(t *testing.T) {
		n := &Note{Attributes: NoteAttributes{GUID: "alt-1"}}
		assert.Equal(t, "alt-1", DeriveSourceID(n))
	})

	t.Run("content hash is deterministic", func(t *testing.T) {
		a := &Note{Title: "Groceries", Created: "20230615T140000Z"}
		b := &Note{Title: "Groceries", Created: "20230615T140000Z"}
		c := &Note{Title: "Groceries", Created: "20230616T140000Z"}

		assert.Equal(t, DeriveSourceID(a), DeriveSourceID(b))
		assert.NotEqual(t, DeriveSourceID(a), DeriveSourceID(c))
		assert.Len(t, DeriveSourceID(a), 64)
	})
}

func TestNormalizeNote(t *testing.T) {
	t.Run("full note", func(t *testing.T) {
		note := &Note{
			GUID:    "note-guid",
			Title:   "Call plumber",
			Content: `<en-note>Leaky faucet in the kitchen</en-note>`,
			Created: "20230615T140000Z",
			Updated: "20230616T090000Z",
			Tags:    []string{"@phone", "p:house", "personal"},
			Attributes: NoteAttributes{
				Author: "ada",
				Source: "mobile",
			},
		}

		doc, err := NormalizeNote(note)
		require.NoError(t, err)

		assert.Equal(t, "note-guid", doc.SourceID)
		assert.Equal(t, "Call plumber", doc.Title)
		assert.Equal(t, "Leaky faucet in the kitchen", doc.Content)
		assert.Equal(t, []string{"@phone"}, doc.Contexts)
		assert.Equal(t, "house", doc.Project)
		assert.Equal(t, "personal", doc.Area)
		assert.Equal(t, domain.DocumentStatusActive, doc.Status)
		assert.True(t, doc.NeedsEmbedding)
		assert.Equal(t, time.Date(2023, 6, 15, 14, 0, 0, 0, time.UTC), doc.CreatedAt)
		assert.Equal(t, time.Date(2023, 6, 16, 9, 0, 0, 0, time.UTC), doc.UpdatedAt)
		assert.Equal(t, "ada", doc.Metadata["author"])
		assert.Equal(t, "mobile", doc.Metadata["source"])
	})

	t.Run("nil note is a structural error", func(t *testing.T) {
		_, err := NormalizeNote(nil)
		assert.ErrorIs(t, err, domain.ErrEmptyNote)
	})

	t.Run("blank note is a structural error", func(t *testing.T) {
		_, err := NormalizeNote(&Note{})
		assert.ErrorIs(t, err, domain.ErrEmptyNote)
	})

	t.Run("missing fields degrade to defaults", func(t *testing.T) {
		before := time.Now().UTC()
		doc, err := NormalizeNote(&Note{Title: "Only a title", Created: "garbage"})
		require.NoError(t, err)
		after := time.Now().UTC()

		assert.Equal(t, []string{domain.DefaultContext}, doc.Contexts)
		assert.Empty(t, doc.Content)
		assert.True(t, !doc.CreatedAt.Before(before) && !doc.CreatedAt.After(after),
			"unparseable date should degrade to now")
	})

	t.Run("untitled note gets placeholder title", func(t *testing.T) {
		doc, err := NormalizeNote(&Note{
			Content: "<en-note>body only</en-note>",
			GUID:    "g",
			Created: "20230615T140000Z",
		})
		require.NoError(t, err)

		assert.Equal(t, "Untitled note 2023-06-15", doc.Title)
	})

	t.Run("re-normalizing yields the same identity", func(t *testing.T) {
		note := &Note{Title: "Stable", Created: "20230615T140000Z", Content: "<en-note>x</en-note>"}

		first, err := NormalizeNote(note)
		require.NoError(t, err)
		second, err := NormalizeNote(note)
		require.NoError(t, err)

		assert.Equal(t, first.SourceID, second.SourceID)
	})
}
