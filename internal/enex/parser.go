// Package enex parses legacy notebook exports and normalizes their notes
// into store-ready documents.
package enex

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/stackpile/noteforge/internal/domain"
)

// Export is the root of a parsed export file. Repeated note elements are
// always decoded into an ordered slice, regardless of cardinality.
type Export struct {
	XMLName xml.Name `xml:"en-export"`
	Notes   []Note   `xml:"note"`
}

// Note is one raw note record as it appears in the export.
type Note struct {
	GUID       string         `xml:"guid"`
	Title      string         `xml:"title"`
	Content    string         `xml:"content"`
	Created    string         `xml:"created"`
	Updated    string         `xml:"updated"`
	Tags       []string       `xml:"tag"`
	Resources  []Resource     `xml:"resource"`
	Attributes NoteAttributes `xml:"note-attributes"`
}

// NoteAttributes holds source-specific note metadata.
type NoteAttributes struct {
	GUID              string `xml:"guid"`
	Author            string `xml:"author"`
	Source            string `xml:"source"`
	SourceURL         string `xml:"source-url"`
	SourceApplication string `xml:"source-application"`
}

// Resource is an embedded binary attached to a note.
type Resource struct {
	Data        ResourceData       `xml:"data"`
	Mime        string             `xml:"mime"`
	Width       int                `xml:"width"`
	Height      int                `xml:"height"`
	Duration    int                `xml:"duration"`
	Recognition string             `xml:"recognition"`
	Attributes  ResourceAttributes `xml:"resource-attributes"`
}

// ResourceData is the encoded payload of a resource.
type ResourceData struct {
	Encoding string `xml:"encoding,attr"`
	Value    string `xml:",chardata"`
}

// ResourceAttributes holds source-specific resource metadata.
type ResourceAttributes struct {
	FileName  string `xml:"file-name"`
	SourceURL string `xml:"source-url"`
}

// ParseExport decodes an export document. A malformed or absent root
// structure is a structural error; an export with zero notes is valid.
func ParseExport(r io.Reader) (*Export, error) {
	if r == nil {
		return nil, domain.ErrEmptyExport
	}

	var export Export
	decoder := xml.NewDecoder(r)
	decoder.Strict = false

	if err := decoder.Decode(&export); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "export cannot be parsed", err)
	}

	return &export, nil
}

// ParseExportString decodes an export from a string.
func ParseExportString(data string) (*Export, error) {
	if strings.TrimSpace(data) == "" {
		return nil, domain.ErrEmptyExport
	}
	return ParseExport(strings.NewReader(data))
}
