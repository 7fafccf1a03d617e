package ftsearch

import (
	"encoding/json"
	"strings"
)

// DefaultSnippetSize is used when a snippet size is not positive.
const DefaultSnippetSize = 500

var emptyPayload = json.RawMessage("{}")

// Document is a single search hit.
type Document struct {
	ID string
	// Payload is the raw payload stored with the document, or {} when none was returned.
	Payload json.RawMessage
	Fields  map[string]string
}

func newDocument(id string, fields map[string]string, payload json.RawMessage) Document {
	if fields == nil {
		fields = make(map[string]string)
	}
	if len(payload) == 0 {
		payload = append(json.RawMessage(nil), emptyPayload...)
	}
	return Document{ID: id, Payload: payload, Fields: fields}
}

// Get returns the value of a field.
func (d *Document) Get(field string) (string, bool) {
	v, ok := d.Fields[field]
	return v, ok
}

// DecodePayload unmarshals the JSON payload into v.
func (d *Document) DecodePayload(v any) error {
	payload := d.Payload
	if len(payload) == 0 {
		payload = emptyPayload
	}
	return json.Unmarshal(payload, v)
}

// Snippetize shortens a field to roughly size characters and wraps every occurrence of
// the given terms in <b></b>. The cut is moved forward to the next space so words are
// never split, and "..." is appended when text was dropped. Bold markup contains no
// spaces, so a cut never lands inside a tag. Absent fields are left alone.
func (d *Document) Snippetize(field string, size int, terms []string) {
	txt, ok := d.Fields[field]
	if !ok {
		return
	}
	if size <= 0 {
		size = DefaultSnippetSize
	}

	runes := []rune(boldTerms(txt, terms))
	cut := size
	for cut < len(runes) && runes[cut] != ' ' {
		cut++
	}

	if cut < len(runes) {
		d.Fields[field] = string(runes[:cut]) + "..."
		return
	}
	d.Fields[field] = string(runes)
}

// boldTerms replaces all terms in a single pass, so inserted markup is never re-matched.
func boldTerms(txt string, terms []string) string {
	pairs := make([]string, 0, 2*len(terms))
	for _, t := range terms {
		if t == "" {
			continue
		}
		pairs = append(pairs, t, "<b>"+t+"</b>")
	}
	if len(pairs) == 0 {
		return txt
	}
	return strings.NewReplacer(pairs...).Replace(txt)
}
