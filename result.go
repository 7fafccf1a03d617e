package ftsearch

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Result is a decoded FT.SEARCH reply.
type Result struct {
	Total    int64
	Duration time.Duration
	Docs     []Document
}

// ParseResult decodes a raw FT.SEARCH reply produced by q.
//
// The reply is [total, id1, (payload1,) (fields1,) id2, ...]; which elements are present
// depends on whether q asked for content and payloads. When snippetSizes is non-empty and
// content was returned, each listed field is shortened with Document.Snippetize using the
// query terms as bold candidates.
func ParseResult(reply any, q *Query, elapsed time.Duration, snippetSizes map[string]int) (*Result, error) {
	if q == nil {
		return nil, configErrorf("query is required")
	}
	arr, ok := reply.([]any)
	if !ok {
		return nil, malformedf("expected array reply, got %T", reply)
	}
	if len(arr) == 0 {
		return nil, malformedf("missing total count")
	}

	total, err := toInt64(arr[0])
	if err != nil {
		return nil, malformedf("total count: %v", err)
	}

	hasContent := q.HasContent()
	hasPayload := hasContent && q.HasPayloads()

	// 1-stride: [total, id...]
	// 2-stride: [total, id, fields, ...]
	// 3-stride: [total, id, payload, fields, ...]
	splitBy := 1
	if hasContent {
		splitBy = 2
		if hasPayload {
			splitBy = 3
		}
	}

	rest := arr[1:]
	if len(rest)%splitBy != 0 {
		return nil, malformedf("%d elements cannot be split into groups of %d", len(rest), splitBy)
	}

	var terms []string
	if hasContent && len(snippetSizes) > 0 {
		terms = strings.Fields(q.QueryString())
	}

	docs := make([]Document, 0, len(rest)/splitBy)
	for i := 0; i < len(rest); i += splitBy {
		group := rest[i : i+splitBy]

		id, ok := group[0].(string)
		if !ok {
			return nil, malformedf("document id at %d: expected string, got %T", i+1, group[0])
		}

		var payload json.RawMessage
		if hasPayload {
			payload, err = toPayload(group[1])
			if err != nil {
				return nil, malformedf("payload of %q: %v", id, err)
			}
		}

		var fields map[string]string
		if hasContent {
			fields, err = parseFieldPairs(group[splitBy-1])
			if err != nil {
				return nil, malformedf("fields of %q: %v", id, err)
			}
		}

		doc := newDocument(id, fields, payload)
		if hasContent {
			for field, size := range snippetSizes {
				doc.Snippetize(field, size, terms)
			}
		}
		docs = append(docs, doc)
	}

	return &Result{Total: total, Duration: elapsed, Docs: docs}, nil
}

// parseFieldPairs decodes an alternating key/value list. The "id" key is dropped:
// the document id is the group's leading element.
func parseFieldPairs(v any) (map[string]string, error) {
	if v == nil {
		return map[string]string{}, nil
	}
	pairs, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", v)
	}
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("odd number of elements (%d)", len(pairs))
	}

	m := make(map[string]string, len(pairs)/2)
	for j := 0; j < len(pairs); j += 2 {
		name, ok := pairs[j].(string)
		if !ok {
			return nil, fmt.Errorf("field name at %d: expected string, got %T", j, pairs[j])
		}
		if name == "id" {
			continue
		}
		value, err := toText(pairs[j+1])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		m[name] = value
	}
	return m, nil
}

func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", t, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func toText(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func toPayload(v any) (json.RawMessage, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return json.RawMessage(t), nil
	default:
		return nil, fmt.Errorf("expected string or nil, got %T", v)
	}
}
