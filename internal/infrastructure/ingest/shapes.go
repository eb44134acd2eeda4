package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/precioscl/backend/internal/domain"
)

// wrapperListKeys are the alternate list keys accepted when `products` is absent
var wrapperListKeys = []string{"items", "results", "data", "productos"}

// payloadShape is one supported top-level layout of a scraped file
type payloadShape struct {
	name    string
	extract func(doc any) (items []any, metadata map[string]any, ok bool)
}

// payloadShapes are tried in order; the first structural match wins
var payloadShapes = []payloadShape{
	{name: "array", extract: extractArray},
	{name: "products", extract: extractProducts},
	{name: "wrapped-list", extract: extractWrappedList},
}

func extractArray(doc any) ([]any, map[string]any, bool) {
	items, ok := doc.([]any)
	return items, nil, ok
}

func extractProducts(doc any) ([]any, map[string]any, bool) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, nil, false
	}
	items, ok := obj["products"].([]any)
	if !ok {
		return nil, nil, false
	}
	return items, metadataOf(obj), true
}

func extractWrappedList(doc any) ([]any, map[string]any, bool) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, nil, false
	}
	for _, key := range wrapperListKeys {
		if items, ok := obj[key].([]any); ok {
			return items, metadataOf(obj), true
		}
	}
	return nil, nil, false
}

func metadataOf(obj map[string]any) map[string]any {
	if m, ok := obj["metadata"].(map[string]any); ok {
		return m
	}
	return nil
}

// ExtractRecords parses a JSON payload and returns its product records tagged
// with provenance. Invalid JSON is an error; valid JSON of an unsupported
// shape returns domain.ErrUnsupportedShape. Non-object list elements are
// ignored.
func ExtractRecords(data []byte, sourceFile string) ([]domain.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid JSON: trailing data after top-level value")
	}

	for _, shape := range payloadShapes {
		items, metadata, ok := shape.extract(doc)
		if !ok {
			continue
		}
		records := make([]domain.RawRecord, 0, len(items))
		for i, item := range items {
			fields, ok := item.(map[string]any)
			if !ok {
				continue
			}
			records = append(records, domain.RawRecord{
				Fields: fields,
				Provenance: domain.Provenance{
					SourceFile: sourceFile,
					Index:      i,
					Metadata:   metadata,
				},
			})
		}
		return records, nil
	}

	return nil, domain.ErrUnsupportedShape
}
