// Package retrieval queries the origin and process memory stores concurrently
// and normalizes their unstable response shapes into a uniform record list.
package retrieval

import (
	"sort"

	"github.com/mnemora/membench/pkg/memstore"
)

// Source tags which logical store a record came from.
type Source string

const (
	// SourceRaw marks records from the origin (raw log) store.
	SourceRaw Source = "raw"

	// SourceFact marks records from the process (extracted fact) store.
	SourceFact Source = "fact"
)

// UnknownTimestamp is the sentinel used when a retrieved memory carries no
// timestamp; such records are kept, not dropped.
const UnknownTimestamp = "unknown"

// Record is one normalized retrieved memory.
type Record struct {
	// Content is the stored memory text. Always non-empty.
	Content string `json:"content"`

	// Timestamp is the session timestamp the memory was written under, or
	// [UnknownTimestamp].
	Timestamp string `json:"timestamp"`

	// Speaker is the display name of the owning speaker, filled in by the
	// synthesizer when merging multiple targets.
	Speaker string `json:"speaker,omitempty"`

	// Source tags the originating store.
	Source Source `json:"source,omitempty"`
}

// Normalize converts any of the search response shapes the store service has
// been observed to return into a flat record list:
//
//   - *memstore.SearchResponse / memstore.SearchResponse (typed object shape)
//   - map with data.memory_detail_list (decoded JSON object)
//   - bare list of detail objects
//   - list ("tuple") whose elements wrap a detail-list-bearing value
//
// Unrecognized shapes yield an empty list — never an error. Records with empty
// content are dropped; a missing timestamp becomes [UnknownTimestamp].
func Normalize(res any, source Source) []Record {
	var records []Record
	for _, d := range detailList(res) {
		if d.MemoryValue == "" {
			continue
		}
		ts := d.ConversationID
		if ts == "" {
			ts = UnknownTimestamp
		}
		records = append(records, Record{
			Content:   d.MemoryValue,
			Timestamp: ts,
			Source:    source,
		})
	}
	return records
}

// detailList extracts the memory detail list from a response of any supported
// shape. The dispatch mirrors the service's historical payload variants; the
// default arm is deliberately empty rather than an error.
func detailList(res any) []memstore.MemoryDetail {
	switch v := res.(type) {
	case nil:
		return nil

	case *memstore.SearchResponse:
		if v == nil {
			return nil
		}
		return v.Data.MemoryDetailList

	case memstore.SearchResponse:
		return v.Data.MemoryDetailList

	case map[string]any:
		// Detail list nested under "data", or carried directly (tuple payloads
		// surface the inner data value without the envelope).
		if data, ok := v["data"].(map[string]any); ok {
			if list, ok := data["memory_detail_list"].([]any); ok {
				return decodeDetails(list)
			}
			return nil
		}
		if list, ok := v["memory_detail_list"].([]any); ok {
			return decodeDetails(list)
		}
		return nil

	case []memstore.MemoryDetail:
		return v

	case []any:
		// Either a bare list of detail objects or a tuple-like wrapper whose
		// elements carry the detail list somewhere inside.
		if details := decodeDetails(v); len(details) > 0 {
			return details
		}
		var all []memstore.MemoryDetail
		for _, item := range v {
			all = append(all, detailList(item)...)
		}
		return all

	default:
		return nil
	}
}

// decodeDetails converts a decoded-JSON list into typed details, skipping
// elements that are not detail-shaped maps.
func decodeDetails(list []any) []memstore.MemoryDetail {
	var details []memstore.MemoryDetail
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if _, hasValue := m["memory_value"]; !hasValue {
			continue
		}
		d := memstore.MemoryDetail{
			MemoryValue:    stringField(m, "memory_value"),
			ConversationID: stringField(m, "conversation_id"),
		}
		if f, ok := m["relativity"].(float64); ok {
			d.Relativity = f
		}
		details = append(details, d)
	}
	return details
}

// stringField fetches a string value from a decoded map, tolerating absence.
func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// sortByTimestamp orders records ascending by timestamp string. Timestamps are
// compared lexicographically; ingestion validates that they share a sortable
// layout (see dataset.ValidTimestamp).
func sortByTimestamp(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp < records[j].Timestamp
	})
}
