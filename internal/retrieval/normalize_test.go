package retrieval

import (
	"reflect"
	"testing"

	"github.com/mnemora/membench/pkg/memstore"
)

var sampleDetails = []memstore.MemoryDetail{
	{MemoryValue: "Alice: moved to Berlin", ConversationID: "2023-05-08", Relativity: 0.91},
	{MemoryValue: "Alice: adopted a dog", ConversationID: "2023-06-01", Relativity: 0.84},
}

func sampleDetailMaps() []any {
	return []any{
		map[string]any{"memory_value": "Alice: moved to Berlin", "conversation_id": "2023-05-08", "relativity": 0.91},
		map[string]any{"memory_value": "Alice: adopted a dog", "conversation_id": "2023-06-01", "relativity": 0.84},
	}
}

func TestNormalizeAcceptsAllResponseShapes(t *testing.T) {
	t.Parallel()

	shapes := map[string]any{
		"typed pointer": &memstore.SearchResponse{
			Data: memstore.SearchData{MemoryDetailList: sampleDetails},
		},
		"typed value": memstore.SearchResponse{
			Data: memstore.SearchData{MemoryDetailList: sampleDetails},
		},
		"decoded object": map[string]any{
			"data": map[string]any{"memory_detail_list": sampleDetailMaps()},
		},
		"bare detail list": sampleDetailMaps(),
		"tuple wrapped": []any{
			map[string]any{"memory_detail_list": sampleDetailMaps()},
		},
	}

	want := Normalize(&memstore.SearchResponse{
		Data: memstore.SearchData{MemoryDetailList: sampleDetails},
	}, SourceRaw)
	if len(want) != 2 {
		t.Fatalf("reference shape produced %d records, expected 2", len(want))
	}

	for name, shape := range shapes {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got := Normalize(shape, SourceRaw)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("shape %q: got %+v, want %+v", name, got, want)
			}
		})
	}
}

func TestNormalizeUnknownShapeYieldsEmpty(t *testing.T) {
	t.Parallel()

	for _, shape := range []any{nil, 42, "nope", []any{"not", "details"}, map[string]any{"foo": "bar"}} {
		if got := Normalize(shape, SourceRaw); len(got) != 0 {
			t.Errorf("shape %v: expected empty result, got %+v", shape, got)
		}
	}
}

func TestNormalizeDropsEmptyContentAndDefaultsTimestamp(t *testing.T) {
	t.Parallel()

	res := []any{
		map[string]any{"memory_value": "", "conversation_id": "2023-05-08"},
		map[string]any{"memory_value": "Alice: kept record"},
	}

	got := Normalize(res, SourceFact)
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].Timestamp != UnknownTimestamp {
		t.Errorf("expected timestamp %q, got %q", UnknownTimestamp, got[0].Timestamp)
	}
	if got[0].Source != SourceFact {
		t.Errorf("expected source %q, got %q", SourceFact, got[0].Source)
	}
}

func TestSortByTimestampIsStableAscending(t *testing.T) {
	t.Parallel()

	records := []Record{
		{Content: "c", Timestamp: "2023-06-01"},
		{Content: "a", Timestamp: "2023-05-08"},
		{Content: "b", Timestamp: "2023-05-08"},
	}
	sortByTimestamp(records)

	wantOrder := []string{"a", "b", "c"}
	for i, w := range wantOrder {
		if records[i].Content != w {
			t.Fatalf("position %d: expected %q, got %q", i, w, records[i].Content)
		}
	}
}
