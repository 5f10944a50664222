// Package dataset decodes the benchmark input file: a list of multi-session
// two-speaker conversations, each paired with its QA items.
//
// The conversation object uses dynamic keys — one chat array per session
// ("session_1", "session_2", ...) with a sibling "<session>_date_time"
// timestamp field — so decoding is done by hand rather than with struct tags.
package dataset

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Chat is a single utterance within a session.
type Chat struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Session is one dated sitting of a conversation.
type Session struct {
	// Name is the dynamic key the session was stored under (e.g., "session_3").
	Name string

	// Timestamp is the absolute date/time string of the session
	// (e.g., "1:56 pm on 8 May, 2023").
	Timestamp string

	// Chats is the ordered utterance list.
	Chats []Chat
}

// QA is one benchmark question with its gold answer.
type QA struct {
	Question string     `json:"question"`
	Answer   FlexString `json:"answer"`
	Category FlexString `json:"category"`
	Evidence []string   `json:"evidence"`
}

// Conversation holds the two speaker names and the ordered session list.
type Conversation struct {
	SpeakerA string
	SpeakerB string
	Sessions []Session
}

// Item pairs a conversation with its QA set.
type Item struct {
	Conversation Conversation `json:"conversation"`
	QA           []QA         `json:"qa"`
}

// FlexString decodes a JSON string, number, or null into a plain string.
// Gold answers and categories appear as both strings and numbers in the wild.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	return fmt.Errorf("dataset: value %s is neither string nor number", string(b))
}

// String returns the decoded value.
func (f FlexString) String() string { return string(f) }

// UnmarshalJSON decodes the dynamic-keyed conversation object. A key is a
// session when a matching "<key>_date_time" sibling exists; date/timestamp
// bookkeeping keys and the speaker names are skipped. Sessions are ordered by
// their numeric suffix so iteration is deterministic regardless of map order.
func (c *Conversation) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("dataset: decode conversation: %w", err)
	}

	if v, ok := raw["speaker_a"]; ok {
		if err := json.Unmarshal(v, &c.SpeakerA); err != nil {
			return fmt.Errorf("dataset: decode speaker_a: %w", err)
		}
	}
	if v, ok := raw["speaker_b"]; ok {
		if err := json.Unmarshal(v, &c.SpeakerB); err != nil {
			return fmt.Errorf("dataset: decode speaker_b: %w", err)
		}
	}

	for key, v := range raw {
		if key == "speaker_a" || key == "speaker_b" ||
			strings.Contains(key, "_date_time") ||
			strings.Contains(key, "timestamp") {
			continue
		}
		tsRaw, ok := raw[key+"_date_time"]
		if !ok {
			continue
		}

		var ts string
		if err := json.Unmarshal(tsRaw, &ts); err != nil {
			return fmt.Errorf("dataset: decode %s_date_time: %w", key, err)
		}
		var chats []Chat
		if err := json.Unmarshal(v, &chats); err != nil {
			return fmt.Errorf("dataset: decode session %q: %w", key, err)
		}

		c.Sessions = append(c.Sessions, Session{Name: key, Timestamp: ts, Chats: chats})
	}

	sort.Slice(c.Sessions, func(i, j int) bool {
		ni, iok := sessionIndex(c.Sessions[i].Name)
		nj, jok := sessionIndex(c.Sessions[j].Name)
		if iok && jok {
			return ni < nj
		}
		return c.Sessions[i].Name < c.Sessions[j].Name
	})
	return nil
}

// sessionIndex extracts the numeric suffix of a session key ("session_12" → 12).
func sessionIndex(name string) (int, bool) {
	idx := strings.LastIndexByte(name, '_')
	if idx < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(name[idx+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Load reads and decodes the dataset file at path.
func Load(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %q: %w", path, err)
	}
	defer f.Close()

	var items []Item
	if err := json.NewDecoder(f).Decode(&items); err != nil {
		return nil, fmt.Errorf("dataset: decode %q: %w", path, err)
	}
	return items, nil
}

// SpeakerID derives the store key for a speaker within a conversation. The
// conversation index is appended so the same name in different conversations
// never collides in the store keyspace.
func SpeakerID(name string, conversationIndex int) string {
	return fmt.Sprintf("%s_%d", name, conversationIndex)
}

// timestampLayouts lists the session timestamp formats the benchmark accepts.
var timestampLayouts = []string{
	"3:04 pm on 2 January, 2006",
	"3:04pm on 2 January, 2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2 January, 2006",
}

// ValidTimestamp reports whether ts parses under one of the accepted layouts.
// Downstream ordering compares timestamps lexicographically, which is only
// chronologically correct when all timestamps share one sortable format;
// checking here moves that assumption to ingestion time.
func ValidTimestamp(ts string) bool {
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, strings.TrimSpace(ts)); err == nil {
			return true
		}
	}
	return false
}

// WarnOnTimestamps logs one warning per session whose timestamp does not parse
// under any accepted layout.
func WarnOnTimestamps(conv Conversation, conversationIndex int) {
	for _, s := range conv.Sessions {
		if !ValidTimestamp(s.Timestamp) {
			slog.Warn("session timestamp does not match any accepted layout; chronological ordering is best-effort",
				"conversation", conversationIndex, "session", s.Name, "timestamp", s.Timestamp)
		}
	}
}
