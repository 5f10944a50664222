package dataset

import (
	"fmt"
	"sort"
	"strings"
)

// Transcript renders the full conversation as date-headed session blocks,
// sorted ascending by timestamp string. This is the first evidence channel in
// the answer prompt; the ordering matches the lexicographic timestamp sort
// used by the retrieval layer.
func Transcript(conv Conversation) string {
	type block struct {
		time string
		text string
	}

	blocks := make([]block, 0, len(conv.Sessions))
	for _, s := range conv.Sessions {
		var sb strings.Builder
		fmt.Fprintf(&sb, "--- Date: %s ---\n", s.Timestamp)
		for _, chat := range s.Chats {
			fmt.Fprintf(&sb, "%s: %s\n", chat.Speaker, chat.Text)
		}
		blocks = append(blocks, block{time: s.Timestamp, text: sb.String()})
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].time < blocks[j].time
	})

	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.text
	}
	return strings.Join(texts, "\n")
}
