package mcp

import (
	"fmt"
	"strings"

	"github.com/eunjujo120/perso-ai-chatbot/internal/qa"
)

// FormatAnswer renders a response as markdown for clients that only read
// text content.
func FormatAnswer(question string, resp qa.Response) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Q:** %s\n\n", question)
	sb.WriteString(resp.Answer)
	sb.WriteString("\n")
	if resp.MatchedQuestion != nil {
		fmt.Fprintf(&sb, "\n_Matched:_ %s", *resp.MatchedQuestion)
		if resp.Score != nil {
			fmt.Fprintf(&sb, " (score %.3f, %s)", *resp.Score, resp.Outcome)
		}
		sb.WriteString("\n")
	} else {
		fmt.Fprintf(&sb, "\n_No match_ (%s)\n", resp.Outcome)
	}
	return sb.String()
}

// FormatStatus renders corpus status as markdown.
func FormatStatus(st CorpusStatus) string {
	var sb strings.Builder
	sb.WriteString("## Corpus Status\n\n")
	fmt.Fprintf(&sb, "- **Corpus:** %s\n", st.CorpusPath)
	fmt.Fprintf(&sb, "- **Entries:** %d (%d exact keys, %d collisions)\n", st.Entries, st.ExactKeys, st.Collisions)
	fmt.Fprintf(&sb, "- **Vectors:** %d in %s\n", st.Vectors, st.Backend)
	avail := "unavailable"
	if st.Available {
		avail = "available"
	}
	fmt.Fprintf(&sb, "- **Embedder:** %s (%d dims, %s)\n", st.Model, st.Dimensions, avail)
	if st.LastIngest != "" {
		fmt.Fprintf(&sb, "- **Last ingest:** %s\n", st.LastIngest)
	}
	return sb.String()
}
