package ui

import (
	"fmt"
	"strings"

	"github.com/eunjujo120/perso-ai-chatbot/internal/qa"
)

// RenderResponse formats one answer with its match metadata.
func RenderResponse(st Styles, resp qa.Response) string {
	var sb strings.Builder
	if resp.Outcome.Answered() {
		sb.WriteString(st.Answer.Render(resp.Answer))
	} else {
		sb.WriteString(st.Fallback.Render(resp.Answer))
	}
	sb.WriteString("\n")

	if resp.MatchedQuestion != nil {
		meta := fmt.Sprintf("matched %q", *resp.MatchedQuestion)
		if resp.Score != nil {
			meta += fmt.Sprintf(" · score %.3f", *resp.Score)
		}
		meta += " · " + string(resp.Outcome)
		sb.WriteString(st.Label.Render(meta))
	} else {
		label := string(resp.Outcome)
		if resp.Score != nil {
			label += fmt.Sprintf(" · best lexical %.3f", *resp.Score)
		}
		sb.WriteString(st.Dim.Render(label))
	}
	return sb.String()
}
