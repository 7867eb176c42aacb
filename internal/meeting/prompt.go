package meeting

import (
	"fmt"
	"strings"

	"github.com/mwhitby/summit/internal/config"
)

// PromptBuilder assembles the prompts sent through the inference gateway.
// The gateway treats the resulting text as opaque.
type PromptBuilder struct {
	cfg config.Summary
}

// NewPromptBuilder creates a builder with the given summary toggles
func NewPromptBuilder(cfg config.Summary) *PromptBuilder {
	return &PromptBuilder{cfg: cfg}
}

// MeetingPrompt builds the per-meeting summarization prompt
func (b *PromptBuilder) MeetingPrompt(meetingName, transcriptText string) string {
	var parts []string
	parts = append(parts,
		fmt.Sprintf("Please analyze the following meeting transcript and create a %s summary.", b.cfg.Style),
		"",
		"Your summary should include:")

	if b.cfg.IncludeParticipants {
		parts = append(parts, "- **Participants**: List of people who spoke during the meeting")
	}
	parts = append(parts,
		"- **Main Topics**: Key subjects discussed during the meeting",
		"- **Key Points**: Important information, decisions, and insights shared",
		"- **Technical Details**: Any technical concepts, architectures, or implementations discussed")
	if b.cfg.IncludeActionItems {
		parts = append(parts, "- **Action Items**: Tasks, next steps, or follow-up items mentioned")
	}
	parts = append(parts,
		"- **Decisions Made**: Any concrete decisions or conclusions reached",
		"- **Questions/Issues Raised**: Important questions or problems discussed")
	if b.cfg.IncludeTimestamps {
		parts = append(parts, "- **Timeline**: Reference key moments with approximate timestamps when significant topics were discussed")
	}

	parts = append(parts,
		"",
		"Please format the summary in clear Markdown with appropriate headers and bullet points.",
		"Focus on technical accuracy and ensure all important information is captured.",
		"",
		fmt.Sprintf("Meeting Context: %s", meetingName),
		"",
		"**Transcript:**",
		transcriptText)

	return strings.Join(parts, "\n")
}

// GlobalPrompt builds the cross-meeting aggregation prompt over the
// individual summaries.
func (b *PromptBuilder) GlobalPrompt(summaries map[string]string, order []string) string {
	var parts []string
	parts = append(parts,
		"You are given individual summaries of a series of related meetings.",
		"Create a consolidated master summary that:",
		"- Identifies the overarching themes and how topics evolved across meetings",
		"- Consolidates key decisions and their rationale",
		"- Collects all open action items in one place",
		"- Highlights unresolved questions and risks",
		"",
		"Format the result in clear Markdown. Reference individual meetings by name where relevant.",
		"")

	for _, name := range order {
		parts = append(parts,
			fmt.Sprintf("## Meeting: %s", name),
			"",
			strings.TrimSpace(summaries[name]),
			"")
	}

	return strings.Join(parts, "\n")
}
