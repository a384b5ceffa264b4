package telegram

import (
	"fmt"
	"strings"
	"time"

	"prism/pkg/utils"
)

// FormatTaskCompleted renders a MarkdownV2 message for a task that reached review.
func FormatTaskCompleted(title, agentName string, taskID uint, at time.Time) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("✅ *Task ready for review* \\#%d\n", taskID))
	builder.WriteString(fmt.Sprintf("📝 %s\n", utils.EscapeMarkdownV2(title)))
	if agentName != "" {
		builder.WriteString(fmt.Sprintf("🤖 %s\n", utils.EscapeMarkdownV2(agentName)))
	}
	builder.WriteString(utils.EscapeMarkdownV2(at.UTC().Format(time.RFC3339)))
	return builder.String()
}

// FormatTaskFailed renders a MarkdownV2 message for a failed execution.
func FormatTaskFailed(title, agentName, errMsg string, taskID uint, at time.Time) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("📛 *Execution failed* \\#%d\n", taskID))
	builder.WriteString(fmt.Sprintf("📝 %s\n", utils.EscapeMarkdownV2(title)))
	if agentName != "" {
		builder.WriteString(fmt.Sprintf("🤖 %s\n", utils.EscapeMarkdownV2(agentName)))
	}
	builder.WriteString(fmt.Sprintf("⚠️ %s\n", utils.EscapeMarkdownV2(utils.TruncateRunes(errMsg, 500))))
	builder.WriteString(utils.EscapeMarkdownV2(at.UTC().Format(time.RFC3339)))
	return builder.String()
}
