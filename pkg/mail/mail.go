// Package mail sends the completion email with the finished training plan.
// The send is fire-and-forget from the orchestrator's perspective: failures
// are logged and never affect the request lifecycle.
package mail

import (
	"context"
	"fmt"
	"html"
	"strings"
)

// Sender delivers one transactional email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// PlanSubject is the subject line for the completion email.
const PlanSubject = "Your marathon training plan"

// RenderPlanHTML wraps the plain-text plan into a minimal HTML body, one
// paragraph per block. Output formatting beyond this is the caller's display
// problem, not ours.
func RenderPlanHTML(planText string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString("<h2>Your marathon training plan</h2>")
	for _, block := range strings.Split(planText, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		escaped := html.EscapeString(block)
		escaped = strings.ReplaceAll(escaped, "\n", "<br>")
		fmt.Fprintf(&b, "<p>%s</p>", escaped)
	}
	b.WriteString("</body></html>")
	return b.String()
}
