package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderPlanHTML(t *testing.T) {
	out := RenderPlanHTML("Week 1\nMon: 4 miles\n\nWeek 2\nMon: 5 miles")

	assert.Contains(t, out, "<p>Week 1<br>Mon: 4 miles</p>")
	assert.Contains(t, out, "<p>Week 2<br>Mon: 5 miles</p>")
	assert.Contains(t, out, "<h2>")
}

func TestRenderPlanHTMLEscapes(t *testing.T) {
	out := RenderPlanHTML("Run <fast> & steady")

	assert.Contains(t, out, "Run &lt;fast&gt; &amp; steady")
	assert.NotContains(t, out, "<fast>")
}

func TestRenderPlanHTMLSkipsEmptyBlocks(t *testing.T) {
	out := RenderPlanHTML("Week 1\n\n\n\nWeek 2")

	assert.Contains(t, out, "<p>Week 1</p>")
	assert.Contains(t, out, "<p>Week 2</p>")
	assert.NotContains(t, out, "<p></p>")
}

func TestRenderPlanHTMLEmpty(t *testing.T) {
	out := RenderPlanHTML("")

	assert.Equal(t, "<html><body><h2>Your marathon training plan</h2></body></html>", out)
}
