package generator

import (
	"fmt"
	"strings"
	"time"

	"trainplan/pkg/plan"
)

const systemPrompt = `You are an experienced marathon coach writing week-by-week training plans.
Write concrete daily workouts with distances in miles and target paces.
Keep each week self-contained: a short focus line, then one line per day from the
week's start date through its end date. Include rest days explicitly. Do not
repeat the runner's profile back, and do not add closing remarks.`

const promptDateFormat = "Monday, January 2, 2006"

// WeekInput carries everything needed to generate one training week.
type WeekInput struct {
	Week           int
	TotalWeeks     int
	ChunkStart     time.Time
	ChunkEnd       time.Time
	GoalTime       plan.GoalTime
	CurrentMileage float64
}

// buildPrompt constructs the user prompt for one week. The runner profile is
// included only on week 1; later weeks build on the already-generated plan.
func buildPrompt(in WeekInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write week %d of a %d-week marathon training plan, covering %s through %s.\n",
		in.Week, in.TotalWeeks,
		in.ChunkStart.Format(promptDateFormat),
		in.ChunkEnd.Format(promptDateFormat))

	if in.Week == 1 {
		fmt.Fprintf(&b, "\nRunner profile:\n")
		fmt.Fprintf(&b, "- Goal finish time: %s\n", in.GoalTime)
		fmt.Fprintf(&b, "- Current weekly mileage: %.0f miles\n", in.CurrentMileage)
		fmt.Fprintf(&b, "\nStart from the runner's current mileage and build gradually.\n")
	} else {
		fmt.Fprintf(&b, "\nThis is a continuation of the same plan; progress the load from week %d.\n", in.Week-1)
	}

	weeksLeft := in.TotalWeeks - in.Week
	switch {
	case weeksLeft == 0:
		fmt.Fprintf(&b, "This is race week: taper sharply and end with the marathon on %s.\n",
			in.ChunkEnd.Format(promptDateFormat))
	case weeksLeft <= 2:
		fmt.Fprintf(&b, "The race is %d week(s) away: begin the taper.\n", weeksLeft)
	}

	fmt.Fprintf(&b, "\nFormat: a heading \"Week %d (%s - %s)\" followed by one line per day.",
		in.Week,
		in.ChunkStart.Format("Jan 2"),
		in.ChunkEnd.Format("Jan 2"))

	return b.String()
}
