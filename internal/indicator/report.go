package indicator

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/hyrily/hyrily/internal/interview"
)

const feedbackWidth = 60

// RenderSummary writes the per-answer table and the overall grade.
func RenderSummary(w io.Writer, s interview.Summary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Category", "Status", "Score", "Feedback"})
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)

	for i, item := range s.Items {
		table.Append([]string{
			strconv.Itoa(i + 1),
			string(item.Category),
			string(item.Status),
			fmt.Sprintf("%d%%", item.Percent),
			truncate(item.Feedback, feedbackWidth),
		})
	}
	table.Render()

	_, _ = fmt.Fprintf(w, "\nOverall: %d%% (%s)\n", s.Percent, s.Grade)
	_, _ = fmt.Fprintf(w, "Answered: %d  Skipped: %d  Strengths: %d  To improve: %d\n",
		s.Answered, s.Skipped, s.Strengths, s.Improvements)
}

func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
