package app

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/hyrily/hyrily/internal/company"
	"github.com/hyrily/hyrily/internal/interview"
	"github.com/hyrily/hyrily/internal/media"
	"github.com/hyrily/hyrily/internal/questions"
	"github.com/hyrily/hyrily/internal/score"
	"github.com/hyrily/hyrily/internal/store"
)

const timeLayout = "2006-01-02 15:04"

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	return table
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func renderQuestions(w io.Writer, qs []questions.Question) {
	table := newTable(w, "ID", "Category", "Question")
	for _, q := range qs {
		table.Append([]string{q.ID, string(q.Category), q.Text})
	}
	table.Render()
}

func renderSessions(w io.Writer, sessions []store.Session, policy score.Policy) {
	table := newTable(w, "ID", "Kind", "Stack", "Status", "Score", "Started")
	for _, s := range sessions {
		summary := interview.Summarize(interview.Report{Answers: s.Answers}, policy)
		table.Append([]string{
			s.ID,
			string(s.Kind),
			s.Stack,
			string(s.Status),
			fmt.Sprintf("%d%%", summary.Percent),
			s.StartedAt.Local().Format(timeLayout),
		})
	}
	table.Render()
}

func renderCampaigns(w io.Writer, campaigns []*company.Campaign) {
	table := newTable(w, "ID", "Company", "Stack", "Status", "Progress", "Average")
	for _, c := range campaigns {
		done, total := c.Progress()
		table.Append([]string{
			c.ID,
			c.Company,
			c.Stack,
			string(c.Status),
			fmt.Sprintf("%d/%d", done, total),
			fmt.Sprintf("%d%%", c.AverageScore()),
		})
	}
	table.Render()
}

func renderCandidates(w io.Writer, candidates []company.Candidate) {
	table := newTable(w, "#", "Candidate", "Email", "Status", "Score")
	for i, cand := range candidates {
		table.Append([]string{
			strconv.Itoa(i + 1),
			cand.Name,
			cand.Email,
			string(cand.Status),
			fmt.Sprintf("%d%%", cand.Score),
		})
	}
	table.Render()
}

func renderDevices(w io.Writer, devices []media.Device) {
	table := newTable(w, "", "ID", "Description", "State", "Available", "Muted")
	for _, d := range devices {
		mark := ""
		if d.Default {
			mark = "*"
		}
		table.Append([]string{mark, d.ID, d.Description, d.State, yesNo(d.Available), yesNo(d.Muted)})
	}
	table.Render()
}
