package approvals

import (
	"strconv"
	"strings"

	"github.com/koshtony/beezy-beta/internal/platform/pdf"
)

// ProgressDocument lays out a workflow's progress and approval trail for PDF
// export.
func ProgressDocument(p Progress) pdf.Document {
	doc := pdf.Document{
		Title: p.ApprovalType + " approval trail",
		Facts: []pdf.Fact{
			{Label: "Target", Value: p.Target.String()},
			{Label: "Status", Value: strings.ReplaceAll(p.Status, "_", " ")},
			{Label: "Levels approved", Value: strconv.Itoa(p.Approved) + " of " + strconv.Itoa(p.TotalLevels)},
			{Label: "Progress", Value: strconv.FormatFloat(p.Percent, 'f', 1, 64) + "%"},
		},
	}

	rows := make([][]string, 0, len(p.Records))
	for _, stage := range p.Timeline {
		if len(stage.Approvers) == 0 {
			rows = append(rows, []string{strconv.Itoa(stage.Level), "-", stage.Status, "", ""})
			continue
		}
		for _, a := range stage.Approvers {
			decided := ""
			if a.DecidedAt != nil {
				decided = a.DecidedAt.Format("2006-01-02 15:04")
			}
			rows = append(rows, []string{strconv.Itoa(stage.Level), a.Name, a.Status, decided, a.Comment})
		}
	}
	doc.Tables = []pdf.Table{{
		Heading: "Approval trail",
		Columns: []pdf.Column{
			{Title: "Level", Width: 15},
			{Title: "Approver", Width: 45},
			{Title: "Status", Width: 25},
			{Title: "Decided", Width: 35},
			{Title: "Comment", Width: 60},
		},
		Rows: rows,
	}}
	return doc
}
