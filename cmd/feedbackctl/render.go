package main

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jonesrussell/feedback-api/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

// renderProjects writes one row per project.
func renderProjects(w io.Writer, projects []*domain.Project) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "API Key", "Origins", "Created"})

	for _, p := range projects {
		t.AppendRow(table.Row{
			p.ID,
			p.Name,
			p.APIKey,
			strings.Join(p.Origins(), ", "),
			p.CreatedAt.Format(timeLayout),
		})
	}

	t.AppendFooter(table.Row{"", "", "", "Total", len(projects)})
	t.Render()
}

// renderProject writes a key/value view of one project. stats may be nil.
func renderProject(w io.Writer, p *domain.Project, stats *domain.ProjectStats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendRow(table.Row{"ID", p.ID})
	t.AppendRow(table.Row{"Name", p.Name})
	t.AppendRow(table.Row{"API Key", p.APIKey})
	t.AppendRow(table.Row{"Created", p.CreatedAt.Format(timeLayout)})
	for _, o := range p.AllowedOrigins {
		t.AppendRow(table.Row{"Origin", o.Origin + " (" + o.ID + ")"})
	}
	if stats != nil {
		t.AppendSeparator()
		t.AppendRow(table.Row{"Feedback", stats.FeedbackCount})
		t.AppendRow(table.Row{"Snapshots", stats.SnapshotCount})
	}

	t.Render()
}
