package main

import (
	"fmt"
	"io"

	"officepulse/domain"
	"officepulse/domain/event"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

type printer struct {
	out     io.Writer
	colours bool
}

func (p printer) message(m domain.ChatMessage) {
	author := fmt.Sprintf("%s %s", m.AuthorAvatar, m.AuthorDisplay)
	if p.colours && m.AuthorColor != "" {
		author = color.HEX(m.AuthorColor).Sprint(author)
	}
	_, _ = fmt.Fprintf(p.out, "[%s] %s: %s\n", clock(m.Timestamp), author, m.Text)
}

// notice prints a status line; level is an event type (error, warning) or empty.
func (p printer) notice(level, text string) {
	line := "-- " + text
	if p.colours {
		switch level {
		case event.ErrorType:
			line = color.New(color.FgRed).Render(line)
		case event.WarningType:
			line = color.New(color.FgYellow).Render(line)
		default:
			line = color.New(color.FgGray).Render(line)
		}
	}
	_, _ = fmt.Fprintln(p.out, line)
}

func (p printer) roster(users []event.Participant) {
	table := newTable(p.out, []string{"Avatar", "Name", "User ID", "Joined"})
	for _, u := range users {
		table.Append([]string{u.Avatar, u.UserName, u.UserID, clock(u.JoinedAt)})
	}
	table.Render()
}

func newTable(out io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}
