package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderDaemons lays out list entries as a rounded table. PID and MEMORY are
// right aligned; headers always stay left.
func renderDaemons(entries []listEntry) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"NAME", "PID", "STATUS", "COMMAND", "OUTPUT", "MEMORY"})
	for _, e := range entries {
		mem := "-"
		if e.Resources != nil {
			mem = fmt.Sprintf("%.1f MiB", e.Resources.MemoryMB)
		}
		command := strings.Join(append([]string{e.Program}, e.Args...), " ")
		tw.AppendRow(table.Row{e.Name, e.PID, string(e.Status), command, e.Output, mem})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "PID", Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Name: "MEMORY", Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
