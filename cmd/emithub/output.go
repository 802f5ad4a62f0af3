package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/alfredjeanlab/emithub/internal/model"
	"github.com/alfredjeanlab/emithub/internal/ui"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printChannel(ch *model.Channel) {
	if jsonOutput {
		printJSON(ch)
		return
	}
	printChannelTable(os.Stdout, ch)
}

func printChannelTable(w io.Writer, ch *model.Channel) {
	fmt.Fprintf(w, "ID:          %s\n", ch.ID)
	fmt.Fprintf(w, "Name:        %s\n", ch.Name)
	fmt.Fprintf(w, "Status:      %s\n", ui.RenderStatus(ch.Status))
	if ch.Description != nil && *ch.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", *ch.Description)
	}
	s := ch.Settings
	fmt.Fprintf(w, "Settings:    max_connections=%d client_messages=%t persist=%t rate_limit=%s\n",
		s.MaxConnections, s.AllowClientMessages, s.PersistMessages, rateLimit(s.RateLimitPerMinute))
	fmt.Fprintf(w, "Created At:  %s\n", ch.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Updated At:  %s\n", ch.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func printChannelListTable(channels []*model.Channel, total int) {
	writeChannelList(os.Stdout, channels)
	fmt.Printf("\n%d channels (%d total)\n", len(channels), total)
}

func writeChannelList(out io.Writer, channels []*model.Channel) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tNAME\tCLIENT MSGS\tPERSIST\tUPDATED")
	for _, ch := range channels {
		name := ch.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\t%s\n",
			ch.ID,
			ui.RenderStatus(ch.Status),
			name,
			ch.Settings.AllowClientMessages,
			ch.Settings.PersistMessages,
			ch.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	w.Flush()
}

func rateLimit(v *int) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprintf("%d/min", *v)
}
