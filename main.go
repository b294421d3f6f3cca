package main

import (
	"github.com/neilberkman/skypetext/cmd/discover"
	"github.com/neilberkman/skypetext/cmd/export"
	"github.com/neilberkman/skypetext/cmd/index"
	"github.com/neilberkman/skypetext/cmd/list"
	"github.com/neilberkman/skypetext/cmd/root"
	"github.com/neilberkman/skypetext/cmd/search"
	"github.com/neilberkman/skypetext/cmd/stats"
	"github.com/neilberkman/skypetext/cmd/terminal"
	"github.com/neilberkman/skypetext/cmd/tui"
	"github.com/neilberkman/skypetext/cmd/view"
)

// Version information, set during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	root.Version = version
	root.Commit = commit
	root.Date = date
	root.RootCmd.Version = version

	root.RootCmd.AddCommand(export.ExportCmd)
	root.RootCmd.AddCommand(list.ListCmd)
	root.RootCmd.AddCommand(view.ViewCmd)
	root.RootCmd.AddCommand(index.IndexCmd)
	root.RootCmd.AddCommand(search.SearchCmd)
	root.RootCmd.AddCommand(stats.StatsCmd)
	root.RootCmd.AddCommand(discover.DiscoverCmd)
	root.RootCmd.AddCommand(tui.TuiCmd)
	root.RootCmd.AddCommand(terminal.TerminalCmd)

	root.Execute()
}
