// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/H0llyW00dzZ/misp-mcp-server/src/internal/misp"
	"github.com/H0llyW00dzZ/misp-mcp-server/src/logger"
	mcpserver "github.com/H0llyW00dzZ/misp-mcp-server/src/mcp-server"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	// OperationPerformed reports whether a CLI subcommand actually talked to
	// the MISP instance, so callers can tailor their completion messages.
	OperationPerformed bool

	// OperationPerformedSuccessfully reports whether that operation finished
	// without error.
	OperationPerformedSuccessfully bool
)

// Search flags.
var (
	searchDaysBack    int
	searchLimit       int
	searchTags        string
	searchThreatLevel int
)

// Execute runs the root command with the given context and version.
//
// The root command defaults to serving MCP over the configured transport; the
// check and search subcommands provide direct CLI access to the MISP instance
// for connectivity verification and quick event lookups.
//
// Parameters:
//   - ctx: Context for cancellation, wired through to every subcommand
//   - version: Version string shown by --version and used in User-Agent headers
//   - log: Logger for user-facing CLI output
//
// Returns:
//   - error: Any command construction or execution error
func Execute(ctx context.Context, version string, log logger.Logger) error {
	deps, err := mcpserver.DefaultServerDependencies(version)
	if err != nil {
		return fmt.Errorf("failed to assemble server dependencies: %w", err)
	}

	framework := mcpserver.NewCLIFramework("", deps)
	rootCmd := framework.BuildRootCommand()

	rootCmd.AddCommand(newCheckCommand(framework, log))
	rootCmd.AddCommand(newSearchCommand(framework, log))
	rootCmd.AddCommand(newVersionCommand(version, log))

	return rootCmd.ExecuteContext(ctx)
}

// newVersionCommand builds the version subcommand, mirroring the --version flag
// for scripts that prefer a subcommand form.
func newVersionCommand(version string, log logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Printf("misp-mcp-server %s", version)
			return nil
		},
	}
}

// newCheckCommand builds the check subcommand. It verifies connectivity and
// authentication against the configured MISP instance and reports the instance
// version with the automation key's permissions.
func newCheckCommand(framework *mcpserver.CLIFramework, log logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify connectivity and authentication against the MISP instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := framework.Client()
			if err != nil {
				return err
			}

			OperationPerformed = true
			info, err := client.TestConnection(cmd.Context())
			if err != nil {
				return fmt.Errorf("connection check failed: %w", err)
			}
			OperationPerformedSuccessfully = true

			log.Printf("Connected to MISP %s", info.Version)
			log.Printf("  perm_sync: %t", bool(info.PermSync))
			log.Printf("  perm_sighting: %t", bool(info.PermSighting))
			log.Printf("  perm_galaxy_editor: %t", bool(info.PermGalaxyEditor))
			return nil
		},
	}
}

// newSearchCommand builds the search subcommand. It queries events by time
// window, tags, and threat level and renders the hits as a table.
func newSearchCommand(framework *mcpserver.CLIFramework, log logger.Logger) *cobra.Command {
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search MISP events by time window, tags, and threat level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := framework.Client()
			if err != nil {
				return err
			}

			limit := searchLimit
			if limit <= 0 {
				limit = framework.SearchLimit()
			}

			req := misp.EventSearchRequest{
				Limit:       limit,
				DaysBack:    searchDaysBack,
				ThreatLevel: searchThreatLevel,
			}
			if searchTags != "" {
				for _, tag := range strings.Split(searchTags, ",") {
					if tag = strings.TrimSpace(tag); tag != "" {
						req.Tags = append(req.Tags, tag)
					}
				}
			}

			OperationPerformed = true
			events, err := client.SearchEvents(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("event search failed: %w", err)
			}
			OperationPerformedSuccessfully = true

			if len(events) == 0 {
				log.Println("No events matched the search.")
				return nil
			}

			log.Println(renderEventTable(events))
			log.Printf("%d event(s) found.", len(events))
			return nil
		},
	}

	searchCmd.Flags().IntVar(&searchDaysBack, "days-back", 30, "restrict results to events from the last N days")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum number of events to return (default: configured search limit)")
	searchCmd.Flags().StringVar(&searchTags, "tags", "", "comma-separated tags to filter by, e.g. 'ransomware,tlp:amber'")
	searchCmd.Flags().IntVar(&searchThreatLevel, "threat-level", 0, "filter by threat level id (1=High, 2=Medium, 3=Low, 4=Undefined)")

	return searchCmd
}

// renderEventTable formats event search hits as an ASCII table.
func renderEventTable(events []misp.Event) string {
	var buf strings.Builder

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"ID", "DATE", "THREAT", "PUBLISHED", "ATTRS", "INFO"})
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
	})

	for _, event := range events {
		info := event.Info
		if len(info) > 60 {
			info = info[:57] + "..."
		}
		table.Append([]string{
			event.ID,
			event.Date,
			misp.ThreatLevelName(event.ThreatLevelID),
			fmt.Sprintf("%t", bool(event.Published)),
			fmt.Sprintf("%d", event.NumAttributes()),
			info,
		})
	}
	table.Render()

	return buf.String()
}
