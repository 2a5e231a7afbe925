package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/errors"
	"github.com/matzehuels/webgraph/pkg/store"
)

// sessionCommand creates the command group for saved sessions.
func (c *CLI) sessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and delete saved sessions",
		Long: `Inspect and delete saved sessions.

Sessions are saved by 'serve' through POST /save and resumed with
'serve --resume <id>'. The store flags select the same backend serve uses.`,
	}

	cmd.AddCommand(c.sessionListCommand())
	cmd.AddCommand(c.sessionShowCommand())
	cmd.AddCommand(c.sessionDeleteCommand())

	return cmd
}

// storeCommand builds a session subcommand that opens the configured store
// before running fn.
func storeCommand(use, short string, args cobra.PositionalArgs, fn func(ctx context.Context, st store.Store, args []string) error) *cobra.Command {
	var (
		opts  sessionOpts
		flags = config.DefaultServer()
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := opts.loadFile()
			if err != nil {
				return err
			}
			sc := mergeServerFlags(cmd, file.Server, flags)
			st, err := openStore(cmd.Context(), sc)
			if err != nil {
				return fmt.Errorf("open %s store: %w", sc.Store, err)
			}
			defer st.Close()
			return fn(cmd.Context(), st, args)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "configuration file (.toml, .yaml)")
	storeFlags(cmd, &flags)
	return cmd
}

func (c *CLI) sessionListCommand() *cobra.Command {
	return storeCommand("list", "List saved sessions", cobra.NoArgs, func(ctx context.Context, st store.Store, _ []string) error {
		ids, err := st.List(ctx)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(ids) == 0 {
			printInfo("No saved sessions")
			return nil
		}

		rows := make([][]string, 0, len(ids))
		for _, id := range ids {
			doc, err := st.Get(ctx, id)
			if err != nil {
				// Expired between List and Get.
				continue
			}
			rows = append(rows, []string{
				id,
				strconv.Itoa(len(doc.Graph.Nodes)),
				strconv.Itoa(len(doc.Graph.Edges)),
				doc.UpdatedAt.Format("2006-01-02 15:04"),
				formatTTL(doc.ExpiresAt),
			})
		}

		headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
			Headers("ID", "Nodes", "Edges", "Updated", "Expires").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				if col == 0 {
					return StyleHighlight
				}
				return StyleValue
			})
		fmt.Println(t.Render())
		return nil
	})
}

func (c *CLI) sessionShowCommand() *cobra.Command {
	return storeCommand("show <id>", "Show a saved session", cobra.ExactArgs(1), func(ctx context.Context, st store.Store, args []string) error {
		doc, err := getDocument(ctx, st, args[0])
		if err != nil {
			return err
		}
		printKeyValue("ID", doc.ID)
		printKeyValue("Nodes", strconv.Itoa(len(doc.Graph.Nodes)))
		printKeyValue("Edges", strconv.Itoa(len(doc.Graph.Edges)))
		printKeyValue("Layout", string(doc.Config.Layout))
		printKeyValue("Node type", string(doc.Config.DefaultNodeType))
		printKeyValue("App mode", string(doc.Config.AppMode))
		printKeyValue("Created", doc.CreatedAt.Format("2006-01-02 15:04:05"))
		printKeyValue("Updated", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
		printKeyValue("Expires", formatTTL(doc.ExpiresAt))
		return nil
	})
}

func (c *CLI) sessionDeleteCommand() *cobra.Command {
	return storeCommand("delete <id>", "Delete a saved session", cobra.ExactArgs(1), func(ctx context.Context, st store.Store, args []string) error {
		if _, err := getDocument(ctx, st, args[0]); err != nil {
			return err
		}
		if err := st.Delete(ctx, args[0]); err != nil {
			return fmt.Errorf("delete session %s: %w", args[0], err)
		}
		printSuccess("Deleted session %s", args[0])
		return nil
	})
}

func getDocument(ctx context.Context, st store.Store, id string) (*store.Document, error) {
	if err := errors.ValidateSessionID(id); err != nil {
		return nil, err
	}
	doc, err := st.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return doc, nil
}
