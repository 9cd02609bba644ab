package cliplugins

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mcast/internal/storage/history"
)

type HistoryCommand struct {
	cmd  *cobra.Command
	deps *Deps
}

func NewHistoryCommand(deps *Deps) *HistoryCommand {
	return &HistoryCommand{deps: deps}
}

func (h *HistoryCommand) Meta() *cobra.Command {
	if h.cmd != nil {
		return h.cmd
	}
	h.cmd = &cobra.Command{
		Use:   "history",
		Short: "Show messages recorded by listen --record",
		Args:  cobra.NoArgs,
	}
	h.cmd.Flags().IntP("limit", "n", 20, "number of records to show, 0 for all")
	h.cmd.Flags().String("id", "", "show a single record")
	h.cmd.Flags().Bool("clear", false, "delete all records")
	return h.cmd
}

func (h *HistoryCommand) Execute(ctx context.Context, cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("flag --limit failed")
	}
	id, err := cmd.Flags().GetString("id")
	if err != nil {
		return fmt.Errorf("flag --id failed")
	}
	wipe, err := cmd.Flags().GetBool("clear")
	if err != nil {
		return fmt.Errorf("flag --clear failed")
	}

	store, err := history.New(history.Config{Path: h.deps.Config.Storage.Path})
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()

	if wipe {
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(out, "history cleared")
		return nil
	}

	var records []*history.Record
	if id != "" {
		rec, err := store.Get(id)
		if err != nil {
			return fmt.Errorf("record %s: %w", id, err)
		}
		records = append(records, rec)
	} else {
		records, err = store.List(limit)
		if err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRECEIVED\tSENDER\tMESSAGE")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			rec.ID,
			rec.ReceivedAt.Format(time.RFC3339),
			rec.Sender,
			recordText(rec),
		)
	}
	return w.Flush()
}

func recordText(rec *history.Record) string {
	if rec.Action != "" && len(rec.Extras) == 0 && rec.Data == string(rec.Payload) {
		return rec.Data
	}
	if rec.Action != "" {
		return fmt.Sprintf("%s %s %v", rec.Action, rec.Data, rec.Extras)
	}
	return fmt.Sprintf("%q", rec.Payload)
}
