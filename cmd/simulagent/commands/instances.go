package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/simulagent/pkg/cli"
	"github.com/haivivi/simulagent/pkg/kv"
	"github.com/haivivi/simulagent/pkg/simul/evaluator"
)

var instancesCmd = &cobra.Command{
	Use:   "instances",
	Short: "Inspect stored evaluation runs",
}

var instancesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kvs, err := openRunStore(cmd)
		if err != nil {
			return err
		}
		defer kvs.Close()

		runs, err := evaluator.NewStore(kvs).Runs(cmd.Context())
		if err != nil {
			return err
		}
		if formatted() {
			return output(runs)
		}
		if len(runs) == 0 {
			fmt.Println("No runs found.")
			return nil
		}

		w := newTabWriter()
		fmt.Fprintln(w, "RUN\tINSTANCES\tAL\tSTARTED\tELAPSED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%d\t%.3f\t%s\t%s\n",
				r.RunID, r.Instances, r.AL, r.StartedAt.Format("2006-01-02 15:04:05"), cli.FormatDuration(r.Elapsed.Std()))
		}
		w.Flush()
		fmt.Printf("(%d runs)\n", len(runs))
		return nil
	},
}

var instancesShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the instances of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kvs, err := openRunStore(cmd)
		if err != nil {
			return err
		}
		defer kvs.Close()

		store := evaluator.NewStore(kvs)
		rep, err := store.Run(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		ins, err := store.Instances(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if formatted() {
			return output(map[string]any{
				"run":       rep,
				"instances": ins,
			})
		}

		fmt.Printf("run %s: %d instances, AL %.3f\n", rep.RunID, rep.Instances, rep.AL)
		w := newTabWriter()
		fmt.Fprintln(w, "INDEX\tID\tAL\tDELAYS\tPREDICTION")
		for _, in := range ins {
			fmt.Fprintf(w, "%d\t%s\t%.3f\t%v\t%s\n", in.Index, in.ID, in.AL, in.Delays, in.PredictionText())
		}
		return w.Flush()
	},
}

var instancesDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a run and its instances",
	Long: `Delete the report and every stored instance of a run.

Examples:
  simulagent instances delete 6f1c2e0a-...
  simulagent instances delete 6f1c2e0a-... --store badger:///tmp/runs`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID := args[0]

		kvs, err := openRunStore(cmd)
		if err != nil {
			return err
		}
		defer kvs.Close()

		n, err := evaluator.NewStore(kvs).DeleteRun(cmd.Context(), runID)
		if err != nil {
			return err
		}

		if formatted() {
			return output(map[string]any{"run_id": runID, "keys": n, "status": "deleted"})
		}
		fmt.Printf("Deleted run %s (%d keys)\n", runID, n)
		return nil
	},
}

// openRunStore opens the run store named by --store or the system config.
func openRunStore(cmd *cobra.Command) (kv.Store, error) {
	cfg, err := loadSystemConfig(cmd)
	if err != nil {
		return nil, err
	}
	return openStore(cfg)
}

func init() {
	instancesCmd.AddCommand(instancesListCmd)
	instancesCmd.AddCommand(instancesShowCmd)
	instancesCmd.AddCommand(instancesDeleteCmd)
	rootCmd.AddCommand(instancesCmd)
}
