package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/simulagent/pkg/cli"
	"github.com/haivivi/simulagent/pkg/simul/evaluator"
)

var (
	evalMaxIdleSteps int
	evalLabels       []string
)

var evalCmd = &cobra.Command{
	Use:   "eval <source-file>...",
	Short: "Evaluate source files and record latency",
	Long: `Stream every source instance through a fresh pipeline state, one token per
step, and record when each output word was emitted. The run report and every
instance are stored in the run store.

Source files are plain text (one instance per line, "-" for stdin) or YAML /
JSON manifests:

  instances:
    - id: s1
      source: ▁hel lo ▁wor ld
      reference: hello world

Examples:
  simulagent eval sources.txt --segment-k 4 --sentencepiece-model spm.model
  simulagent eval manifest.yaml --store badger:///tmp/runs --label k=4
  simulagent eval sources.txt --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, newPipeline, err := pipelineFunc(cmd)
		if err != nil {
			return err
		}

		var sources []evaluator.Source
		for _, path := range args {
			srcs, err := loadSources(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			sources = append(sources, srcs...)
		}
		if len(sources) == 0 {
			return fmt.Errorf("no source instances in %s", strings.Join(args, ", "))
		}

		labels, err := parseLabels(evalLabels)
		if err != nil {
			return err
		}

		kvs, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer kvs.Close()

		e := &evaluator.Evaluator{
			NewPipeline:  newPipeline,
			Store:        evaluator.NewStore(kvs),
			MaxIdleSteps: evalMaxIdleSteps,
			Agents:       cfg.Patterns(),
			Labels:       labels,
			OnInstance: func(in *evaluator.Instance) {
				printVerbose("instance %d: AL %.3f: %s", in.Index, in.AL, in.PredictionText())
			},
		}
		rep, err := e.Run(cmd.Context(), sources)
		if err != nil {
			return err
		}

		if formatted() {
			return output(rep)
		}
		fmt.Printf("run %s\n", rep.RunID)
		fmt.Printf("  instances: %d\n", rep.Instances)
		fmt.Printf("  AL:        %.3f\n", rep.AL)
		fmt.Printf("  elapsed:   %s\n", cli.FormatDuration(rep.Elapsed.Std()))
		return nil
	},
}

func loadSources(path string) ([]evaluator.Source, error) {
	if cli.IsManifest(path) {
		var m evaluator.Manifest
		if err := cli.LoadRequest(path, &m); err != nil {
			return nil, err
		}
		return m.Instances, nil
	}
	if path == "-" {
		return evaluator.ReadSources(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return evaluator.ReadSources(f)
}

func parseLabels(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	labels := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid label %q, want key=value", p)
		}
		labels[k] = v
	}
	return labels, nil
}

func init() {
	evalCmd.Flags().IntVar(&evalMaxIdleSteps, "max-idle-steps", evaluator.DefaultMaxIdleSteps, "steps fed after the source is exhausted before giving up")
	evalCmd.Flags().StringArrayVar(&evalLabels, "label", nil, "key=value label stored with the run (repeatable)")
	rootCmd.AddCommand(evalCmd)
}
