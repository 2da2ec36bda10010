package commands

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/simulagent/pkg/cli"
)

var (
	verbose      bool
	formatOutput string
	outputFile   string
	storeURL     string
)

var rootCmd = &cobra.Command{
	Use:   "simulagent",
	Short: "Streaming simultaneous translation agents",
	Long: `simulagent — run, evaluate and serve streaming agent pipelines.

The default pipeline segments raw sub-word tokens into chunks of K and
detokenizes them with a SentencePiece model:

  raw tokens → text/segmenter → text/spm-detokenizer → text

Commands:
  run        Stream tokens from a file or stdin through the pipeline
  eval       Evaluate source files and record latency (AL)
  instances  Inspect stored evaluation runs
  serve      Serve the pipeline over websocket
  version    Version information

Examples:
  echo "▁hel lo ▁wor ld" | simulagent run --segment-k 2 --sentencepiece-model spm.model
  simulagent eval sources.txt --segment-k 4 --sentencepiece-model spm.model
  simulagent instances list
  simulagent serve --addr :8080 --system-dir ./system`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs)")
	rootCmd.PersistentFlags().StringVar(&formatOutput, "format", "", "output format: text (default), yaml, json, raw")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file path (default: stdout)")
	rootCmd.PersistentFlags().StringVar(&storeURL, "store", "", "run store: memory:// or badger://<dir> (default ~/.simulagent/runs)")
	addAgentFlags(rootCmd)
}

func initLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// formatted reports whether --format asks for structured output.
func formatted() bool {
	return formatOutput != "" && formatOutput != "text"
}

func output(v any) error {
	format, err := cli.ParseFormat(formatOutput)
	if err != nil {
		return err
	}
	return cli.Output(v, cli.OutputOptions{Format: format, File: outputFile})
}

func printVerbose(format string, args ...any) {
	cli.PrintVerbose(verbose, format, args...)
}

func newTabWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

func requireArg(name string) error {
	return fmt.Errorf("--%s is required", name)
}
