package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/simulagent/pkg/simul"
	"github.com/haivivi/simulagent/pkg/simul/evaluator"
	"github.com/haivivi/simulagent/pkg/simul/server"
)

var (
	runFile   string
	runRemote string
)

var runStreamCmd = &cobra.Command{
	Use:   "run",
	Short: "Stream tokens through the pipeline",
	Long: `Read whitespace-separated tokens from a file or stdin and stream them one at a
time through the pipeline. The last token is marked finished. Every write is
printed as soon as the pipeline emits it.

With --remote the tokens are sent to a running "simulagent serve" instead of
a local pipeline.

Examples:
  echo "▁hel lo ▁wor ld" | simulagent run --segment-k 2 --sentencepiece-model spm.vocab
  simulagent run -f tokens.txt --system-dir ./system --format json
  simulagent run -f tokens.txt --remote ws://localhost:8080/ws`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		step, closeFn, err := newStepper(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		var in io.Reader = os.Stdin
		if runFile != "" && runFile != "-" {
			f, err := os.Open(runFile)
			if err != nil {
				return fmt.Errorf("failed to open input: %w", err)
			}
			defer f.Close()
			in = f
		}

		outs, err := stream(ctx, step, in)
		if formatted() {
			if oerr := output(outs); oerr != nil && err == nil {
				err = oerr
			}
		}
		return err
	},
}

type stepFunc func(ctx context.Context, seg simul.Segment) (simul.Segment, error)

func newStepper(cmd *cobra.Command) (stepFunc, func() error, error) {
	if runRemote != "" {
		c, err := server.Dial(cmd.Context(), runRemote)
		if err != nil {
			return nil, nil, err
		}
		printVerbose("connected to %s", runRemote)
		return c.Send, c.Close, nil
	}
	_, newPipeline, err := pipelineFunc(cmd)
	if err != nil {
		return nil, nil, err
	}
	p, err := newPipeline()
	if err != nil {
		return nil, nil, err
	}
	step := func(_ context.Context, seg simul.Segment) (simul.Segment, error) {
		return p.PushPop(seg)
	}
	return step, func() error { return nil }, nil
}

// stream feeds every token of in to step, holding one token back so the
// last one can be marked finished, then drains the pipeline.
func stream(ctx context.Context, step stepFunc, in io.Reader) ([]simul.Segment, error) {
	var outs []simul.Segment
	emit := func(seg simul.Segment) {
		if seg.IsEmpty() {
			return
		}
		outs = append(outs, seg)
		if !formatted() {
			fmt.Println(seg.Content)
		}
	}

	sc := bufio.NewScanner(in)
	sc.Split(bufio.ScanWords)
	var (
		index   int
		pending string
		have    bool
	)
	for sc.Scan() {
		if have {
			out, err := step(ctx, simul.Segment{Index: index, Content: pending})
			if err != nil {
				return outs, err
			}
			emit(out)
			index++
		}
		pending, have = sc.Text(), true
	}
	if err := sc.Err(); err != nil {
		return outs, fmt.Errorf("failed to read input: %w", err)
	}

	out, err := step(ctx, simul.Segment{Index: index, Content: pending, Finished: true})
	if err != nil {
		return outs, err
	}
	emit(out)
	for idle := 0; !out.Finished; idle++ {
		if idle >= evaluator.DefaultMaxIdleSteps {
			return outs, evaluator.ErrStalled
		}
		if out, err = step(ctx, simul.Segment{Index: index + 1, Finished: true}); err != nil {
			return outs, err
		}
		emit(out)
	}
	return outs, nil
}

func init() {
	runStreamCmd.Flags().StringVarP(&runFile, "file", "f", "", "input token file (default: stdin)")
	runStreamCmd.Flags().StringVar(&runRemote, "remote", "", "websocket URL of a running simulagent serve")
	rootCmd.AddCommand(runStreamCmd)
}
