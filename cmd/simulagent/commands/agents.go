package commands

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/haivivi/simulagent/pkg/cli"
	"github.com/haivivi/simulagent/pkg/kv"
	"github.com/haivivi/simulagent/pkg/simul"
	"github.com/haivivi/simulagent/pkg/simul/agents"
)

var (
	segmentK          int
	sentencePieceFile string
	detokenizeOnly    bool
	systemDir         string
	systemConfig      string
	agentPatterns     []string
)

func addAgentFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.IntVar(&segmentK, "segment-k", 0, "number of tokens the segmenter buffers before writing")
	f.StringVar(&sentencePieceFile, "sentencepiece-model", "", "SentencePiece model (.model) or vocabulary (.vocab) path")
	f.BoolVar(&detokenizeOnly, "detokenize-only", false, "write on every step instead of waiting for complete words")
	f.StringVar(&systemDir, "system-dir", "", "system directory holding the system config (default ~/.simulagent/system)")
	f.StringVar(&systemConfig, "system-config", cli.DefaultSystemConfig, "system config file name inside --system-dir")
	f.StringSliceVar(&agentPatterns, "agents", nil, "pipeline agent patterns in order (default text/segmenter,text/spm-detokenizer)")
}

// loadSystemConfig reads the system config and applies the flags set on
// cmd, without checking agent arguments.
func loadSystemConfig(cmd *cobra.Command) (*cli.SystemConfig, error) {
	dir := systemDir
	if dir == "" {
		paths, err := cli.NewPaths()
		if err != nil {
			return nil, err
		}
		dir = paths.SystemDir()
	}
	cfg, err := cli.LoadSystemConfig(dir, systemConfig)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("segment-k") {
		cfg.SegmentK = segmentK
	}
	if flags.Changed("sentencepiece-model") {
		cfg.SentencePieceModel = sentencePieceFile
	}
	if flags.Changed("detokenize-only") {
		cfg.DetokenizeOnly = detokenizeOnly
	}
	if flags.Changed("agents") {
		cfg.Agents = agentPatterns
	}
	if flags.Changed("store") {
		cfg.Store = storeURL
	}
	return cfg, nil
}

// loadConfig is loadSystemConfig plus the checks of the arguments the
// pipeline's agents require.
func loadConfig(cmd *cobra.Command) (*cli.SystemConfig, error) {
	cfg, err := loadSystemConfig(cmd)
	if err != nil {
		return nil, err
	}
	patterns := cfg.Patterns()
	if slices.Contains(patterns, agents.SegmenterPattern) && cfg.SegmentK == 0 {
		return nil, requireArg("segment-k")
	}
	if slices.Contains(patterns, agents.DetokenizerPattern) && cfg.SentencePieceModel == "" {
		return nil, requireArg("sentencepiece-model")
	}
	printVerbose("system dir %s, agents %v, segment_k %d, model %s", cfg.Dir, patterns, cfg.SegmentK, cfg.SentencePieceModel)
	return cfg, nil
}

// pipelineFunc loads the configured pipeline once and returns its builder.
func pipelineFunc(cmd *cobra.Command) (*cli.SystemConfig, func() (*simul.Pipeline, error), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	f, err := agents.PipelineFunc(agents.DefaultMux, cfg.Patterns(), cfg.Config)
	if err != nil {
		return nil, nil, err
	}
	return cfg, f, nil
}

// openStore opens the run store named by --store, the system config, or
// ~/.simulagent/runs, in that order.
func openStore(cfg *cli.SystemConfig) (kv.Store, error) {
	url := storeURL
	if url == "" && cfg != nil {
		url = cfg.Store
	}
	if url == "" {
		paths, err := cli.NewPaths()
		if err != nil {
			return nil, err
		}
		if err := paths.EnsureStoreDir(); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
		url = paths.StoreURL()
	}
	printVerbose("store %s", url)
	return kv.Open(url)
}
