// Package cli provides the helpers shared by the simulagent commands.
//
// This package includes:
//   - System configuration (main.yaml: pipeline patterns and agent config)
//   - Output formatting (YAML, JSON, raw)
//   - Request and manifest loading (YAML/JSON)
//   - The ~/.simulagent directory layout
//
// Example usage:
//
//	cfg, err := cli.LoadSystemConfig("./system", "main.yaml")
//
//	cli.Output(report, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    File:   outputPath,
//	})
package cli
