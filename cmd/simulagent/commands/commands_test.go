package commands

import (
	"bytes"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/haivivi/simulagent/pkg/sentencepiece"
	"github.com/haivivi/simulagent/pkg/simul/agents"
	"github.com/haivivi/simulagent/pkg/simul/server"
)

// setupTestEnv points the home directory at a temp dir and writes a vocab
// model and a token file into it.
func setupTestEnv(t *testing.T) (dir string) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("SIMULAGENT_HOME", dir)
	writeFile(t, filepath.Join(dir, "spm.vocab"), "▁hel\t0\nlo\t0\n▁wor\t0\nld\t0\n▁hello\t0\n▁world\t0\n")
	writeFile(t, filepath.Join(dir, "tokens.txt"), "▁hel lo\n▁wor ld\n")
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	var outBuf, errBuf bytes.Buffer
	done := make(chan struct{}, 2)
	go func() { io.Copy(&outBuf, rOut); done <- struct{}{} }()
	go func() { io.Copy(&errBuf, rErr); done <- struct{}{} }()

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	wOut.Close()
	wErr.Close()
	<-done
	<-done
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		if stderr == "" || !strings.Contains(stderr, err.Error()) {
			stderr += err.Error()
		}
	}

	// Reset all cobra command flag state to prevent leaks between tests.
	resetFlags(rootCmd)

	return
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Changed = false
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
			return
		}
		f.Value.Set(f.DefValue)
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func TestRunRequiresSegmentK(t *testing.T) {
	dir := setupTestEnv(t)
	_, stderr, code := runCmd(t, "run", "-f", filepath.Join(dir, "tokens.txt"),
		"--sentencepiece-model", filepath.Join(dir, "spm.vocab"))
	if code == 0 {
		t.Fatal("expected non-zero exit")
	}
	if !strings.Contains(stderr, "--segment-k is required") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestRunRequiresSentencePieceModel(t *testing.T) {
	dir := setupTestEnv(t)
	_, stderr, code := runCmd(t, "run", "-f", filepath.Join(dir, "tokens.txt"), "--segment-k", "2")
	if code == 0 {
		t.Fatal("expected non-zero exit")
	}
	if !strings.Contains(stderr, "--sentencepiece-model is required") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestRunSegmenterOnlyNeedsNoModel(t *testing.T) {
	dir := setupTestEnv(t)
	stdout, stderr, code := runCmd(t, "run", "-f", filepath.Join(dir, "tokens.txt"),
		"--segment-k", "3", "--agents", agents.SegmenterPattern)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if want := "▁hel lo ▁wor\nld\n"; stdout != want {
		t.Fatalf("stdout = %q; want %q", stdout, want)
	}
}

func TestRunDefaultPipeline(t *testing.T) {
	dir := setupTestEnv(t)
	stdout, stderr, code := runCmd(t, "run", "-f", filepath.Join(dir, "tokens.txt"),
		"--segment-k", "2", "--sentencepiece-model", filepath.Join(dir, "spm.vocab"))
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if stdout != "hello world\n" {
		t.Fatalf("stdout = %q; want %q", stdout, "hello world\n")
	}
}

func TestRunDetokenizeOnly(t *testing.T) {
	dir := setupTestEnv(t)
	stdout, stderr, code := runCmd(t, "run", "-f", filepath.Join(dir, "tokens.txt"),
		"--segment-k", "2", "--sentencepiece-model", filepath.Join(dir, "spm.vocab"), "--detokenize-only")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if stdout != "hello\nworld\n" {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestRunJSON(t *testing.T) {
	dir := setupTestEnv(t)
	stdout, stderr, code := runCmd(t, "run", "-f", filepath.Join(dir, "tokens.txt"),
		"--segment-k", "2", "--sentencepiece-model", filepath.Join(dir, "spm.vocab"), "--format", "json")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, `"content": "hello world"`) || !strings.Contains(stdout, `"finished": true`) {
		t.Fatalf("stdout = %s", stdout)
	}
}

func TestRunSystemConfig(t *testing.T) {
	dir := setupTestEnv(t)
	sys := filepath.Join(dir, "system")
	if err := os.MkdirAll(sys, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "system", "spm.vocab"), "▁hel\t0\nlo\t0\n▁wor\t0\nld\t0\n")
	writeFile(t, filepath.Join(sys, "main.yaml"), "segment_k: 2\nsentencepiece_model: spm.vocab\ndetokenize_only: true\n")

	// The default system dir is ~/.simulagent/system.
	stdout, stderr, code := runCmd(t, "run", "-f", filepath.Join(dir, "tokens.txt"))
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if stdout != "hello\nworld\n" {
		t.Fatalf("stdout = %q", stdout)
	}

	// Flags override the system config.
	stdout, stderr, code = runCmd(t, "run", "-f", filepath.Join(dir, "tokens.txt"),
		"--system-dir", sys, "--detokenize-only=false")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if stdout != "hello world\n" {
		t.Fatalf("stdout with override = %q", stdout)
	}
}

func TestRunRemote(t *testing.T) {
	dir := setupTestEnv(t)
	model, err := sentencepiece.Open(filepath.Join(dir, "spm.vocab"))
	if err != nil {
		t.Fatal(err)
	}
	newPipeline, err := agents.PipelineFunc(agents.DefaultMux, agents.DefaultPipeline, agents.Config{SegmentK: 2, Model: model})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(server.New(newPipeline, nil))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	stdout, stderr, code := runCmd(t, "run", "-f", filepath.Join(dir, "tokens.txt"), "--remote", url)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if stdout != "hello world\n" {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestEvalAndInstances(t *testing.T) {
	dir := setupTestEnv(t)
	store := "badger://" + filepath.Join(dir, "runs")
	writeFile(t, filepath.Join(dir, "manifest.yaml"), `instances:
  - id: first
    source: ▁hel lo ▁wor ld
    reference: hello world
  - source: ▁hello
`)

	stdout, stderr, code := runCmd(t, "eval", filepath.Join(dir, "manifest.yaml"), filepath.Join(dir, "tokens.txt"),
		"--segment-k", "2", "--sentencepiece-model", filepath.Join(dir, "spm.vocab"),
		"--store", store, "--label", "k=2")
	if code != 0 {
		t.Fatalf("eval exit %d: %s", code, stderr)
	}
	first, _, _ := strings.Cut(stdout, "\n")
	runID, ok := strings.CutPrefix(first, "run ")
	if !ok || runID == "" {
		t.Fatalf("eval stdout = %q", stdout)
	}
	if !strings.Contains(stdout, "instances: 4") {
		t.Fatalf("eval stdout = %q; want 4 instances", stdout)
	}

	stdout, stderr, code = runCmd(t, "instances", "list", "--store", store)
	if code != 0 {
		t.Fatalf("list exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, runID) || !strings.Contains(stdout, "(1 runs)") {
		t.Fatalf("list stdout = %q", stdout)
	}

	stdout, stderr, code = runCmd(t, "instances", "show", runID, "--store", store)
	if code != 0 {
		t.Fatalf("show exit %d: %s", code, stderr)
	}
	for _, want := range []string{"first", "hello world", "hello"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("show stdout missing %q: %s", want, stdout)
		}
	}

	stdout, stderr, code = runCmd(t, "instances", "show", runID, "--store", store, "--format", "json")
	if code != 0 {
		t.Fatalf("show json exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, `"run_id": "`+runID+`"`) || !strings.Contains(stdout, `"k": "2"`) {
		t.Errorf("show json = %s", stdout)
	}
}

func TestEvalErrors(t *testing.T) {
	dir := setupTestEnv(t)
	base := []string{"--segment-k", "2", "--sentencepiece-model", filepath.Join(dir, "spm.vocab"), "--store", "memory://"}

	_, stderr, code := runCmd(t, append([]string{"eval", filepath.Join(dir, "tokens.txt"), "--label", "nokey"}, base...)...)
	if code == 0 || !strings.Contains(stderr, "invalid label") {
		t.Errorf("bad label: exit %d, stderr %q", code, stderr)
	}

	writeFile(t, filepath.Join(dir, "empty.txt"), "\n\n")
	_, stderr, code = runCmd(t, append([]string{"eval", filepath.Join(dir, "empty.txt")}, base...)...)
	if code == 0 || !strings.Contains(stderr, "no source instances") {
		t.Errorf("empty sources: exit %d, stderr %q", code, stderr)
	}

	_, stderr, code = runCmd(t, append([]string{"eval", filepath.Join(dir, "missing.txt")}, base...)...)
	if code == 0 {
		t.Errorf("missing file: exit 0, stderr %q", stderr)
	}
}

func TestInstancesShowUnknownRun(t *testing.T) {
	setupTestEnv(t)
	_, stderr, code := runCmd(t, "instances", "show", "nope", "--store", "memory://")
	if code == 0 || !strings.Contains(stderr, "run not found") {
		t.Fatalf("exit %d, stderr %q", code, stderr)
	}
}

func TestInstancesListEmpty(t *testing.T) {
	setupTestEnv(t)
	stdout, _, code := runCmd(t, "instances", "list", "--store", "memory://")
	if code != 0 || !strings.Contains(stdout, "No runs found.") {
		t.Fatalf("exit %d, stdout %q", code, stdout)
	}
}

func TestVersion(t *testing.T) {
	stdout, _, code := runCmd(t, "version")
	if code != 0 || !strings.HasPrefix(stdout, "simulagent dev") {
		t.Fatalf("exit %d, stdout %q", code, stdout)
	}
	stdout, _, code = runCmd(t, "version", "--format", "json")
	if code != 0 || !strings.Contains(stdout, `"version": "dev"`) {
		t.Fatalf("exit %d, stdout %q", code, stdout)
	}
}

func TestInstancesUseSystemConfigStore(t *testing.T) {
	dir := setupTestEnv(t)
	sys := filepath.Join(dir, "system")
	if err := os.MkdirAll(sys, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(sys, "spm.vocab"), "▁hel\t0\nlo\t0\n▁wor\t0\nld\t0\n")
	writeFile(t, filepath.Join(sys, "main.yaml"), "segment_k: 2\nsentencepiece_model: spm.vocab\nstore: badger://"+filepath.Join(dir, "configured")+"\n")

	stdout, stderr, code := runCmd(t, "eval", filepath.Join(dir, "tokens.txt"), "--system-dir", sys)
	if code != 0 {
		t.Fatalf("eval exit %d: %s", code, stderr)
	}
	first, _, _ := strings.Cut(stdout, "\n")
	runID := strings.TrimPrefix(first, "run ")

	stdout, stderr, code = runCmd(t, "instances", "list", "--system-dir", sys)
	if code != 0 {
		t.Fatalf("list exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, runID) {
		t.Fatalf("list stdout = %q; want run %s", stdout, runID)
	}

	// The default ~/.simulagent/runs store does not hold the run.
	stdout, _, _ = runCmd(t, "instances", "list", "--system-dir", filepath.Join(dir, "empty"))
	if strings.Contains(stdout, runID) {
		t.Fatalf("default store lists run %s", runID)
	}

	stdout, stderr, code = runCmd(t, "instances", "delete", runID, "--system-dir", sys)
	if code != 0 {
		t.Fatalf("delete exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Deleted run "+runID+" (3 keys)") {
		t.Fatalf("delete stdout = %q", stdout)
	}

	stdout, _, code = runCmd(t, "instances", "list", "--system-dir", sys)
	if code != 0 || !strings.Contains(stdout, "No runs found.") {
		t.Fatalf("list after delete: exit %d, stdout %q", code, stdout)
	}

	_, stderr, code = runCmd(t, "instances", "delete", runID, "--system-dir", sys)
	if code == 0 || !strings.Contains(stderr, "run not found") {
		t.Fatalf("second delete: exit %d, stderr %q", code, stderr)
	}
}
