package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/siteplan/internal/config"
	"github.com/matzehuels/siteplan/pkg/instance"
	"github.com/matzehuels/siteplan/pkg/solution"
)

const twoClusters = `6 2
1 0 0 30 20
2 10 0 30 20
3 -1 0 30 5
4 9 0 30 5
5 1 0 30 5
6 11 0 30 5
`

const twoClustersSolution = `Healthcenter deployed at 1: Communities Assigned = {1, 3, 5}
Healthcenter deployed at 2: Communities Assigned = {2, 4, 6}

Objective Value: 5.0000000000
`

const overloadedSolution = `Healthcenter deployed at 1: Communities Assigned = {1, 2, 3, 4, 5, 6}

Objective Value: 200.0000000000
`

// isolate points every config and cache path into a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	for _, k := range []string{
		config.EnvStrategy, config.EnvCacheEnabled, config.EnvCacheDir, config.EnvCacheTTL,
		config.EnvRedisURL, config.EnvMongoURI, config.EnvMongoDatabase, config.EnvServerAddr,
		config.EnvWorkers,
	} {
		t.Setenv(k, "")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSolveWritesSolutionFile(t *testing.T) {
	dir := isolate(t)
	inst := writeFile(t, filepath.Join(dir, "data", "Instance_1.txt"), twoClusters)

	_, err := execute(t, "solve", inst)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "data", "Sol_Instance_1.txt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), twoClustersSolution), string(data))
	assert.Contains(t, string(data), "Threshold Beta = 2.4")
}

func TestSolveOutputDirAndBatch(t *testing.T) {
	dir := isolate(t)
	a := writeFile(t, filepath.Join(dir, "Instance_1.txt"), twoClusters)
	b := writeFile(t, filepath.Join(dir, "Instance_2.txt"), twoClusters)
	outDir := filepath.Join(dir, "solutions")

	_, err := execute(t, "solve", "--workers", "2", "--out", outDir, a, b)
	require.NoError(t, err)

	for _, name := range []string{"Sol_Instance_1.txt", "Sol_Instance_2.txt"} {
		sol, err := solution.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.Equal(t, []int{1, 2}, sol.Deployed)
		assert.InDelta(t, 5.0, sol.Objective, 1e-9)
	}
}

func TestSolveStdout(t *testing.T) {
	dir := isolate(t)
	inst := writeFile(t, filepath.Join(dir, "Instance_1.txt"), twoClusters)

	out, err := execute(t, "solve", "--stdout", "--no-summary", "--strategy", "greedy", inst)
	require.NoError(t, err)
	assert.Equal(t, twoClustersSolution, out)
	assert.NoFileExists(t, filepath.Join(dir, "Sol_Instance_1.txt"))
}

func TestSolveErrors(t *testing.T) {
	dir := isolate(t)
	bad := writeFile(t, filepath.Join(dir, "Instance_bad.txt"), "2 1\n1 0 0 10\n")
	tooBig := writeFile(t, filepath.Join(dir, "Instance_big.txt"), "2 1\n1 0 0 10 8\n2 1 0 10 8\n")

	tests := []struct {
		name string
		args []string
	}{
		{"missing file", []string{"solve", filepath.Join(dir, "nope.txt")}},
		{"malformed instance", []string{"solve", bad}},
		{"unknown strategy", []string{"solve", "--strategy", "random", tooBig}},
		{"infeasible", []string{"solve", tooBig}},
		{"no args", []string{"solve"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestVerifyPair(t *testing.T) {
	dir := isolate(t)
	inst := writeFile(t, filepath.Join(dir, "Instance_1.txt"), twoClusters)
	good := writeFile(t, filepath.Join(dir, "Sol_Instance_1.txt"), twoClustersSolution)
	bad := writeFile(t, filepath.Join(dir, "Sol_bad.txt"), overloadedSolution)

	out, err := execute(t, "verify", inst, good)
	require.NoError(t, err)
	assert.Contains(t, out, "Workload gap        : 0 (alpha=6)")
	assert.True(t, strings.HasSuffix(out, "Solution verified OK.\n"), out)

	out, err = execute(t, "verify", inst, bad)
	assert.True(t, errors.Is(err, ErrVerificationFailed), "err = %v", err)
	assert.Contains(t, out, "ERROR: ")
	assert.Contains(t, out, "FAIL: ")
}

func TestVerifyJSON(t *testing.T) {
	dir := isolate(t)
	inst := writeFile(t, filepath.Join(dir, "Instance_1.txt"), twoClusters)
	good := writeFile(t, filepath.Join(dir, "Sol_Instance_1.txt"), twoClustersSolution)

	out, err := execute(t, "verify", "--json", inst, good)
	require.NoError(t, err)

	var got reportJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.OK)
	assert.Equal(t, "Solution verified OK.", got.Verdict)
	require.NotNil(t, got.Report)
	assert.Equal(t, 6, got.Report.Thresholds.Alpha)
}

func TestVerifyDir(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "Instance_1.txt"), twoClusters)
	writeFile(t, filepath.Join(dir, "Sol_Instance_1.txt"), twoClustersSolution)
	writeFile(t, filepath.Join(dir, "Instance_2.txt"), twoClusters)
	writeFile(t, filepath.Join(dir, "Sol_Instance_2.txt"), overloadedSolution)

	out, err := execute(t, "verify", "--dir", dir, "--ids", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "== Instance 1 ==")

	out, err = execute(t, "verify", "--dir", dir, "--ids", "1-3")
	assert.True(t, errors.Is(err, ErrVerificationFailed), "err = %v", err)
	assert.Contains(t, out, "== Instance 2 ==")
	assert.Contains(t, out, "== Instance 3 ==\nERROR: ")

	_, err = execute(t, "verify", "--dir", dir)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrVerificationFailed))
}

func TestParseIDs(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{in: "1", want: []int{1}},
		{in: "1,3,7", want: []int{1, 3, 7}},
		{in: "2-4, 9", want: []int{2, 3, 4, 9}},
		{in: " 5 ,", want: []int{5}},
		{in: "", wantErr: true},
		{in: "0", wantErr: true},
		{in: "4-2", wantErr: true},
		{in: "a", wantErr: true},
		{in: ",", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseIDs(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestRenderDOT(t *testing.T) {
	dir := isolate(t)
	inst := writeFile(t, filepath.Join(dir, "Instance_1.txt"), twoClusters)
	sol := writeFile(t, filepath.Join(dir, "Sol_Instance_1.txt"), twoClustersSolution)
	base := filepath.Join(dir, "out", "map")

	_, err := execute(t, "render", "-f", "dot,json", "-o", base, inst, sol)
	require.NoError(t, err)

	dot, err := os.ReadFile(base + ".dot")
	require.NoError(t, err)
	assert.Contains(t, string(dot), "n1 -- n3")

	data, err := os.ReadFile(base + ".json")
	require.NoError(t, err)
	var doc struct {
		Instance *instance.Instance `json:"instance"`
		Solution *solution.Solution `json:"solution"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 6, doc.Instance.N())
	assert.Equal(t, []int{1, 2}, doc.Solution.Deployed)
}

func TestRenderSolvesWithoutSolution(t *testing.T) {
	dir := isolate(t)
	inst := writeFile(t, filepath.Join(dir, "Instance_1.txt"), twoClusters)

	_, err := execute(t, "render", "-f", "dot", inst)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "Instance_1.dot"))

	_, err = execute(t, "render", "-f", "gif", inst)
	assert.Error(t, err)
}

func TestHistory(t *testing.T) {
	dir := isolate(t)
	inst := writeFile(t, filepath.Join(dir, "Instance_1.txt"), twoClusters)
	sol := writeFile(t, filepath.Join(dir, "Sol_Instance_1.txt"), twoClustersSolution)

	out, err := execute(t, "history", "--json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)

	_, err = execute(t, "solve", inst)
	require.NoError(t, err)
	_, err = execute(t, "verify", inst, sol)
	require.NoError(t, err)

	out, err = execute(t, "history", "--json", "--kind", "verify")
	require.NoError(t, err)
	var runs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "verify", runs[0]["kind"])
	assert.Equal(t, "Instance_1", runs[0]["instance"])
	assert.Equal(t, "OK", runs[0]["verdict"])

	out, err = execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "Instance_1")
	assert.Contains(t, out, "solve")

	_, err = execute(t, "history", "--kind", "render")
	assert.Error(t, err)
}

func TestCacheCommands(t *testing.T) {
	dir := isolate(t)
	inst := writeFile(t, filepath.Join(dir, "Instance_1.txt"), twoClusters)

	out, err := execute(t, "cache", "path")
	require.NoError(t, err)
	cacheDir := filepath.Join(dir, "cache", config.AppName)
	assert.Equal(t, cacheDir+"\n", out)

	_, err = execute(t, "solve", inst)
	require.NoError(t, err)
	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	_, err = execute(t, "cache", "clear")
	require.NoError(t, err)
	entries, err = os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConfigFlag(t *testing.T) {
	dir := isolate(t)
	inst := writeFile(t, filepath.Join(dir, "Instance_1.txt"), twoClusters)

	_, err := execute(t, "--config", filepath.Join(dir, "missing.toml"), "solve", inst)
	assert.Error(t, err)

	cfg := writeFile(t, filepath.Join(dir, "siteplan.toml"), "strategy = \"fastest\"\n")
	_, err = execute(t, "--config", cfg, "solve", inst)
	assert.Error(t, err)
}

func TestCompletion(t *testing.T) {
	isolate(t)
	out, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "siteplan")

	_, err = execute(t, "completion", "tcsh")
	assert.Error(t, err)
}

// =============================================================================
// inspect
// =============================================================================

func loadTwoClusters(t *testing.T) (*instance.Instance, *solution.Solution) {
	t.Helper()
	inst, err := instance.Parse(strings.NewReader(twoClusters))
	require.NoError(t, err)
	inst.Name = "Instance_1"
	sol, err := solution.Parse(strings.NewReader(twoClustersSolution))
	require.NoError(t, err)
	return inst, sol
}

func TestInspectModelRows(t *testing.T) {
	m := newInspectModel(loadTwoClusters(t))

	require.Len(t, m.Rows, 2)
	first := m.Rows[0]
	assert.Equal(t, 1, first.Center)
	assert.Equal(t, 30, first.Load)
	assert.Equal(t, 30, first.Capacity)
	assert.False(t, first.Overloaded())
	assert.InDelta(t, 1.0, first.MaxDist, 1e-9)
	assert.InDelta(t, 5.0, first.Weighted, 1e-9)
	require.Len(t, first.Members, 3)
	assert.Equal(t, memberRow{Index: 1, Population: 20, Distance: 0}, first.Members[0])
	assert.True(t, m.OK)
	assert.Equal(t, "Solution verified OK.", m.Verdict)
}

func TestInspectModelNavigation(t *testing.T) {
	var model tea.Model = newInspectModel(loadTwoClusters(t))

	key := func(s string) tea.KeyMsg {
		switch s {
		case "enter":
			return tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			return tea.KeyMsg{Type: tea.KeyEsc}
		}
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}

	model, _ = model.Update(key("j"))
	model, _ = model.Update(key("j"))
	assert.Equal(t, 1, model.(inspectModel).Cursor, "cursor stops at the last row")

	model, _ = model.Update(key("enter"))
	m := model.(inspectModel)
	assert.True(t, m.Detail)
	assert.Contains(t, m.View(), "Community")
	assert.Contains(t, m.View(), "load 30 of 30")

	model, cmd := model.Update(key("esc"))
	assert.Nil(t, cmd)
	assert.False(t, model.(inspectModel).Detail)

	model, _ = model.Update(key("k"))
	assert.Equal(t, 0, model.(inspectModel).Cursor)

	_, cmd = model.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestInspectModelOverloaded(t *testing.T) {
	inst, _ := loadTwoClusters(t)
	sol, err := solution.Parse(strings.NewReader(overloadedSolution))
	require.NoError(t, err)

	m := newInspectModel(inst, sol)
	require.Len(t, m.Rows, 1)
	assert.True(t, m.Rows[0].Overloaded())
	assert.False(t, m.OK)
	assert.Contains(t, m.View(), "FAIL:")
}

func TestInspectPlain(t *testing.T) {
	dir := isolate(t)
	inst := writeFile(t, filepath.Join(dir, "Instance_1.txt"), twoClusters)

	out, err := execute(t, "inspect", "--plain", inst)
	require.NoError(t, err)
	assert.Contains(t, out, "Instance_1")
	assert.Contains(t, out, "30/30")
	assert.Contains(t, out, "Solution verified OK.")
}
