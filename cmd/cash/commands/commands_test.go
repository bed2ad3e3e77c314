package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cash"
	"github.com/hupe1980/cash/hough"
	"github.com/hupe1980/cash/model"
)

// verticalLine holds four points on x = 1 and two outliers.
const verticalLine = `x,y
1,0
1,1
1,2
1,3
5,7
9,2
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decodeResult(t *testing.T, out string) cash.Result {
	t.Helper()
	var res cash.Result
	require.NoError(t, gojson.Unmarshal([]byte(out), &res))
	return res
}

func TestRun_Text(t *testing.T) {
	dataset := writeFile(t, "points.csv", verticalLine)

	out, err := execute(t, "run", dataset, "--eps", "0.05", "--min-pts", "4")
	require.NoError(t, err)

	assert.Contains(t, out, "1 clusters")
	assert.Contains(t, out, "2 unclustered (below_min_pts)")
	assert.Contains(t, out, "points: 1 2 3 4")
}

func TestRun_JSON(t *testing.T) {
	dataset := writeFile(t, "points.csv", verticalLine)

	out, err := execute(t, "run", dataset, "--min-pts", "4", "--run-id", "json-run", "-o", "json")
	require.NoError(t, err)

	res := decodeResult(t, out)
	assert.Equal(t, "json-run", res.RunID)
	assert.Equal(t, cash.StopBelowMinPts, res.Reason)
	assert.Equal(t, 2, res.Remaining)
	require.Len(t, res.Clusters, 1)
	assert.Equal(t, hough.Alpha{0}, res.Clusters[0].Alpha)
	assert.Equal(t, []model.PointID{1, 2, 3, 4}, res.Clusters[0].Points)
	assert.InDelta(t, 1, res.Clusters[0].Offset, 1e-9)
}

func TestRun_ConfigFileWithFlagOverride(t *testing.T) {
	dataset := writeFile(t, "points.csv", verticalLine)
	config := writeFile(t, "cash.yaml", "eps: 0.05\nmin_pts: 100\ndataset: "+dataset+"\n")

	out, err := execute(t, "run", "--config", config, "-o", "json")
	require.NoError(t, err)
	res := decodeResult(t, out)
	assert.Empty(t, res.Clusters)
	assert.Equal(t, cash.StopBelowMinPts, res.Reason)

	out, err = execute(t, "run", "--config", config, "--min-pts", "4", "-o", "json")
	require.NoError(t, err)
	res = decodeResult(t, out)
	assert.Len(t, res.Clusters, 1)
}

func TestRun_Badger(t *testing.T) {
	dataset := writeFile(t, "points.csv", verticalLine)
	dir := t.TempDir()

	out, err := execute(t, "run", dataset, "--min-pts", "4", "--store", "badger", "--dir", dir, "-o", "json")
	require.NoError(t, err)

	res := decodeResult(t, out)
	require.Len(t, res.Clusters, 1)
	assert.Equal(t, []model.PointID{1, 2, 3, 4}, res.Clusters[0].Points)
}

func TestRun_CheckpointAndInspect(t *testing.T) {
	dataset := writeFile(t, "points.csv", verticalLine)
	target := "file://" + t.TempDir()

	_, err := execute(t, "run", dataset, "--min-pts", "4",
		"--checkpoint", target, "--every", "1", "--run-id", "r1",
		"--codec", "msgpack", "--compression", "zstd")
	require.NoError(t, err)

	out, err := execute(t, "inspect", "--checkpoint", target)
	require.NoError(t, err)
	assert.Equal(t, "r1\n", out)

	out, err = execute(t, "inspect", "--checkpoint", target, "--run", "r1", "--clusters", "-o", "json")
	require.NoError(t, err)

	var s summary
	require.NoError(t, gojson.Unmarshal([]byte(out), &s))
	assert.Equal(t, "r1", s.RunID)
	assert.Equal(t, 4, s.MinPts)
	assert.InDelta(t, 0.05, s.Eps, 1e-12)
	assert.Equal(t, 2, s.Dimension)
	assert.Equal(t, 1, s.Clusters)
	assert.Equal(t, 2, s.Active)
	assert.Equal(t, model.ClusterID(2), s.NextClusterID)
	assert.GreaterOrEqual(t, s.Checkpoints, 1)
	require.Len(t, s.Details, 1)
	assert.Equal(t, []model.PointID{1, 2, 3, 4}, s.Details[0].Points)

	out, err = execute(t, "inspect", "--checkpoint", target, "--run", "r1")
	require.NoError(t, err)
	assert.Contains(t, out, "next_cluster_id")
}

func TestRun_Resume(t *testing.T) {
	dataset := writeFile(t, "points.csv", verticalLine)
	target := "file://" + t.TempDir()

	_, err := execute(t, "run", dataset, "--min-pts", "4", "--checkpoint", target, "--run-id", "r2")
	require.NoError(t, err)

	// The checkpoint already holds the cluster; the resumed run starts below minPts.
	out, err := execute(t, "run", dataset, "--checkpoint", target, "--run-id", "r2", "--resume", "-o", "json")
	require.NoError(t, err)

	res := decodeResult(t, out)
	assert.Equal(t, "r2", res.RunID)
	assert.Equal(t, cash.StopBelowMinPts, res.Reason)
	require.Len(t, res.Clusters, 1)
	assert.Equal(t, model.ClusterID(1), res.Clusters[0].ID)
}

func TestRun_Errors(t *testing.T) {
	dataset := writeFile(t, "points.csv", verticalLine)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no dataset", []string{"run"}, "dataset is required"},
		{"bad eps", []string{"run", dataset, "--eps", "0"}, "eps must be > 0"},
		{"badger without dir", []string{"run", dataset, "--store", "badger"}, "store.dir"},
		{"unknown store", []string{"run", dataset, "--store", "redis"}, "unknown store kind"},
		{"resume without run id", []string{"run", dataset, "--resume", "--checkpoint", t.TempDir()}, "--resume"},
		{"bad output", []string{"run", dataset, "--min-pts", "4", "-o", "xml"}, "unknown output format"},
		{"bad codec", []string{"run", dataset, "--checkpoint", t.TempDir(), "--codec", "gob"}, "unknown codec"},
		{"bad log level", []string{"run", dataset, "--log-level", "loud"}, "--log-level"},
		{"missing file", []string{"run", filepath.Join(t.TempDir(), "missing.csv")}, "missing.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "cash "))

	out, err = execute(t, "version", "--format", "json")
	require.NoError(t, err)
	var v versionInfo
	require.NoError(t, gojson.Unmarshal([]byte(out), &v))
	assert.NotEmpty(t, v.Version)
	assert.NotEmpty(t, v.GoVersion)
}
