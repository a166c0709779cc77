package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mustfahassan/pd-calculator/internal/detector"
	"github.com/mustfahassan/pd-calculator/internal/measure"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeLandmarks(t *testing.T, points []detector.Point3D) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, measure.EncodeRequest(&buf, measure.NewRequest(points)))
	path := filepath.Join(t.TempDir(), "landmarks.json")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestCalcCmd_File(t *testing.T) {
	path := writeLandmarks(t, detector.CenteredFace(0.35).Points)

	out, err := runCmd(t, "", "calc", path)

	require.NoError(t, err)
	res, err := measure.DecodeResult(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, measure.StatusSuccess, res.Status)
	assert.InDelta(t, 64.8, res.PDMM, 0.05)
}

func TestCalcCmd_Stdin(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, measure.EncodeRequest(&buf, measure.NewRequest(detector.CenteredFace(0.35).Points)))

	out, err := runCmd(t, buf.String(), "calc", "-")

	require.NoError(t, err)
	assert.Contains(t, out, `"status":"success"`)
}

func TestCalcCmd_LowConfidence(t *testing.T) {
	path := writeLandmarks(t, detector.CenteredFace(0.35).Points)

	out, err := runCmd(t, "", "calc", "--min-confidence", "99", path)

	require.Error(t, err)
	assert.Equal(t, measure.MessageLowConfidence, err.Error())
	assert.Contains(t, out, `"status":"error"`)
}

func TestCalcCmd_MissingFile(t *testing.T) {
	_, err := runCmd(t, "", "calc", filepath.Join(t.TempDir(), "nope.json"))

	assert.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	out, err := runCmd(t, "", "version")

	require.NoError(t, err)
	assert.Equal(t, "pdcalc dev\n", out)
}

func TestServeCmd_RejectsInvalidConfig(t *testing.T) {
	t.Setenv("PDCALC_THRESHOLD", "0")

	_, err := runCmd(t, "", "serve", "--env-file", filepath.Join(t.TempDir(), "none.env"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Threshold")
}

func TestResolveDBPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "pd.db")

	got, err := resolveDBPath(path)

	require.NoError(t, err)
	assert.Equal(t, path, got)
	info, err := os.Stat(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	got, err = resolveDBPath(":memory:")
	require.NoError(t, err)
	assert.Equal(t, ":memory:", got)
}

func TestBrowserURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080", browserURL(":8080"))
	assert.Equal(t, "http://127.0.0.1:9000", browserURL("127.0.0.1:9000"))
}
