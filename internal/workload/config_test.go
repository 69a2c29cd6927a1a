package workload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoad_Full(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "full.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Root{Kind: RootBump, Size: 256 * 1024}, cfg.Root)
	assert.Equal(t, []string{"validating", "tracking", "histogram", "counting", "logging"}, cfg.Layers)
	assert.Equal(t, 32, cfg.GuardWidth)
	assert.Equal(t, Size(1024), cfg.Workload.MaxSize)
	assert.Equal(t, []int{1, 8, 16, 64, 256}, cfg.Workload.Aligns)
	assert.InDelta(t, 0.15, cfg.Workload.ResizeRatio, 1e-9)
}

func TestParse_DefaultsFillGaps(t *testing.T) {
	cfg, err := Parse([]byte("root: {kind: heap}\nworkload: {ops: 10}\n"))
	require.NoError(t, err)
	assert.Equal(t, RootHeap, cfg.Root.Kind)
	assert.Equal(t, 10, cfg.Workload.Ops)
	assert.Equal(t, int64(42), cfg.Workload.Seed)
	assert.Equal(t, Default().Layers, cfg.Layers)

	cfg, err = Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "roots: {}", "field roots not found"},
		{"unknown kind", "root: {kind: slab}", `unknown kind "slab"`},
		{"bump without size", "root: {kind: bump, size: 0}", "positive size"},
		{"bad size", "root: {kind: bump, size: lots}", `invalid size "lots"`},
		{"unknown layer", "layers: [guarded]", `unknown layer "guarded"`},
		{"duplicate layer", "layers: [tracking, tracking]", "listed twice"},
		{"bad align", "workload: {aligns: [3]}", "3 is not a power of two"},
		{"empty range", "workload: {min_size: 10, max_size: 5}", "size range"},
		{"ratio", "workload: {free_ratio: 1.5}", "ratios"},
		{"negative fail", "fail_after: -1", "fail_after"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseSize(t *testing.T) {
	tests := map[string]Size{
		"4096":  4096,
		"16KiB": 16 * 1024,
		"1 MiB": 1 << 20,
		"2kB":   2000,
		"0":     0,
	}
	for in, want := range tests {
		got, err := ParseSize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestSize_WritesHumanized(t *testing.T) {
	out, err := yaml.Marshal(Root{Kind: RootBump, Size: 1 << 20})
	require.NoError(t, err)
	assert.Contains(t, string(out), "size: 1.0 MiB")

	var back Root
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, Size(1<<20), back.Size)
}
