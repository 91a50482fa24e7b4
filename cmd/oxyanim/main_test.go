package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/bake_store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeModel writes a glTF file with a two-joint skin "body" and a one second clip "wave" that
// turns the spine 90 degrees about z.
func writeModel(t *testing.T) string {
	t.Helper()
	var bin []byte
	for _, f := range []float32{0, 1, 0, 0, 0, 1, 0, 0, float32(math.Sqrt2 / 2), float32(math.Sqrt2 / 2)} {
		bin = binary.LittleEndian.AppendUint32(bin, math.Float32bits(f))
	}
	doc := map[string]any{
		"asset": map[string]any{"version": "2.0"},
		"nodes": []map[string]any{
			{"name": "hips", "children": []int{1}},
			{"name": "spine", "translation": []float32{0, 1, 0}},
		},
		"skins": []map[string]any{{"name": "body", "joints": []int{0, 1}}},
		"animations": []map[string]any{{
			"name":     "wave",
			"channels": []map[string]any{{"sampler": 0, "target": map[string]any{"node": 1, "path": "rotation"}}},
			"samplers": []map[string]any{{"input": 0, "output": 1, "interpolation": "LINEAR"}},
		}},
		"accessors": []map[string]any{
			{"bufferView": 0, "componentType": 5126, "count": 2, "type": "SCALAR"},
			{"bufferView": 1, "componentType": 5126, "count": 2, "type": "VEC4"},
		},
		"bufferViews": []map[string]any{
			{"buffer": 0, "byteOffset": 0, "byteLength": 8},
			{"buffer": 0, "byteOffset": 8, "byteLength": 32},
		},
		"buffers": []map[string]any{{
			"byteLength": len(bin),
			"uri":        "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(bin),
		}},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "rig.gltf")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClipsCmd(t *testing.T) {
	out, err := run(t, "clips", writeModel(t))
	require.NoError(t, err)
	assert.Contains(t, out, "CLIP")
	assert.Regexp(t, `body/wave\s+2\s+2\s+1\.000s`, out)
}

func TestBakeCmd(t *testing.T) {
	db := filepath.Join(t.TempDir(), "bakes.db")
	out, err := run(t, "bake", writeModel(t), db, "--frames", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "body/wave: 4 frames every 0.2500s")
	assert.Contains(t, out, "Baked 1 clips")

	store, err := bake_store.Open(context.Background(), db)
	require.NoError(t, err)
	defer store.Close()
	clips, err := store.Clips(context.Background())
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.Equal(t, "body/wave", clips[0].Name)
	assert.Equal(t, 4, clips[0].FrameCount)
}

func TestBakeCmd_UnknownClip(t *testing.T) {
	_, err := run(t, "bake", writeModel(t), filepath.Join(t.TempDir(), "bakes.db"), "--clip", "run")
	require.ErrorContains(t, err, `no clips match "run"`)
}

func TestPlayCmd_Interpolated(t *testing.T) {
	out, err := run(t, "play", writeModel(t), "--seconds", "0.5", "--tick-rate", "10", "--profile-interval", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Played")
	assert.Contains(t, out, "interpolated")
	assert.Contains(t, out, "body/wave: keyframes (0, 1) baked index -1, 2 joints")
}

func TestPlayCmd_Realtime(t *testing.T) {
	out, err := run(t, "play", writeModel(t), "--realtime", "--seconds", "0.1", "--tick-rate", "100", "--profile-interval", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Played")
	assert.Contains(t, out, "body/wave:")
}

func TestPlayCmd_BakedWithStore(t *testing.T) {
	db := filepath.Join(t.TempDir(), "bakes.db")
	out, err := run(t, "play", writeModel(t), "--baked", "--frames", "8", "--store", db, "--tick-rate", "20", "--profile-interval", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "baked")
	assert.NotContains(t, out, "baked index -1")

	store, err := bake_store.Open(context.Background(), db)
	require.NoError(t, err)
	defer store.Close()
	clips, err := store.Clips(context.Background())
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.Equal(t, 8, clips[0].FrameCount)
}

func TestSnapshotCmd(t *testing.T) {
	model := writeModel(t)
	png := filepath.Join(t.TempDir(), "pose.png")
	out, err := run(t, "snapshot", model, png, "--time", "0.5", "--width", "64", "--height", "64")
	require.NoError(t, err)
	assert.Contains(t, out, "body/wave at 0.500s")
	info, err := os.Stat(png)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRootCmd_ConfigErrors(t *testing.T) {
	model := writeModel(t)

	t.Setenv("OXY_ANIM_SPEED", "-1")
	_, err := run(t, "clips", model)
	require.Error(t, err)

	t.Setenv("OXY_ANIM_SPEED", "1")
	_, err = run(t, "play", model, "--type", "sampled")
	require.Error(t, err)

	_, err = run(t, "clips", filepath.Join(t.TempDir(), "missing.gltf"))
	require.Error(t, err)
}
