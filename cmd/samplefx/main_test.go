package main

import (
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t2bot/synthkit/common"
	"github.com/t2bot/synthkit/common/config"
	"github.com/t2bot/synthkit/common/rcontext"
	"github.com/t2bot/synthkit/samples"
)

func testSetup(t *testing.T) (rcontext.RequestContext, *config.MainConfig, string) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := config.NewDefaultMainConfig()
	cfg.TempDirectory = t.TempDir()

	in := filepath.Join(t.TempDir(), "tone.wav")
	out, err := samples.CreateOutput(samples.NewSample(in), 44100, 1, samples.FormatWAV16)
	require.NoError(t, err)
	data := make([]float32, 1000)
	for i := range data {
		data[i] = float32(0.5 * math.Sin(float64(i)*0.05))
	}
	require.NoError(t, out.Write(data, 1000))
	require.NoError(t, out.Close())

	return rcontext.New(context.Background(), logrus.NewEntry(logger), &cfg), &cfg, in
}

func TestProcessWritesOutput(t *testing.T) {
	ctx, cfg, in := testSetup(t)
	outPath := filepath.Join(t.TempDir(), "reversed.wav")

	info, err := process(ctx, cfg, in, outPath, "reverse,reverse")
	require.NoError(t, err)
	assert.Equal(t, samples.FrameCount(1000), info.Frames)
	assert.FileExists(t, outPath)

	left, err := os.ReadDir(cfg.TempDirectory)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestProcessRemovesTemporariesOnFailure(t *testing.T) {
	ctx, cfg, in := testSetup(t)
	outPath := filepath.Join(t.TempDir(), "missing", "out.wav")

	_, err := process(ctx, cfg, in, outPath, "reverse")
	assert.ErrorIs(t, err, common.ErrIOFailure)

	left, err := os.ReadDir(cfg.TempDirectory)
	require.NoError(t, err)
	assert.Empty(t, left)

	_, err = process(ctx, cfg, in, outPath, "no-such-effect")
	assert.ErrorIs(t, err, common.ErrPreconditionViolation)
}
