package archive_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/atlasflow/engine/internal/archive"
	"github.com/atlasflow/engine/pkg/api"

	_ "gocloud.dev/blob/memblob"
)

func completedRun() *api.RunState {
	return &api.RunState{
		ID:         "run-1",
		Status:     api.RunSuccess,
		Planned:    []api.StepID{"load", "train"},
		ConfigHash: "abc123",
		Results: map[api.StepID]*api.StepResult{
			"load": {
				StepID: "load", Status: api.StepSuccess, Summary: "loaded",
			},
			"train": {
				StepID: "train", Status: api.StepSuccess, Summary: "trained",
			},
		},
		CreatedAt:   time.Now().Add(-time.Minute),
		CompletedAt: time.Now(),
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	ctx := context.Background()

	a, err := archive.NewBlobArchiver(ctx, "mem://", "runs/")
	assert.NoError(t, err)
	defer func() { _ = a.Close() }()

	assert.NoError(t, a.ArchiveRun(ctx, completedRun()))

	manifest, found, err := a.ReadManifest(ctx, "run-1")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, api.RunID("run-1"), manifest.RunID)
	assert.Equal(t, api.RunSuccess, manifest.Status)
	assert.Equal(t, "abc123", manifest.ConfigHash)
	assert.Len(t, manifest.Result.Steps, 2)
	assert.Equal(t, api.StepID("load"), manifest.Result.Steps[0].StepID)
	assert.False(t, manifest.ArchivedAt.IsZero())
}

func TestReadManifestMissing(t *testing.T) {
	ctx := context.Background()

	a, err := archive.NewBlobArchiver(ctx, "mem://", "runs/")
	assert.NoError(t, err)
	defer func() { _ = a.Close() }()

	_, found, err := a.ReadManifest(ctx, "missing")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestArchiveFileBucket(t *testing.T) {
	ctx := context.Background()

	a, err := archive.NewBlobArchiver(
		ctx, "file://"+t.TempDir(), "runs/",
	)
	assert.NoError(t, err)
	defer func() { _ = a.Close() }()

	assert.NoError(t, a.ArchiveRun(ctx, completedRun()))

	_, found, err := a.ReadManifest(ctx, "run-1")
	assert.NoError(t, err)
	assert.True(t, found)
}
