// Package archive persists completed-run manifests to a blob bucket for
// traceability: the run's result together with the hashes of the inputs
// that produced it
package archive

import (
	"context"
	"encoding/json"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/fileblob"

	"github.com/atlasflow/engine/pkg/api"
)

type (
	// Manifest is the archived account of one run
	Manifest struct {
		ArchivedAt   time.Time      `json:"archived_at"`
		RunID        api.RunID      `json:"run_id"`
		Status       api.RunStatus  `json:"status"`
		ConfigHash   string         `json:"config_hash,omitempty"`
		ContractHash string         `json:"contract_hash,omitempty"`
		Result       *api.RunResult `json:"result"`
	}

	// BlobArchiver writes manifests through gocloud.dev/blob, supporting
	// S3, GCS, Azure Blob Storage, and S3-compatible stores
	BlobArchiver struct {
		bucket *blob.Bucket
		prefix string
	}
)

// NewBlobArchiver opens the bucket behind a manifest archiver
func NewBlobArchiver(
	ctx context.Context, bucketURL, prefix string,
) (*BlobArchiver, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &BlobArchiver{bucket: bucket, prefix: prefix}, nil
}

// ArchiveRun writes the run's manifest under runs/<id>.json
func (a *BlobArchiver) ArchiveRun(
	ctx context.Context, st *api.RunState,
) error {
	manifest := &Manifest{
		ArchivedAt:   time.Now(),
		RunID:        st.ID,
		Status:       st.Status,
		ConfigHash:   st.ConfigHash,
		ContractHash: st.ContractHash,
		Result:       st.Result(),
	}

	data, err := json.Marshal(manifest)
	if err != nil {
		return err
	}
	return a.bucket.WriteAll(ctx, a.keyFor(st.ID), data, nil)
}

// ReadManifest loads a previously archived manifest
func (a *BlobArchiver) ReadManifest(
	ctx context.Context, id api.RunID,
) (*Manifest, bool, error) {
	data, err := a.bucket.ReadAll(ctx, a.keyFor(id))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, false, nil
		}
		return nil, false, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, false, err
	}
	return &manifest, true, nil
}

func (a *BlobArchiver) Close() error {
	return a.bucket.Close()
}

func (a *BlobArchiver) keyFor(id api.RunID) string {
	return a.prefix + string(id) + ".json"
}
