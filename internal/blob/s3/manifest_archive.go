package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// manifestPrefix is the key prefix under which season manifests are archived.
const manifestPrefix = "manifests/"

// ManifestArchive stores canonical manifest JSON documents under
// "manifests/<seasonID>.json". Objects are written once per season and never
// mutated afterwards; the verify job reads them back to audit the published
// root.
type ManifestArchive struct {
	writer *Writer
	reader *Reader
}

// NewManifestArchive creates a ManifestArchive backed by the given Client.
func NewManifestArchive(c *Client) *ManifestArchive {
	return &ManifestArchive{
		writer: NewWriter(c),
		reader: NewReader(c),
	}
}

func manifestKey(seasonID string) string {
	return manifestPrefix + seasonID + ".json"
}

// Put uploads the manifest body for a season and returns the object key it
// was stored under.
func (ma *ManifestArchive) Put(ctx context.Context, seasonID string, body []byte) (string, error) {
	key := manifestKey(seasonID)
	if err := ma.writer.Put(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: archive manifest %s: %w", seasonID, err)
	}
	return key, nil
}

// Get downloads the archived manifest body for a season. It returns
// domain.ErrNotFound when no manifest has been archived.
func (ma *ManifestArchive) Get(ctx context.Context, seasonID string) ([]byte, error) {
	rc, err := ma.reader.Get(ctx, manifestKey(seasonID))
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("s3blob: read archived manifest %s: %w", seasonID, err)
	}
	return body, nil
}

// Exists reports whether a manifest has been archived for the season.
func (ma *ManifestArchive) Exists(ctx context.Context, seasonID string) (bool, error) {
	return ma.reader.Exists(ctx, manifestKey(seasonID))
}
