package s3

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// ManifestName is the key of the run summary written next to the archived files.
const ManifestName = "manifest.json"

// Archiver copies the files of a run to <prefix>/<folder>/<runID>/.
type Archiver struct {
	Log    logger.Logger
	Client BasicClient
}

// Archive uploads every file and then a JSON manifest describing the run.
// It stops at the first failed upload.
func (a *Archiver) Archive(ctx context.Context, folder string, runID string, files []string, manifest interface{}) ([]string, error) {
	keys := make([]string, 0, len(files)+1)
	for _, f := range files {
		key := path.Join(folder, runID, filepath.Base(f))
		if err := a.putFile(ctx, key, f); err != nil {
			return keys, err
		}
		a.Log.Debug("archived ", f, " to ", key)
		keys = append(keys, key)
	}
	b, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return keys, errors.Wrap(err, "error building archive manifest")
	}
	key := path.Join(folder, runID, ManifestName)
	if err = a.Client.Put(ctx, key, b); err != nil {
		return keys, errors.Wrapf(err, "error writing %v", key)
	}
	keys = append(keys, key)
	a.Log.Info("archived ", len(files), " files to ", path.Join(folder, runID))
	return keys, nil
}

func (a *Archiver) putFile(ctx context.Context, key string, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return errors.Wrapf(err, "error opening %q", name)
	}
	defer f.Close()
	if err = a.Client.BufferPut(ctx, key, f); err != nil {
		return errors.Wrapf(err, "error uploading %q", name)
	}
	return nil
}
