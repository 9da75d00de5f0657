// Package storage persists collector runs: one timestamped directory per run
// holding compressed feed snapshots and a compressed YAML manifest.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aluiziolira/go-collect-feeds/models"
	"gopkg.in/yaml.v3"
)

// ManifestName is the manifest filename before the codec extension.
const ManifestName = "meta.yaml"

// RunDir is one run's output directory. All writes go through the codec and
// land via a temp-then-rename, so a partially written artifact is never
// visible at its final path.
type RunDir struct {
	id    RunID
	path  string
	codec Codec
}

// CreateRunDir creates a new run directory under root. A directory that
// already exists is an error: the run id has second resolution, and sharing
// a directory would let a second run's manifest overwrite the first.
func CreateRunDir(root string, id RunID, codec Codec) (*RunDir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create output root %q: %w", root, err)
	}
	path := filepath.Join(root, id.String())
	if err := os.Mkdir(path, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory %q: %w", path, err)
	}
	return &RunDir{id: id, path: path, codec: codec}, nil
}

// OpenRunDir opens an existing run directory, e.g. for manifest inspection.
func OpenRunDir(root string, id RunID, codec Codec) (*RunDir, error) {
	path := filepath.Join(root, id.String())
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open run directory %q: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open run directory %q: not a directory", path)
	}
	return &RunDir{id: id, path: path, codec: codec}, nil
}

// ID returns the run identifier.
func (d *RunDir) ID() RunID {
	return d.id
}

// Path returns the directory path.
func (d *RunDir) Path() string {
	return d.path
}

// WriteSnapshot stores one feed body as <name>.rss<ext> and returns the
// compressed size on disk.
func (d *RunDir) WriteSnapshot(name string, body []byte) (int64, error) {
	return d.writeArtifact(name+".rss"+d.codec.Extension(), body)
}

// WriteManifest serializes the manifest to YAML and stores it compressed.
func (d *RunDir) WriteManifest(m *models.Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if _, err := d.writeArtifact(ManifestName+d.codec.Extension(), data); err != nil {
		return err
	}
	return nil
}

// ReadManifest loads and parses the run's manifest.
func (d *RunDir) ReadManifest() (*models.Manifest, error) {
	path := filepath.Join(d.path, ManifestName+d.codec.Extension())
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	r, err := d.codec.Decompress(f)
	if err != nil {
		return nil, fmt.Errorf("decompress manifest: %w", err)
	}
	defer r.Close()

	var m models.Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Snapshots returns the basenames (without ".rss<ext>") of all feed
// snapshots present in the directory.
func (d *RunDir) Snapshots() ([]string, error) {
	suffix := ".rss" + d.codec.Extension()
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("read run directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			names = append(names, name[:len(name)-len(suffix)])
		}
	}
	return names, nil
}

// writeArtifact compresses payload into filename within the run directory,
// writing to a temp path and renaming into place.
func (d *RunDir) writeArtifact(filename string, payload []byte) (int64, error) {
	final := filepath.Join(d.path, filename)
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("create %q: %w", tmp, err)
	}

	cw := d.codec.Compress(f)
	if _, err := cw.Write(payload); err != nil {
		cw.Close()
		f.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("compress %q: %w", filename, err)
	}
	if err := cw.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("flush %q: %w", filename, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("close %q: %w", tmp, err)
	}

	info, err := os.Stat(tmp)
	if err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("stat %q: %w", tmp, err)
	}

	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("rename %q into place: %w", filename, err)
	}
	return info.Size(), nil
}
