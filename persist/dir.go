package persist

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Dir keeps each collection in a human-readable and git-friendly
// "<collection>.jsonl" file, one record per line.
type Dir struct {
	Path string
}

// NewDir returns a gateway writing in path, creating the folder if needed.
func NewDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create ledger folder: %w", err)
	}
	return &Dir{Path: path}, nil
}

func (d *Dir) filename(collection string) (string, error) {
	if collection == "" || strings.ContainsAny(collection, `/\`) || collection != filepath.Clean(collection) {
		return "", fmt.Errorf("invalid collection name %q", collection)
	}
	return filepath.Join(d.Path, collection+".jsonl"), nil
}

// Load reads a collection. A missing file is an empty collection.
func (d *Dir) Load(ctx context.Context, collection string) ([]json.RawMessage, error) {
	name, err := d.filename(collection)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []json.RawMessage
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		if !json.Valid(b) {
			return nil, fmt.Errorf("%s:%d: invalid json", name, line)
		}
		records = append(records, bytes.Clone(b))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", name, err)
	}
	logrus.WithFields(logrus.Fields{"file": name, "records": len(records)}).Debug("collection loaded")
	return records, nil
}

// Save rewrites a collection atomically: a temporary file is written then
// renamed over the previous one.
func (d *Dir) Save(ctx context.Context, collection string, records []json.RawMessage) error {
	name, err := d.filename(collection)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, r := range records {
		if err := json.Compact(&buf, r); err != nil {
			return fmt.Errorf("invalid record in %s: %w", collection, err)
		}
		buf.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(d.Path, "."+collection+"-*.jsonl")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"file": name, "records": len(records)}).Debug("collection saved")
	return nil
}

func (d *Dir) Close() error { return nil }
