package capture

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Store is the append-only capture log on a local or mounted filesystem.
// Records land in hourly partitions:
//
//	<root>/<endpoint>/2026/08/23/14/<file>.jsonl
//
// Partition paths sort lexicographically in chronological order, and records
// within a file keep append order, so a window read is stable.
type Store struct {
	root string
}

const partitionLayout = "2006/01/02/15"

func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("capture store root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create capture store root: %w", err)
	}
	return &Store{root: root}, nil
}

// Append writes records to the hourly partition of their inference time, one
// JSON document per line. Records are never rewritten.
func (s *Store) Append(records []Record) error {
	files := make(map[string]*os.File)
	defer func() {
		for _, f := range files {
			if err := f.Close(); err != nil {
				log.Error().Err(err).Str("file", f.Name()).Msg("Failed to close capture partition file")
			}
		}
	}()

	for _, rec := range records {
		dir := filepath.Join(s.root, rec.EndpointName, rec.InferenceTime.UTC().Format(partitionLayout))
		path := filepath.Join(dir, partitionFileName(rec.InferenceTime))

		f, ok := files[path]
		if !ok {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create capture partition: %w", err)
			}
			var err error
			f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("failed to open capture partition file: %w", err)
			}
			files[path] = f
		}

		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode capture record %s: %w", rec.EventID, err)
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("failed to append capture record %s: %w", rec.EventID, err)
		}
	}
	return nil
}

// ReadWindow returns every record of an endpoint with inference time in
// [from, to), in capture order. A window with no partitions yields an empty
// slice, not an error.
func (s *Store) ReadWindow(endpoint string, from, to time.Time) ([]Record, error) {
	endpointRoot := filepath.Join(s.root, endpoint)
	if _, err := os.Stat(endpointRoot); os.IsNotExist(err) {
		return nil, nil
	}

	var paths []string
	err := filepath.Walk(endpointRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".jsonl") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture partitions: %w", err)
	}
	sort.Strings(paths)

	var records []Record
	for _, path := range paths {
		recs, err := readPartitionFile(path)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if rec.InferenceTime.Before(from) || !rec.InferenceTime.Before(to) {
				continue
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

func readPartitionFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture partition file: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("corrupt capture record in %s: %w", path, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read capture partition file %s: %w", path, err)
	}
	return records, nil
}

func partitionFileName(ts time.Time) string {
	return ts.UTC().Format("20060102-15") + ".jsonl"
}
