package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"churn-detection/internal/artifact"

	"github.com/google/uuid"
)

// ArtifactRecord is one artifact as it was seen by a process at startup.
type ArtifactRecord struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA256   string `json:"sha256"`
	Kind     string `json:"kind,omitempty"`
	Version  string `json:"version,omitempty"`
	ServedBy string `json:"served_by,omitempty"`
	Aliased  bool   `json:"aliased,omitempty"`
}

// LoadRecord describes one successful artifact load.
type LoadRecord struct {
	ID        string           `json:"id"`
	LoadedAt  time.Time        `json:"loaded_at"`
	AppName   string           `json:"app_name"`
	Version   string           `json:"version"`
	Artifacts []ArtifactRecord `json:"artifacts"`
}

// Checksums maps artifact name to its sha256.
func (r LoadRecord) Checksums() map[string]string {
	out := make(map[string]string, len(r.Artifacts))
	for _, a := range r.Artifacts {
		out[a.Name] = a.SHA256
	}
	return out
}

// NewLoadRecord flattens a store summary into a journal entry.
func NewLoadRecord(appName, version string, info artifact.Info) LoadRecord {
	rec := LoadRecord{
		ID:       uuid.NewString(),
		LoadedAt: info.LoadedAt.UTC(),
		AppName:  appName,
		Version:  version,
		Artifacts: []ArtifactRecord{{
			Name:    "preprocessor",
			Path:    info.Preprocessor.Path,
			SHA256:  info.Preprocessor.SHA256,
			Version: info.Preprocessor.Metadata.Version,
		}},
	}

	ids := make([]string, 0, len(info.Models))
	for id := range info.Models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		m := info.Models[id]
		rec.Artifacts = append(rec.Artifacts, ArtifactRecord{
			Name:     id,
			Path:     m.Path,
			SHA256:   m.SHA256,
			Kind:     m.Kind,
			Version:  m.Metadata.Version,
			ServedBy: m.ServedBy,
			Aliased:  m.Aliased,
		})
	}
	return rec
}

func loadKey(ts time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%020d_%s", ts.UnixNano(), id))
}

// RecordLoad appends rec to the journal.
func (s *Store) RecordLoad(rec LoadRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.LoadedAt.IsZero() {
		rec.LoadedAt = time.Now().UTC()
	}
	return s.put(loadsBucket, loadKey(rec.LoadedAt, rec.ID), rec)
}

// LastLoad returns the most recent journal entry, or nil when the journal is
// empty.
func (s *Store) LastLoad() (*LoadRecord, error) {
	data, err := s.last(loadsBucket)
	if err != nil || data == nil {
		return nil, err
	}

	var rec LoadRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal load record: %w", err)
	}
	return &rec, nil
}

// Loads returns the journal entries recorded within [start, end], oldest
// first. Malformed entries are skipped.
func (s *Store) Loads(start, end time.Time) ([]LoadRecord, error) {
	var out []LoadRecord

	startKey := []byte(fmt.Sprintf("%020d", start.UnixNano()))
	// '~' sorts after every uuid character
	endKey := []byte(fmt.Sprintf("%020d~", end.UnixNano()))

	err := s.scanRange(loadsBucket, startKey, endKey, func(v []byte) error {
		var rec LoadRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return nil
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

// ChangedArtifacts lists artifact names whose checksum differs between prev
// and cur, including artifacts present in only one of them.
func ChangedArtifacts(prev, cur LoadRecord) []string {
	before := prev.Checksums()
	after := cur.Checksums()

	var changed []string
	for name, sum := range after {
		if before[name] != sum {
			changed = append(changed, name)
		}
	}
	for name := range before {
		if _, ok := after[name]; !ok {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed
}
