// Package artifact loads the fitted preprocessor and classifiers exported by
// the training pipeline and holds them, read-only, for the process lifetime.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"churn-detection/internal/common"

	"github.com/rs/zerolog/log"
)

// Metadata describes how and when an artifact was produced.
type Metadata struct {
	Version            string    `json:"version"`
	TrainedAt          time.Time `json:"trained_at"`
	Features           []string  `json:"features,omitempty"`
	ValidationAccuracy float64   `json:"validation_accuracy,omitempty"`
	TrainingRows       int       `json:"training_rows,omitempty"`
}

// Paths locates the artifacts on disk. XGBoost is optional.
type Paths struct {
	Preprocessor string
	Forest       string
	XGBoost      string
}

// StartupError means the process must not serve traffic.
type StartupError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("load %s artifact %s: %v", e.Artifact, e.Path, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// ArtifactInfo is the public description of one loaded artifact.
type ArtifactInfo struct {
	Path     string   `json:"path,omitempty"`
	SHA256   string   `json:"sha256,omitempty"`
	Kind     string   `json:"kind,omitempty"`
	ServedBy string   `json:"served_by,omitempty"`
	Aliased  bool     `json:"aliased"`
	Metadata Metadata `json:"metadata"`
}

// Info summarises the store for health and model-info endpoints.
type Info struct {
	LoadedAt     time.Time               `json:"loaded_at"`
	Preprocessor ArtifactInfo            `json:"preprocessor"`
	Models       map[string]ArtifactInfo `json:"models"`
}

// Model is a registry entry: the classifier answering for a model id.
type Model struct {
	ID         string
	ServedBy   string
	Classifier Classifier
}

// Aliased reports whether another model's artifact answers for this id.
func (m Model) Aliased() bool {
	return m.ID != m.ServedBy
}

// Store holds the artifacts. It is never mutated after construction.
type Store struct {
	preprocessor Preprocessor
	models       map[string]Model
	info         Info
}

// NewStore assembles a store from already constructed artifacts. A nil
// classifier for common.ModelXGBoost makes it an alias of the forest.
func NewStore(pre Preprocessor, forest, xgboost Classifier) *Store {
	s := &Store{
		preprocessor: pre,
		models:       make(map[string]Model, 2),
		info: Info{
			LoadedAt: time.Now().UTC(),
			Models:   make(map[string]ArtifactInfo, 2),
		},
	}
	s.register(common.ModelForest, common.ModelForest, forest, ArtifactInfo{})
	if xgboost != nil {
		s.register(common.ModelXGBoost, common.ModelXGBoost, xgboost, ArtifactInfo{})
	} else {
		s.register(common.ModelXGBoost, common.ModelForest, forest, ArtifactInfo{})
	}
	return s
}

// Load reads every artifact named in paths. Missing, unreadable or invalid
// required artifacts fail with *StartupError. A missing gradient-boosted
// artifact is not fatal: the xgboost id then aliases the forest, which is
// logged here and reported by Info.
func Load(paths Paths) (*Store, error) {
	var pre ColumnTransformer
	preInfo, err := readArtifact("preprocessor", paths.Preprocessor, &pre)
	if err != nil {
		return nil, err
	}
	if err := pre.Validate(); err != nil {
		return nil, &StartupError{Artifact: "preprocessor", Path: paths.Preprocessor, Err: err}
	}
	preInfo.Metadata = pre.Meta

	forest, forestInfo, err := loadEnsemble(common.ModelForest, paths.Forest)
	if err != nil {
		return nil, err
	}
	if forest.NFeatures != len(pre.FeatureNames()) {
		return nil, &StartupError{
			Artifact: common.ModelForest,
			Path:     paths.Forest,
			Err:      fmt.Errorf("classifier expects %d features, preprocessor emits %d", forest.NFeatures, len(pre.FeatureNames())),
		}
	}

	s := &Store{
		preprocessor: &pre,
		models:       make(map[string]Model, 2),
		info: Info{
			LoadedAt:     time.Now().UTC(),
			Preprocessor: preInfo,
			Models:       make(map[string]ArtifactInfo, 2),
		},
	}
	s.register(common.ModelForest, common.ModelForest, forest, forestInfo)

	if paths.XGBoost != "" && fileExists(paths.XGBoost) {
		boosted, boostedInfo, err := loadEnsemble(common.ModelXGBoost, paths.XGBoost)
		if err != nil {
			return nil, err
		}
		if boosted.NFeatures != len(pre.FeatureNames()) {
			return nil, &StartupError{
				Artifact: common.ModelXGBoost,
				Path:     paths.XGBoost,
				Err:      fmt.Errorf("classifier expects %d features, preprocessor emits %d", boosted.NFeatures, len(pre.FeatureNames())),
			}
		}
		s.register(common.ModelXGBoost, common.ModelXGBoost, boosted, boostedInfo)
	} else {
		log.Warn().
			Str("model", common.ModelXGBoost).
			Str("path", paths.XGBoost).
			Str("served_by", common.ModelForest).
			Msg("gradient-boosted artifact not found, model id aliases the forest classifier")
		s.register(common.ModelXGBoost, common.ModelForest, forest, forestInfo)
	}

	log.Info().
		Str("preprocessor", paths.Preprocessor).
		Int("features", len(pre.FeatureNames())).
		Strs("models", s.ModelIDs()).
		Msg("artifacts loaded")

	return s, nil
}

func (s *Store) register(id, servedBy string, c Classifier, info ArtifactInfo) {
	s.models[id] = Model{ID: id, ServedBy: servedBy, Classifier: c}
	info.ServedBy = servedBy
	info.Aliased = id != servedBy
	if c != nil {
		info.Kind = c.Kind()
	}
	s.info.Models[id] = info
}

// Preprocessor returns the shared feature pipeline.
func (s *Store) Preprocessor() Preprocessor {
	return s.preprocessor
}

// Model looks up a registry entry by model id.
func (s *Store) Model(id string) (Model, bool) {
	m, ok := s.models[id]
	return m, ok
}

// ModelIDs lists registered model ids in sorted order.
func (s *Store) ModelIDs() []string {
	ids := make([]string, 0, len(s.models))
	for id := range s.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Info returns a copy of the load summary.
func (s *Store) Info() Info {
	out := s.info
	out.Models = make(map[string]ArtifactInfo, len(s.info.Models))
	for k, v := range s.info.Models {
		out.Models[k] = v
	}
	return out
}

func loadEnsemble(name, path string) (*TreeEnsemble, ArtifactInfo, error) {
	var e TreeEnsemble
	info, err := readArtifact(name, path, &e)
	if err != nil {
		return nil, ArtifactInfo{}, err
	}
	if err := e.Validate(); err != nil {
		return nil, ArtifactInfo{}, &StartupError{Artifact: name, Path: path, Err: err}
	}
	info.Metadata = e.Meta
	return &e, info, nil
}

// readArtifact decodes the JSON document at path into v and fingerprints it.
func readArtifact(name, path string, v any) (ArtifactInfo, error) {
	if path == "" {
		return ArtifactInfo{}, &StartupError{Artifact: name, Path: path, Err: fmt.Errorf("path is not configured")}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ArtifactInfo{}, &StartupError{Artifact: name, Path: path, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return ArtifactInfo{}, &StartupError{Artifact: name, Path: path, Err: fmt.Errorf("decode: %w", err)}
	}

	sum := sha256.Sum256(data)
	return ArtifactInfo{Path: path, SHA256: hex.EncodeToString(sum[:])}, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
