package artifact_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"churn-detection/internal/artifact"
	"churn-detection/internal/artifact/artifacttest"
	"churn-detection/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_AllArtifacts(t *testing.T) {
	paths := artifacttest.Write(t, t.TempDir(), true)

	store, err := artifact.Load(paths)
	require.NoError(t, err)

	assert.Equal(t, []string{common.ModelForest, common.ModelXGBoost}, store.ModelIDs())
	assert.Len(t, store.Preprocessor().FeatureNames(), artifacttest.NumFeatures)

	forest, ok := store.Model(common.ModelForest)
	require.True(t, ok)
	assert.False(t, forest.Aliased())
	assert.Equal(t, artifact.KindRandomForest, forest.Classifier.Kind())

	boosted, ok := store.Model(common.ModelXGBoost)
	require.True(t, ok)
	assert.False(t, boosted.Aliased())
	assert.Equal(t, common.ModelXGBoost, boosted.ServedBy)
	assert.Equal(t, artifact.KindGradientBoosting, boosted.Classifier.Kind())

	info := store.Info()
	assert.Equal(t, paths.Preprocessor, info.Preprocessor.Path)
	assert.Len(t, info.Preprocessor.SHA256, 64)
	assert.Equal(t, "pre-1", info.Preprocessor.Metadata.Version)
	assert.Equal(t, "xgb-1", info.Models[common.ModelXGBoost].Metadata.Version)
	assert.False(t, info.LoadedAt.IsZero())
}

func TestLoad_MissingBoostedAliasesForest(t *testing.T) {
	paths := artifacttest.Write(t, t.TempDir(), false)

	store, err := artifact.Load(paths)
	require.NoError(t, err)

	m, ok := store.Model(common.ModelXGBoost)
	require.True(t, ok)
	assert.True(t, m.Aliased())
	assert.Equal(t, common.ModelForest, m.ServedBy)
	assert.Equal(t, artifact.KindRandomForest, m.Classifier.Kind())

	info := store.Info().Models[common.ModelXGBoost]
	assert.True(t, info.Aliased)
	assert.Equal(t, common.ModelForest, info.ServedBy)
	assert.Equal(t, paths.Forest, info.Path)
}

func TestLoad_StartupErrors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T, p artifact.Paths) artifact.Paths
		artifact string
	}{
		{
			name: "missing preprocessor",
			setup: func(t *testing.T, p artifact.Paths) artifact.Paths {
				require.NoError(t, os.Remove(p.Preprocessor))
				return p
			},
			artifact: "preprocessor",
		},
		{
			name: "missing forest",
			setup: func(t *testing.T, p artifact.Paths) artifact.Paths {
				require.NoError(t, os.Remove(p.Forest))
				return p
			},
			artifact: common.ModelForest,
		},
		{
			name: "unconfigured forest",
			setup: func(t *testing.T, p artifact.Paths) artifact.Paths {
				p.Forest = ""
				return p
			},
			artifact: common.ModelForest,
		},
		{
			name: "corrupt forest",
			setup: func(t *testing.T, p artifact.Paths) artifact.Paths {
				require.NoError(t, os.WriteFile(p.Forest, []byte("\x80\x04pickle"), 0o600))
				return p
			},
			artifact: common.ModelForest,
		},
		{
			name: "invalid boosted",
			setup: func(t *testing.T, p artifact.Paths) artifact.Paths {
				b := artifacttest.Boosted()
				b.Trees = nil
				artifacttest.WriteJSON(t, p.XGBoost, b)
				return p
			},
			artifact: common.ModelXGBoost,
		},
		{
			name: "feature width mismatch",
			setup: func(t *testing.T, p artifact.Paths) artifact.Paths {
				f := artifacttest.Forest()
				f.NFeatures = 20
				artifacttest.WriteJSON(t, p.Forest, f)
				return p
			},
			artifact: common.ModelForest,
		},
		{
			name: "invalid preprocessor",
			setup: func(t *testing.T, p artifact.Paths) artifact.Paths {
				artifacttest.WriteJSON(t, p.Preprocessor, artifact.ColumnTransformer{})
				return p
			},
			artifact: "preprocessor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := tt.setup(t, artifacttest.Write(t, t.TempDir(), true))

			store, err := artifact.Load(paths)
			require.Error(t, err)
			assert.Nil(t, store)

			var se *artifact.StartupError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.artifact, se.Artifact)
		})
	}
}

func TestLoad_MissingFileUnwraps(t *testing.T) {
	dir := t.TempDir()
	paths := artifacttest.Write(t, dir, false)
	paths.Preprocessor = filepath.Join(dir, "nope.json")

	_, err := artifact.Load(paths)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "nope.json")
}

func TestNewStore(t *testing.T) {
	pre := artifacttest.Preprocessor()

	store := artifact.NewStore(pre, artifacttest.Forest(), nil)
	m, ok := store.Model(common.ModelXGBoost)
	require.True(t, ok)
	assert.True(t, m.Aliased())

	store = artifact.NewStore(pre, artifacttest.Forest(), artifacttest.Boosted())
	m, ok = store.Model(common.ModelXGBoost)
	require.True(t, ok)
	assert.False(t, m.Aliased())

	_, ok = store.Model("svm")
	assert.False(t, ok)
}

func TestStore_InfoIsACopy(t *testing.T) {
	store := artifacttest.Store(t, true)

	info := store.Info()
	delete(info.Models, common.ModelForest)

	assert.Contains(t, store.Info().Models, common.ModelForest)
}
