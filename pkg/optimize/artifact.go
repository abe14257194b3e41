package optimize

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/peter-kozarec/foresight/pkg/common"
)

// Artifact is the serialized state of one compiled module version, written
// beside the registry row so a promoted version can be reloaded later.
type Artifact struct {
	ModuleName        string    `json:"module_name"`
	Version           string    `json:"version"`
	Personality       string    `json:"personality"`
	ModelProvider     string    `json:"model_provider"`
	ModelName         string    `json:"model_name"`
	BaselineAccuracy  float64   `json:"baseline_accuracy"`
	OptimizedAccuracy float64   `json:"optimized_accuracy"`
	ImprovementPct    float64   `json:"improvement_pct"`
	OptimizationDate  time.Time `json:"optimization_date"`
	Instructions      string    `json:"instructions,omitempty"`
}

// ArtifactStore persists artifacts as JSON files under a root directory,
// one file per (module, version).
type ArtifactStore struct {
	root string
}

func NewArtifactStore(root string) *ArtifactStore {
	return &ArtifactStore{root: root}
}

func (s *ArtifactStore) path(moduleName, version string) string {
	return filepath.Join(s.root, moduleName, version+".json")
}

// Save writes the artifact and returns its path.
func (s *ArtifactStore) Save(artifact Artifact) (string, error) {
	path := s.path(artifact.ModuleName, artifact.Version)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

// Load reads the artifact back. common.ErrNotFound when the version was
// never saved.
func (s *ArtifactStore) Load(moduleName, version string) (Artifact, error) {
	data, err := os.ReadFile(s.path(moduleName, version))
	if errors.Is(err, os.ErrNotExist) {
		return Artifact{}, fmt.Errorf("artifact %s v%s: %w", moduleName, version, common.ErrNotFound)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("read artifact: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return Artifact{}, fmt.Errorf("unmarshal artifact: %w", err)
	}
	return artifact, nil
}
