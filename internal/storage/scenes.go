package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Dreyzab/grenzwanderer-sub000/pkg/qr"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/scene"
)

// FileSource loads scenes from JSON files in <dataDir>/scenes. It is
// one implementation of the scene.Source collaborator; the engine does
// not care whether scenes come from disk or a remote store.
type FileSource struct {
	dataDir string
	logger  *slog.Logger
}

var _ scene.Source = (*FileSource)(nil)

func NewFileSource(dataDir string, logger *slog.Logger) *FileSource {
	if dataDir == "" {
		dataDir = "./data"
	}
	return &FileSource{dataDir: dataDir, logger: logger}
}

// Load reads <dataDir>/scenes/<sceneID>.json. A missing file maps to
// scene.ErrNotFound.
func (f *FileSource) Load(ctx context.Context, sceneID string) (*scene.Scene, error) {
	// Scene IDs come from content and scanned codes; never let them
	// escape the scenes directory.
	if sceneID == "" || strings.ContainsAny(sceneID, "/\\.") {
		return nil, fmt.Errorf("invalid scene id %q: %w", sceneID, scene.ErrNotFound)
	}

	path := filepath.Join(f.dataDir, "scenes", sceneID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("scene %q: %w", sceneID, scene.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}

	var s scene.Scene
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scene %q: %w", sceneID, err)
	}
	s.ID = sceneID // Filename overrides any id in the JSON

	return &s, nil
}

// ListScenes returns the scene IDs available in the data dir.
func (f *FileSource) ListScenes() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(f.dataDir, "scenes"))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read scenes directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}
	return ids, nil
}

// LoadCodes reads the QR binding table from <dataDir>/codes.json,
// falling back to the built-in table when the file does not exist.
// Keys are normalized on load.
func LoadCodes(dataDir string, logger *slog.Logger) (qr.Table, error) {
	path := filepath.Join(dataDir, "codes.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no codes.json, using default code table")
			return qr.DefaultTable(), nil
		}
		return nil, fmt.Errorf("failed to read codes file: %w", err)
	}

	var raw map[string]qr.Binding
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal codes file: %w", err)
	}

	table := make(qr.Table, len(raw))
	for code, binding := range raw {
		table[qr.Normalize(code)] = binding
	}
	return table, nil
}
