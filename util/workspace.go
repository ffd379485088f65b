package util

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Purpose directories under the workspace root. Every file inside them is
// prefixed with the owning job ID so a whole run can be removed by prefix.
const (
	DirImages = "images"
	DirAudio  = "audio"
	DirScenes = "scenes"
	DirFinal  = "final"
)

// Workspace owns the local temp tree for pipeline runs.
type Workspace struct {
	root string
}

// NewWorkspace creates the workspace root and its purpose directories.
func NewWorkspace(root string) (*Workspace, error) {
	w := &Workspace{root: root}
	for _, dir := range []string{DirImages, DirAudio, DirScenes, DirFinal} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			return nil, fmt.Errorf("create workspace dir %s: %w", dir, err)
		}
	}
	return w, nil
}

// Path returns the file path for one artifact of a job, e.g.
// Path(DirScenes, "42", "scene_0.mp4") -> <root>/scenes/42_scene_0.mp4.
func (w *Workspace) Path(dir, jobID, name string) string {
	return filepath.Join(w.root, dir, jobID+"_"+name)
}

// ScenePath returns the path for a per-scene artifact with an index suffix.
func (w *Workspace) ScenePath(dir, jobID string, index int, ext string) string {
	return w.Path(dir, jobID, fmt.Sprintf("scene_%d%s", index, ext))
}

// CleanupJob removes every file belonging to jobID from all purpose
// directories. Missing files are not an error; cleanup is best-effort and
// runs on both success and failure exit paths.
func (w *Workspace) CleanupJob(jobID string) {
	for _, dir := range []string{DirImages, DirAudio, DirScenes, DirFinal} {
		pattern := filepath.Join(w.root, dir, jobID+"_*")
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, path := range matches {
			if err := os.Remove(path); err != nil {
				zap.L().Warn("cleanup: remove failed",
					zap.String("job_id", jobID), zap.String("path", path), zap.Error(err))
			}
		}
	}
}
