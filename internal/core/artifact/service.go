package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"verifront/internal/config"
	"verifront/internal/core/jobsource"
	"verifront/internal/core/record"
	"verifront/internal/logger"
	"verifront/internal/platform/storage"
	"verifront/internal/utils/snapshot"
)

// PersistenceError means one entity's artifact could not be written or
// moved. It is reported per entity and never aborts the batch: artifacts
// already written for other entities are untouched.
type PersistenceError struct {
	Entity string
	Op     string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s for %s: %v", e.Op, e.Entity, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

type Service struct {
	log   *logger.Logger
	cfg   config.Config
	store *storage.Service
}

func NewService(cfg config.Config, store *storage.Service) *Service {
	return &Service{log: logger.New("ArtifactService"), cfg: cfg, store: store}
}

// RecordFileName derives the deterministic artifact name for an entity.
// Collisions between entities sharing a name are the caller's problem to
// avoid; the sink never deduplicates.
func RecordFileName(entityName string) string {
	return entityName + "_frontend_data.json"
}

// Write serializes one verification record to its per-entity artifact.
// The write is atomic (temp file + rename in the same directory) so a
// failure mid-write can never corrupt a previously written artifact.
func (s *Service) Write(entity jobsource.EntityJob, rec *record.VerificationRecord) (string, error) {
	dir := filepath.Join(s.cfg.DataDir, "extracted")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &PersistenceError{Entity: entity.Name, Op: "mkdir", Err: err}
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", &PersistenceError{Entity: entity.Name, Op: "encode", Err: err}
	}

	path := filepath.Join(dir, RecordFileName(entity.Name))
	if err := writeAtomic(path, data); err != nil {
		return "", &PersistenceError{Entity: entity.Name, Op: "write", Err: err}
	}
	s.log.LogInfof("wrote %s (%d fields extracted)", path, rec.Metadata.FieldsExtracted)

	// Remote copy is best-effort; the local artifact is the source of truth.
	if s.store != nil && s.store.Enabled() {
		if err := s.store.UploadRecord(RecordFileName(entity.Name), data); err != nil {
			s.log.LogWarnf("remote upload failed for %s: %v", entity.Name, err)
		}
	}
	return path, nil
}

// WriteSnapshot saves a markdown rendition of the extracted page for
// operator audit. Only called when snapshots are enabled in config.
func (s *Service) WriteSnapshot(entity jobsource.EntityJob, html string) error {
	rendered := snapshot.Render(html)
	if rendered == "" {
		return nil
	}
	dir := filepath.Join(s.cfg.DataDir, "extracted")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistenceError{Entity: entity.Name, Op: "mkdir", Err: err}
	}
	name := entity.Name + "_page.md"
	path := filepath.Join(dir, name)
	if err := writeAtomic(path, []byte(rendered)); err != nil {
		return &PersistenceError{Entity: entity.Name, Op: "snapshot", Err: err}
	}

	if s.store != nil && s.store.Enabled() {
		if err := s.store.UploadRecord(name, []byte(rendered)); err != nil {
			s.log.LogWarnf("remote snapshot upload failed for %s: %v", entity.Name, err)
		}
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// RelocateResult reports the artifact relocation task outcome. Structured
// instead of thrown: the external workflow decides what a failure means.
type RelocateResult struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RelocateLatest moves the most recently modified downloadable memo out of
// the staging downloads directory into targetFolder under a deterministic
// per-entity name.
func (s *Service) RelocateLatest(entityName, targetFolder string) RelocateResult {
	matches, err := filepath.Glob(filepath.Join(s.cfg.DownloadsDir, "*.pdf"))
	if err != nil || len(matches) == 0 {
		return RelocateResult{Error: fmt.Sprintf("no downloadable files in %s", s.cfg.DownloadsDir)}
	}

	sort.Slice(matches, func(i, j int) bool {
		fi, erri := os.Stat(matches[i])
		fj, errj := os.Stat(matches[j])
		if erri != nil || errj != nil {
			return erri == nil
		}
		return fi.ModTime().After(fj.ModTime())
	})
	newest := matches[0]

	if err := os.MkdirAll(targetFolder, 0o755); err != nil {
		return RelocateResult{Error: fmt.Sprintf("create target folder: %v", err)}
	}

	filename := entityName + "_memo.pdf"
	target := filepath.Join(targetFolder, filename)
	if err := os.Rename(newest, target); err != nil {
		return RelocateResult{Error: fmt.Sprintf("move %s: %v", filepath.Base(newest), err)}
	}

	s.log.LogInfof("relocated %s -> %s", filepath.Base(newest), target)
	return RelocateResult{Success: true, Filename: filename}
}
