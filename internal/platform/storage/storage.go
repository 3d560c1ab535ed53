package storage

import (
	"bytes"
	"fmt"
	"path/filepath"

	"verifront/internal/config"
	"verifront/internal/logger"

	"github.com/antoineross/supabase-go"
	storage_go "github.com/supabase-community/storage-go"
)

// Service uploads produced verification-record artifacts to a Supabase
// storage bucket so operators can fetch them without shell access to the
// extraction host. Upload is best-effort outside production: a missing or
// failing bucket never blocks the local write.
type Service struct {
	log    *logger.Logger
	cfg    config.Config
	client *supabase.Client
}

func New(cfg config.Config) (*Service, error) {
	s := &Service{log: logger.New("Storage"), cfg: cfg}

	if cfg.AppEnv == "production" {
		if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" || cfg.SupabaseBucket == "" {
			return nil, fmt.Errorf("production environment requires Supabase configuration: NEXT_PUBLIC_SUPABASE_URL, SUPABASE_SERVICE_ROLE_KEY, and SUPABASE_STORAGE_BUCKET must be set")
		}
	}

	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey != "" {
		client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, nil)
		if err != nil {
			if cfg.AppEnv == "production" {
				return nil, fmt.Errorf("failed to initialize Supabase client: %w", err)
			}
			s.log.LogWarnf("failed to initialize Supabase client: %v", err)
		} else {
			s.client = client
		}
	}
	return s, nil
}

// Enabled reports whether remote upload is configured.
func (s *Service) Enabled() bool {
	return s.client != nil && s.cfg.SupabaseBucket != ""
}

// UploadRecord stores an artifact under extracted/<name> in the bucket.
// Record artifacts are JSON; page snapshots are markdown.
func (s *Service) UploadRecord(name string, data []byte) error {
	if !s.Enabled() {
		return fmt.Errorf("supabase storage not configured")
	}
	bucketPath := filepath.ToSlash(filepath.Join("extracted", name))
	contentType := contentTypeFor(name)
	reader := bytes.NewReader(data)
	if _, err := s.client.Storage.UploadFile(s.cfg.SupabaseBucket, bucketPath, reader, storage_go.FileOptions{ContentType: &contentType}); err != nil {
		return fmt.Errorf("supabase upload %s: %w", bucketPath, err)
	}
	s.log.LogDebugf("uploaded %s to bucket %s", bucketPath, s.cfg.SupabaseBucket)
	return nil
}

func contentTypeFor(name string) string {
	if filepath.Ext(name) == ".md" {
		return "text/markdown"
	}
	return "application/json"
}
