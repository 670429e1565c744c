package appmanifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oshokin/javelin/internal/domain/release"
	"github.com/oshokin/javelin/internal/logger"
	"github.com/oshokin/javelin/internal/repository/atomicfile"
)

// DefaultPath is where the application config lives relative to the working directory.
const DefaultPath = "../src-tauri/tauri.conf.json"

// fileMode is applied when the config file is rewritten.
const fileMode = 0o644

var (
	// ErrMissingProductName is returned when package.productName is absent or empty.
	ErrMissingProductName = errors.New("package.productName is missing")
	// ErrMissingPackage is returned when the document has no package object.
	ErrMissingPackage = errors.New("package section is missing")
	// ErrMissingUpdater is returned when the document has no tauri.updater object.
	ErrMissingUpdater = errors.New("tauri.updater section is missing")
)

// AppManifest is the subset of the application config the release flow reads.
type AppManifest struct {
	ProductName string
	Version     string
	PublicKey   string
	Endpoints   []string
}

type document struct {
	Package struct {
		ProductName string `json:"productName"`
		Version     string `json:"version"`
	} `json:"package"`
	Tauri struct {
		Updater struct {
			PublicKey string   `json:"pubkey"`
			Endpoints []string `json:"endpoints"`
		} `json:"updater"`
	} `json:"tauri"`
}

// Store edits one application config file.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store bound to path.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}

	return &Store{
		path: filepath.Clean(path),
	}
}

// Path returns the file the store edits.
func (s *Store) Path() string {
	return s.path
}

// Load reads the application config and validates the version.
func (s *Store) Load(_ context.Context) (*AppManifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read app config: %w", err)
	}

	var doc document
	if err = json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode app config %s: %w", s.path, err)
	}

	if doc.Package.ProductName == "" {
		return nil, fmt.Errorf("%s: %w", s.path, ErrMissingProductName)
	}

	if _, err = release.ParseVersion(doc.Package.Version); err != nil {
		return nil, fmt.Errorf("%s: package.version: %w", s.path, err)
	}

	return &AppManifest{
		ProductName: doc.Package.ProductName,
		Version:     doc.Package.Version,
		PublicKey:   doc.Tauri.Updater.PublicKey,
		Endpoints:   doc.Tauri.Updater.Endpoints,
	}, nil
}

// Version returns the current package.version.
func (s *Store) Version(ctx context.Context) (string, error) {
	m, err := s.Load(ctx)
	if err != nil {
		return "", err
	}

	return m.Version, nil
}

// Persist writes version into package.version.
func (s *Store) Persist(ctx context.Context, version string) error {
	if _, err := release.ParseVersion(version); err != nil {
		return err
	}

	err := s.edit(func(doc map[string]any) error {
		pkg, ok := doc["package"].(map[string]any)
		if !ok {
			return ErrMissingPackage
		}

		pkg["version"] = version

		return nil
	})
	if err != nil {
		return err
	}

	logger.DebugKV(ctx, "Persisted app version", "path", s.path, "version", version)

	return nil
}

// Rollback restores previous as package.version. Failures are logged, never returned.
func (s *Store) Rollback(ctx context.Context, previous string) {
	if err := s.Persist(ctx, previous); err != nil {
		logger.ErrorKV(ctx, "Failed to roll back app version",
			"path", s.path,
			"version", previous,
			"error", err)

		return
	}

	logger.InfoKV(ctx, "Rolled back app version", "version", previous)
}

// SetUpdaterEndpoint replaces tauri.updater.endpoints with the single url.
func (s *Store) SetUpdaterEndpoint(ctx context.Context, url string) error {
	err := s.edit(func(doc map[string]any) error {
		tauri, ok := doc["tauri"].(map[string]any)
		if !ok {
			return ErrMissingUpdater
		}

		updater, ok := tauri["updater"].(map[string]any)
		if !ok {
			return ErrMissingUpdater
		}

		updater["endpoints"] = []string{url}

		return nil
	})
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Updater endpoint set", "path", s.path, "endpoint", url)

	return nil
}

// edit loads the raw document, applies fn and writes it back.
func (s *Store) edit(fn func(doc map[string]any) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read app config: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var doc map[string]any
	if err = decoder.Decode(&doc); err != nil {
		return fmt.Errorf("decode app config %s: %w", s.path, err)
	}

	if err = fn(doc); err != nil {
		return fmt.Errorf("%s: %w", s.path, err)
	}

	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	if err = encoder.Encode(doc); err != nil {
		return fmt.Errorf("encode app config: %w", err)
	}

	if err = atomicfile.Write(s.path, buf.Bytes(), fileMode); err != nil {
		return fmt.Errorf("write app config: %w", err)
	}

	return nil
}
