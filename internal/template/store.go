package template

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// Store persists one template as a JSON file, falling back to a built-in
// default when no file exists or it cannot be parsed.
type Store struct {
	path        string
	fallback    Template
	placeholder string
	logger      *slog.Logger
	mu          sync.Mutex
}

func NewStore(path string, fallback Template, placeholder string, logger *slog.Logger) *Store {
	return &Store{
		path:        path,
		fallback:    fallback,
		placeholder: placeholder,
		logger:      logger,
	}
}

func (s *Store) Get() Template {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("Failed to load template file",
				slog.String("path", s.path),
				slog.String("error", err.Error()),
			)
		}
		return s.fallback
	}

	var tmpl Template
	if err := json.Unmarshal(data, &tmpl); err != nil {
		s.logger.Error("Failed to parse template file",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return s.fallback
	}

	return tmpl
}

// Save validates the placeholder before writing; an unusable template is
// never persisted.
func (s *Store) Save(tmpl Template) error {
	if err := tmpl.Validate(s.placeholder); err != nil {
		return err
	}

	data, err := json.MarshalIndent(tmpl, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode template: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write template file: %w", err)
	}

	return nil
}
