// Package artifact stores job outputs and uploads as flat files under a data
// directory, keyed by object name.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("artifact not found")
	ErrInvalidName = errors.New("invalid artifact name")
)

// Info describes one stored artifact.
type Info struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

type Store struct {
	root   string
	logger *slog.Logger
}

func NewStore(root string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &Store{root: root, logger: logger}, nil
}

// validName rejects anything that could escape the data directory. Object
// names are flat; subdirectories are not part of the model.
func validName(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, `/\`) {
		return ErrInvalidName
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.root, name)
}

func (s *Store) Put(name string, r io.Reader) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}

	f, err := os.Create(s.path(name))
	if err != nil {
		return "", fmt.Errorf("failed to create artifact: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	return name, nil
}

func (s *Store) PutBytes(name string, data []byte) (string, error) {
	return s.Put(name, strings.NewReader(string(data)))
}

// PutFile copies a local file into the store under the given object name.
func (s *Store) PutFile(localPath, name string) (string, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	return s.Put(name, src)
}

func (s *Store) Open(name string) (*os.File, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	return f, nil
}

func (s *Store) ReadString(name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}
	return string(data), nil
}

func (s *Store) Exists(name string) bool {
	if err := validName(name); err != nil {
		return false
	}
	_, err := os.Stat(s.path(name))
	return err == nil
}

func (s *Store) Remove(name string) error {
	if err := validName(name); err != nil {
		return err
	}

	if err := os.Remove(s.path(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to remove artifact: %w", err)
	}
	return nil
}

// RemoveAll removes the named artifacts best-effort, logging failures instead
// of propagating them.
func (s *Store) RemoveAll(names []string) {
	for _, name := range names {
		if err := s.Remove(name); err != nil && !errors.Is(err, ErrNotFound) {
			s.logger.Warn("Failed to remove artifact",
				slog.String("artifact", name),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	infos := make([]Info, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Name:         entry.Name(),
			Size:         fi.Size(),
			LastModified: fi.ModTime(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})

	return infos, nil
}
