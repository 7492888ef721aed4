package explorer

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/mj1618/swipegen/internal/platform"
)

// Shot is a captured screen and the file it was saved to.
type Shot struct {
	Image image.Image
	Path  string
}

// Store captures screenshots and writes them as <dir>/<name>_<unixms>.png.
type Store struct {
	dir    string
	screen platform.Screenshotter
	now    func() time.Time
}

// NewStore returns a Store writing into dir. The directory is created on
// first capture.
func NewStore(dir string, screen platform.Screenshotter) *Store {
	return &Store{dir: dir, screen: screen, now: time.Now}
}

// Dir returns the directory shots are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Capture takes a screenshot and saves it under name.
func (s *Store) Capture(ctx context.Context, name string) (*Shot, error) {
	img, err := s.screen.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("screenshot %s: %w", name, err)
	}
	if img == nil {
		return nil, fmt.Errorf("screenshot %s: empty image", name)
	}
	path, err := s.write(name, img)
	if err != nil {
		return nil, err
	}
	return &Shot{Image: img, Path: path}, nil
}

func (s *Store) write(name string, img image.Image) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%d.png", name, s.now().UnixMilli()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}
