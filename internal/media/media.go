// Package media stores uploaded player images and franchise logos and
// hands back the URLs under which they are served.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/kameshai/premier-auction/internal/config"
)

// Store persists uploaded binary assets. Uploads must complete before
// the record referencing them is created, so a failed upload blocks the
// whole registration.
type Store interface {
	// UploadPlayerImage stores a player image under a timestamped key
	// derived from the original filename and returns its serving URL.
	UploadPlayerImage(ctx context.Context, filename string, r io.Reader) (string, error)
	// UploadFranchiseLogo stores a franchise logo keyed by franchise id
	// and returns its serving URL.
	UploadFranchiseLogo(ctx context.Context, franchiseID string, r io.Reader) (string, error)
}

// FileStore keeps assets on the local filesystem under a root
// directory, mirroring the layout of the bucket it stands in for:
// players/<timestamp>-<name> and teams/<franchise-id>.png.
type FileStore struct {
	root    string
	baseURL string
	clock   clockwork.Clock
}

// NewFileStore creates a FileStore and its directory layout.
func NewFileStore(cfg config.MediaConfig, clk clockwork.Clock) (*FileStore, error) {
	for _, dir := range []string{"players", "teams"} {
		if err := os.MkdirAll(filepath.Join(cfg.Root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("creating media directory: %w", err)
		}
	}
	return &FileStore{
		root:    cfg.Root,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		clock:   clk,
	}, nil
}

func (s *FileStore) UploadPlayerImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	name := fmt.Sprintf("%d-%s", s.clock.Now().UnixMilli(), sanitize(filename))
	return s.write(ctx, path.Join("players", name), r)
}

func (s *FileStore) UploadFranchiseLogo(ctx context.Context, franchiseID string, r io.Reader) (string, error) {
	return s.write(ctx, path.Join("teams", sanitize(franchiseID)+".png"), r)
}

func (s *FileStore) write(ctx context.Context, key string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(s.root, filepath.FromSlash(key))
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("creating media file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("writing media file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing media file: %w", err)
	}

	return s.baseURL + "/" + key, nil
}

// Handler serves stored assets under the configured base URL.
func (s *FileStore) Handler() http.Handler {
	return http.StripPrefix(s.baseURL+"/", http.FileServer(http.Dir(s.root)))
}

// sanitize strips path separators and parent references so an uploaded
// filename cannot escape the media root.
func sanitize(name string) string {
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == string(filepath.Separator) {
		return "upload"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '-'
		}
		return r
	}, name)
}
