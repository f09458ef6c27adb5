package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	apperrors "github.com/deemusic/ytmp3-go/internal/errors"
	"github.com/deemusic/ytmp3-go/internal/security"
	"go.uber.org/zap"
)

// Slot is a scratch directory owned by exactly one request
type Slot struct {
	ID  string
	Dir string
}

// Path returns the artifact path for token inside the slot
func (s Slot) Path(token string) string {
	return filepath.Join(s.Dir, FileName(token))
}

// Pool hands out per-request scratch slots below the download folder and
// removes the ones left behind.
type Pool struct {
	root   string
	logger *zap.Logger

	mu     sync.Mutex
	active map[string]time.Time
}

// NewPool creates the download folder if needed and returns a pool rooted at it
func NewPool(root string, logger *zap.Logger) (*Pool, error) {
	if root == "" {
		return nil, fmt.Errorf("download folder cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, apperrors.NewFileSystemError("resolve download folder", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, apperrors.NewFileSystemError("create download folder", err)
	}

	return &Pool{
		root:   abs,
		logger: logger,
		active: make(map[string]time.Time),
	}, nil
}

// Root returns the absolute download folder
func (p *Pool) Root() string {
	return p.root
}

// Allocate creates the scratch slot for requestID. A requestID that is
// already in use or would escape the download folder is rejected.
func (p *Pool) Allocate(requestID string) (Slot, error) {
	if !security.IsValidName(requestID) {
		return Slot{}, apperrors.NewFileSystemError("allocate scratch slot", fmt.Errorf("invalid slot id %q", requestID))
	}

	dir, err := security.ValidateFilePath(p.root, requestID)
	if err != nil {
		return Slot{}, apperrors.NewFileSystemError("allocate scratch slot", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, taken := p.active[requestID]; taken {
		return Slot{}, apperrors.NewFileSystemError("allocate scratch slot", fmt.Errorf("slot %s already active", requestID))
	}
	if err := os.Mkdir(dir, 0755); err != nil {
		return Slot{}, apperrors.NewFileSystemError("allocate scratch slot", err)
	}

	p.active[requestID] = time.Now()
	return Slot{ID: requestID, Dir: dir}, nil
}

// Release removes the slot directory and everything in it
func (p *Pool) Release(slot Slot) error {
	p.mu.Lock()
	delete(p.active, slot.ID)
	p.mu.Unlock()

	if slot.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(slot.Dir); err != nil {
		return apperrors.NewFileSystemError("release scratch slot", err)
	}
	return nil
}

// Active returns the number of slots currently held by requests
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// Purge removes every inactive entry below the download folder. It is meant
// for startup, when nothing can legitimately be in use yet.
func (p *Pool) Purge() (int, error) {
	return p.sweep(func(os.FileInfo) bool { return true })
}

// Sweep removes inactive entries last modified more than maxAge ago
func (p *Pool) Sweep(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	return p.sweep(func(info os.FileInfo) bool {
		return info.ModTime().Before(cutoff)
	})
}

// Run sweeps stale entries every interval until ctx is done
func (p *Pool) Run(ctx context.Context, interval, maxAge time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := p.Sweep(maxAge)
			if err != nil {
				p.logger.Warn("Scratch sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				p.logger.Info("Removed stale scratch entries", zap.Int("count", removed))
			}
		}
	}
}

func (p *Pool) sweep(stale func(os.FileInfo) bool) (int, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return 0, apperrors.NewFileSystemError("read download folder", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	var firstErr error
	for _, entry := range entries {
		if _, busy := p.active[entry.Name()]; busy {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed concurrently.
			continue
		}
		if !stale(info) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(p.root, entry.Name())); err != nil {
			p.logger.Warn("Failed to remove scratch entry",
				zap.String("entry", entry.Name()),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}

	if firstErr != nil {
		return removed, apperrors.NewFileSystemError("sweep download folder", firstErr)
	}
	return removed, nil
}
