// Package library finds wallpaper media in library roots and caches their thumbnails.
package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/genricoloni/backdrop/internal/classifier"
	"github.com/genricoloni/backdrop/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Scanner lists supported media in library roots
type Scanner struct {
	logger   *zap.Logger
	notifier domain.Notifier
}

// NewScanner creates a scanner that reports each completed scan to notifier
func NewScanner(logger *zap.Logger, notifier domain.Notifier) *Scanner {
	return &Scanner{logger: logger, notifier: notifier}
}

// Scan lists the top level of each directory. Roots are scanned in parallel;
// unreadable roots are skipped. A ScanCompleted notification carries the total.
func (s *Scanner) Scan(ctx context.Context, dirs ...string) ([]domain.WallpaperItem, error) {
	roots := uniqueRoots(dirs)
	results := make([][]domain.WallpaperItem, len(roots))

	g, gctx := errgroup.WithContext(ctx)
	for i, root := range roots {
		g.Go(func() error {
			items, err := s.scanDir(gctx, root)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				s.logger.Warn("Skipping unreadable library root", zap.String("dir", root), zap.Error(err))
				return nil
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []domain.WallpaperItem
	for i, items := range results {
		if len(items) > 0 {
			s.logger.Debug("Found wallpapers", zap.String("dir", roots[i]), zap.Int("count", len(items)))
		}
		all = append(all, items...)
	}

	s.logger.Info("Library scan completed", zap.Int("roots", len(roots)), zap.Int("wallpapers", len(all)))
	s.notifier.Notify(domain.ScanCompleted(len(all)))
	return all, nil
}

func (s *Scanner) scanDir(ctx context.Context, dir string) ([]domain.WallpaperItem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var items []domain.WallpaperItem
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || !classifier.IsSupported(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Removed while listing
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		items = append(items, domain.WallpaperItem{
			Path:        path,
			DisplayName: entry.Name(),
			SizeBytes:   info.Size(),
			Kind:        classifier.Classify(path),
		})
	}
	return items, nil
}

// uniqueRoots cleans dirs and drops blanks and duplicates, keeping order
func uniqueRoots(dirs []string) []string {
	seen := make(map[string]bool, len(dirs))
	roots := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if strings.TrimSpace(d) == "" {
			continue
		}
		if abs, err := filepath.Abs(d); err == nil {
			d = abs
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		roots = append(roots, d)
	}
	return roots
}
