package report

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"
)

// AssetSource opens static assets such as letterhead logos.
type AssetSource interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Logo is a decoded, re-encoded PNG ready to embed.
type Logo struct {
	Key    string
	PNG    []byte
	Width  int
	Height int
}

// Empty reports whether the logo slot is unused.
func (l Logo) Empty() bool {
	return len(l.PNG) == 0
}

// LogoLoader fetches the left and right letterhead logos.
type LogoLoader struct {
	Source AssetSource
	Left   string
	Right  string
	// MaxPixels bounds the longest edge of each logo after resizing.
	MaxPixels int
}

// Load fetches both logos concurrently and returns once both are decoded.
// An empty key leaves that slot blank.
func (l *LogoLoader) Load(ctx context.Context) ([2]Logo, error) {
	var logos [2]Logo
	if l == nil || l.Source == nil {
		return logos, nil
	}
	g, ctx := errgroup.WithContext(ctx)
	for i, key := range [2]string{l.Left, l.Right} {
		if key == "" {
			continue
		}
		g.Go(func() error {
			logo, err := l.load(ctx, key)
			if err != nil {
				return err
			}
			logos[i] = logo
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return [2]Logo{}, err
	}
	return logos, nil
}

func (l *LogoLoader) load(ctx context.Context, key string) (Logo, error) {
	rc, err := l.Source.Open(ctx, key)
	if err != nil {
		return Logo{}, fmt.Errorf("report: open logo %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()

	img, err := imaging.Decode(rc)
	if err != nil {
		return Logo{}, fmt.Errorf("report: decode logo %s: %w", key, err)
	}
	limit := l.MaxPixels
	if limit <= 0 {
		limit = 256
	}
	b := img.Bounds()
	if b.Dx() > limit || b.Dy() > limit {
		img = imaging.Fit(img, limit, limit, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return Logo{}, fmt.Errorf("report: encode logo %s: %w", key, err)
	}
	b = img.Bounds()
	return Logo{Key: key, PNG: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}
