package overlay

import (
	"errors"
	"os"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/render"
)

// buildRequest describes the view to build
type buildRequest struct {
	path  string
	kind  domain.Kind
	token uint64
	cfg   domain.Configuration
}

// builder creates the view for one media kind
type builder func(m *Manager, req buildRequest) (domain.View, error)

var builders = map[domain.Kind]builder{
	domain.KindStatic:        buildImage,
	domain.KindAnimatedImage: buildImage,
	domain.KindVideo:         buildVideo,
}

func buildImage(m *Manager, req buildRequest) (domain.View, error) {
	frames, err := render.LoadFrames(req.path, req.kind)
	if err != nil {
		return nil, err
	}
	return m.display.NewImageView(frames, req.cfg.ScaleMode)
}

// buildVideo only checks the file; decoding starts once the surface exists
func buildVideo(m *Manager, req buildRequest) (domain.View, error) {
	f, err := os.Open(req.path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	f.Close()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errors.New("path is a directory")
	}

	return m.display.NewSurfaceView(surfaceListener{token: req.token, post: m.post})
}
