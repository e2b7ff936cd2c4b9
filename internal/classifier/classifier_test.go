package classifier

import (
	"testing"

	"github.com/genricoloni/backdrop/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		path string
		want domain.Kind
	}{
		{name: "JPEG", path: "/media/usb/photo.jpg", want: domain.KindStatic},
		{name: "JPEG long extension", path: "photo.jpeg", want: domain.KindStatic},
		{name: "PNG", path: "a.png", want: domain.KindStatic},
		{name: "BMP", path: "a.bmp", want: domain.KindStatic},
		{name: "WebP", path: "a.webp", want: domain.KindStatic},
		{name: "GIF", path: "loop.gif", want: domain.KindAnimatedImage},
		{name: "MP4", path: "clip.mp4", want: domain.KindVideo},
		{name: "WebM", path: "clip.webm", want: domain.KindVideo},
		{name: "AVI", path: "clip.avi", want: domain.KindVideo},
		{name: "MKV", path: "clip.mkv", want: domain.KindVideo},
		{name: "Uppercase extension", path: "/tmp/CLIP.MP4", want: domain.KindVideo},
		{name: "Mixed case GIF", path: "x.GiF", want: domain.KindAnimatedImage},
		{name: "Unknown extension", path: "notes.txt", want: domain.KindStatic},
		{name: "No extension", path: "/tmp/wallpaper", want: domain.KindStatic},
		{name: "Empty path", path: "", want: domain.KindStatic},
		{name: "Dot directory", path: "/home/u/.mp4/file", want: domain.KindStatic},
		{name: "Trailing dot", path: "clip.", want: domain.KindStatic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.path)
			if got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.path, got, tt.want)
			}
			if again := Classify(tt.path); again != got {
				t.Errorf("Classify(%q) changed between calls: %s then %s", tt.path, got, again)
			}
		})
	}
}

func TestIsSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.jpg", true},
		{"a.GIF", true},
		{"a.webm", true},
		{"a.txt", false},
		{"a", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsSupported(tt.path); got != tt.want {
			t.Errorf("IsSupported(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
