package icons

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writePNG(t *testing.T, path string, size int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 0xff, A: 0xff})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
}

func writeDesktopFile(t *testing.T, path, exec, icon string) {
	t.Helper()
	content := "[Desktop Entry]\nType=Application\nExec=" + exec + "\nIcon=" + icon + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func testResolver(t *testing.T) (*resolver, string, string) {
	t.Helper()
	iconDir := t.TempDir()
	desktopDir := t.TempDir()
	r := &resolver{
		iconDirs:    []string{iconDir},
		desktopDirs: []string{desktopDir},
	}
	return r, iconDir, desktopDir
}

func TestIconByFileStem(t *testing.T) {
	r, iconDir, desktopDir := testResolver(t)
	writePNG(t, filepath.Join(iconDir, "footerm.png"), 8)
	writeDesktopFile(t, filepath.Join(desktopDir, "footerm.desktop"), "/usr/bin/footerm-bin", "footerm")

	img, err := r.iconForAppID("footerm")
	if err != nil {
		t.Fatalf("iconForAppID failed: %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("icon width = %d, want 8", img.Bounds().Dx())
	}
}

func TestIconByExecToken(t *testing.T) {
	r, iconDir, desktopDir := testResolver(t)
	writePNG(t, filepath.Join(iconDir, "bar.png"), 8)
	writeDesktopFile(t, filepath.Join(desktopDir, "org.example.Bar.desktop"), "/usr/bin/barapp --flag %U", "bar")

	if _, err := r.iconForAppID("barapp"); err != nil {
		t.Fatalf("exec stem match failed: %v", err)
	}
	if _, err := r.iconForAppID("unrelated"); err == nil {
		t.Error("expected no icon for unmatched app id")
	}
}

func TestIconAbsolutePath(t *testing.T) {
	r, iconDir, desktopDir := testResolver(t)
	abs := filepath.Join(iconDir, "direct.png")
	writePNG(t, abs, 8)
	writeDesktopFile(t, filepath.Join(desktopDir, "direct.desktop"), "direct", abs)

	if _, err := r.iconForAppID("direct"); err != nil {
		t.Fatalf("absolute icon path failed: %v", err)
	}
}

func TestExecMatchesAppID(t *testing.T) {
	tests := []struct {
		exec  string
		appID string
		want  bool
	}{
		{"/usr/bin/kitty", "kitty", true},
		{`"/opt/app/kitty" --single-instance`, "kitty", true},
		{"kitty --class=foo", "kitty", true},
		{"/usr/bin/alacritty", "kitty", false},
		{"", "kitty", false},
	}
	for _, tt := range tests {
		if got := execMatchesAppID(tt.exec, tt.appID); got != tt.want {
			t.Errorf("execMatchesAppID(%q, %q) = %v, want %v", tt.exec, tt.appID, got, tt.want)
		}
	}
}

func TestResolveIconPathMissing(t *testing.T) {
	r, _, _ := testResolver(t)
	if got := r.resolveIconPath("nonexistent"); got != "" {
		t.Errorf("resolveIconPath = %q, want empty", got)
	}
	if got := r.resolveIconPath(""); got != "" {
		t.Errorf("resolveIconPath empty value = %q, want empty", got)
	}
}

func TestWorkerDeliversScaledIcon(t *testing.T) {
	iconDir := t.TempDir()
	desktopDir := t.TempDir()
	writePNG(t, filepath.Join(iconDir, "app.png"), 32)
	writeDesktopFile(t, filepath.Join(desktopDir, "app.desktop"), "app", "app")

	w := &Worker{
		resolver: &resolver{iconDirs: []string{iconDir}, desktopDirs: []string{desktopDir}},
		size:     16,
		requests: make(chan string, 8),
		results:  make(chan Result, 8),
		quit:     make(chan struct{}),
		seen:     make(map[string]struct{}),
	}
	go w.run()
	defer w.Stop()

	w.Lookup("app")
	select {
	case res := <-w.Results():
		if res.AppID != "app" {
			t.Errorf("AppID = %q, want app", res.AppID)
		}
		if res.Image.Bounds().Dx() != 16 || res.Image.Bounds().Dy() != 16 {
			t.Errorf("icon bounds = %v, want 16x16", res.Image.Bounds())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no icon result")
	}

	// Same app id again is deduplicated.
	w.Lookup("app")
	select {
	case <-w.Results():
		t.Error("duplicate lookup produced a second result")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWorkerSilentOnMissingIcon(t *testing.T) {
	w := &Worker{
		resolver: &resolver{iconDirs: []string{t.TempDir()}, desktopDirs: []string{t.TempDir()}},
		size:     16,
		requests: make(chan string, 8),
		results:  make(chan Result, 8),
		quit:     make(chan struct{}),
		seen:     make(map[string]struct{}),
	}
	go w.run()
	defer w.Stop()

	w.Lookup("ghost")
	select {
	case <-w.Results():
		t.Error("missing icon produced a result")
	case <-time.After(200 * time.Millisecond):
	}
}
