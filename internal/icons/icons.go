// Package icons resolves application icons from desktop entries.
package icons

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"gopkg.in/ini.v1"

	_ "image/png"
)

var iconSystemDirs = []string{
	"/usr/share/icons/hicolor/256x256/apps",
	"/usr/share/icons/hicolor/48x48/apps",
	"/usr/share/pixmaps",
}

var iconUserDirs = []string{".local/share/icons", ".icons"}

var desktopSystemDirs = []string{"/usr/share/applications"}

var desktopUserDirs = []string{".local/share/applications"}

// resolver finds the icon image for an app id by scanning desktop
// entries and icon directories.
type resolver struct {
	iconDirs    []string
	desktopDirs []string
}

func defaultResolver() *resolver {
	r := &resolver{
		iconDirs:    append([]string(nil), iconSystemDirs...),
		desktopDirs: append([]string(nil), desktopSystemDirs...),
	}
	if home, err := os.UserHomeDir(); err == nil {
		for _, dir := range iconUserDirs {
			r.iconDirs = append(r.iconDirs, filepath.Join(home, dir))
		}
		for _, dir := range desktopUserDirs {
			r.desktopDirs = append(r.desktopDirs, filepath.Join(home, dir))
		}
	}
	return r
}

func (r *resolver) desktopFiles() []string {
	var paths []string
	for _, dir := range r.desktopDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".desktop" {
				continue
			}
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	return paths
}

// iconForAppID finds the desktop entry whose file stem or Exec command
// matches the app id and loads its Icon image.
func (r *resolver) iconForAppID(appID string) (image.Image, error) {
	for _, desktopFile := range r.desktopFiles() {
		entry, err := ini.Load(desktopFile)
		if err != nil {
			continue
		}

		stem := strings.TrimSuffix(filepath.Base(desktopFile), ".desktop")
		exec := entry.Section("Desktop Entry").Key("Exec").String()
		if stem != appID && !execMatchesAppID(exec, appID) {
			continue
		}

		iconValue := entry.Section("Desktop Entry").Key("Icon").String()
		iconPath := r.resolveIconPath(iconValue)
		if iconPath == "" {
			continue
		}
		img, err := readImage(iconPath)
		if err != nil {
			continue
		}
		return img, nil
	}
	return nil, fmt.Errorf("no icon for app id %q", appID)
}

// execMatchesAppID compares the first Exec token against the app id,
// both verbatim and by its path stem.
func execMatchesAppID(exec, appID string) bool {
	fields := strings.Fields(exec)
	if len(fields) == 0 {
		return false
	}
	token := strings.Trim(fields[0], `"`)
	if token == appID {
		return true
	}
	base := filepath.Base(token)
	return strings.TrimSuffix(base, filepath.Ext(base)) == appID
}

// resolveIconPath maps a desktop entry Icon value to a file on disk.
// Absolute paths are used as-is, names are searched in the icon dirs.
func (r *resolver) resolveIconPath(iconValue string) string {
	iconValue = strings.TrimSpace(iconValue)
	if iconValue == "" {
		return ""
	}

	if filepath.IsAbs(iconValue) {
		if _, err := os.Stat(iconValue); err == nil {
			return iconValue
		}
		return ""
	}

	if filepath.Ext(iconValue) != "" {
		return r.findIconFile(iconValue)
	}
	return r.findIconFile(iconValue + ".png")
}

func (r *resolver) findIconFile(fileName string) string {
	for _, dir := range r.iconDirs {
		path := filepath.Join(dir, fileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func readImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// scaled returns the icon as RGBA with the given square size.
func scaled(src image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
