package poster

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontSet holds the regular and bold typefaces and caches faces per size
type FontSet struct {
	regular *opentype.Font
	bold    *opentype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

type faceKey struct {
	size float64
	bold bool
}

// DefaultFonts uses the Go fonts bundled with x/image
func DefaultFonts() *FontSet {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		panic(fmt.Sprintf("bundled regular font: %v", err))
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		panic(fmt.Sprintf("bundled bold font: %v", err))
	}
	return &FontSet{regular: regular, bold: bold, faces: make(map[faceKey]font.Face)}
}

// LoadFonts parses TTF/OTF files. An empty path keeps the bundled font;
// a path that cannot be read or parsed is an error.
func LoadFonts(regularPath, boldPath string) (*FontSet, error) {
	fs := DefaultFonts()

	if regularPath != "" {
		f, err := parseFontFile(regularPath)
		if err != nil {
			return nil, err
		}
		fs.regular = f
	}
	if boldPath != "" {
		f, err := parseFontFile(boldPath)
		if err != nil {
			return nil, err
		}
		fs.bold = f
	}
	return fs, nil
}

func parseFontFile(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font %s: %w", path, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", path, err)
	}
	return f, nil
}

// Face returns a face at size pixels (72 DPI, so points equal pixels)
func (fs *FontSet) Face(size float64, bold bool) (font.Face, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	key := faceKey{size: size, bold: bold}
	if face, ok := fs.faces[key]; ok {
		return face, nil
	}

	src := fs.regular
	if bold {
		src = fs.bold
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %vpx font face: %w", size, err)
	}
	fs.faces[key] = face
	return face, nil
}
