package firmware

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const (
	// Suffix is shared by every signed firmware image.
	Suffix = ".signed.bin"

	// MainPrefix selects main board images.
	MainPrefix = "main_"

	// RearPrefix selects rear board images.
	RearPrefix = "rear_"
)

// Bundle holds the images chosen for one update. It is not modified after Locate.
type Bundle struct {
	MainPath string
	RearPath string
}

// Locate picks the latest main and rear firmware images in dir.
// Only entries directly inside dir are considered.
func Locate(dir string, logger *zap.Logger) (*Bundle, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, &LocateError{Kind: ErrFirmwareAccess, Dir: dir, Err: err}
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		kind := ErrFirmwareAccess
		if os.IsNotExist(err) {
			kind = ErrFirmwareNotFound
		}
		return nil, &LocateError{Kind: kind, Dir: absDir, Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}

	mainName, err := latest(names, MainPrefix)
	if err != nil {
		return nil, &LocateError{Kind: ErrFirmwareNotFound, Board: "main", Dir: absDir}
	}
	rearName, err := latest(names, RearPrefix)
	if err != nil {
		return nil, &LocateError{Kind: ErrFirmwareNotFound, Board: "rear", Dir: absDir}
	}

	bundle := &Bundle{
		MainPath: filepath.Join(absDir, mainName),
		RearPath: filepath.Join(absDir, rearName),
	}

	if err := checkReadable("main", absDir, bundle.MainPath); err != nil {
		return nil, err
	}
	if err := checkReadable("rear", absDir, bundle.RearPath); err != nil {
		return nil, err
	}

	logger.Info("Found main board firmware", zap.String("file", mainName))
	logger.Info("Found rear board firmware", zap.String("file", rearName))

	return bundle, nil
}

// latest returns the lexicographically greatest name with the given prefix
// and the signed image suffix.
func latest(names []string, prefix string) (string, error) {
	var matched []string
	for _, name := range names {
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, Suffix) {
			matched = append(matched, name)
		}
	}
	if len(matched) == 0 {
		return "", fmt.Errorf("no %s*%s files", prefix, Suffix)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(matched)))
	return matched[0], nil
}

func checkReadable(board, dir, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &LocateError{Kind: ErrFirmwareAccess, Board: board, Dir: dir, Path: path, Err: err}
	}
	return f.Close()
}

// Path returns the image chosen for board ("main" or "rear").
func (b *Bundle) Path(board string) (string, error) {
	switch board {
	case "main":
		return b.MainPath, nil
	case "rear":
		return b.RearPath, nil
	default:
		return "", fmt.Errorf("unknown board %q", board)
	}
}

// Read loads the whole image for board into memory.
func (b *Bundle) Read(board string) ([]byte, error) {
	path, err := b.Path(board)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LocateError{Kind: ErrFirmwareAccess, Board: board, Dir: filepath.Dir(path), Path: path, Err: err}
	}
	return data, nil
}
