package bill

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"splitroom/internal/ocr"
)

var extensionTypes = map[string]string{
	".pdf":  ocr.MimePDF,
	".jpg":  ocr.MimeJPEG,
	".jpeg": ocr.MimeJPEG,
	".png":  ocr.MimePNG,
	".webp": ocr.MimeWEBP,
}

// IsBillFile reports whether path has a supported extension.
func IsBillFile(path string) bool {
	_, ok := extensionTypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

// DetectMimeType sniffs data, falling back to the declared type and then to
// the file extension.
func DetectMimeType(data []byte, declared, name string) string {
	sniffed := http.DetectContentType(data)
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	switch sniffed {
	case ocr.MimePDF, ocr.MimeJPEG, ocr.MimePNG, ocr.MimeWEBP:
		return sniffed
	}
	if d := strings.ToLower(strings.TrimSpace(declared)); d != "" && d != "application/octet-stream" {
		return d
	}
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return sniffed
}

// LoadDocument reads a bill from disk.
func LoadDocument(path string) (ocr.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ocr.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	name := filepath.Base(path)
	return ocr.Document{Data: data, MimeType: DetectMimeType(data, "", name), Name: name}, nil
}

// FindBills lists the supported bill files under dir, sorted by path.
func FindBills(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsBillFile(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
