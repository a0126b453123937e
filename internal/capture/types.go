package capture

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

var (
	ErrEmptyPage       = errors.New("page has no readable text")
	ErrEmptyFile       = errors.New("file is empty")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrNotHTML         = errors.New("response is not an HTML page")
)

// PageContent is the readable text of a page, as submitted with the "page" source.
type PageContent struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
}

// Upload is a decoded text file.
type Upload struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Text string `json:"text"`
}

// DetectCharset returns the most likely charset label for data, "utf-8" when unsure.
func DetectCharset(data []byte) string {
	if utf8.Valid(data) {
		return "utf-8"
	}
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// toUTF8 converts data to UTF-8. Unknown labels leave data untouched.
func toUTF8(data []byte) []byte {
	label := DetectCharset(data)
	if label == "utf-8" {
		return data
	}

	reader, err := charset.NewReaderLabel(label, bytes.NewReader(data))
	if err != nil {
		return data
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return data
	}
	return decoded
}

// normalizeLines collapses whitespace inside each line and drops blank lines.
func normalizeLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
