package capture

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/utils"
	"github.com/gabriel-vasile/mimetype"
)

// FromUpload decodes an uploaded file to text. Only text-like files are accepted:
// plain text, logs, JSON, XML, CSV, YAML and other types detected as text.
func FromUpload(name string, data []byte) (*Upload, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if err := utils.NewSizeValidator("file", utils.MaxDataSize).ValidateSize(data); err != nil {
		return nil, err
	}

	mtype := mimetype.Detect(data)
	if !IsText(mtype) {
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedFile, filepath.Base(name), mtype.String())
	}

	text := strings.TrimPrefix(string(toUTF8(data)), "\ufeff")
	return &Upload{
		Name: filepath.Base(name),
		MIME: mtype.String(),
		Text: text,
	}, nil
}

// IsText reports whether mtype is text/plain or derives from it.
func IsText(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
