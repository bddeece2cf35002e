package allocation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"splitroom/pkg/models"
)

// ErrSessionFormat is returned for session files that are neither JSON nor YAML.
var ErrSessionFormat = errors.New("unsupported session format")

// LoadSession reads a session from a .json, .yaml or .yml file.
func LoadSession(path string) (models.Session, error) {
	const op = "LoadSession"

	data, err := os.ReadFile(path)
	if err != nil {
		return models.Session{}, &AllocationError{Op: op, Err: err, Details: path}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseSession(data, false)
	case ".yaml", ".yml":
		return ParseSession(data, true)
	default:
		return models.Session{}, newError(op, ErrSessionFormat, "%s: use .json, .yaml or .yml", path)
	}
}

// ParseSession decodes a session and validates it. Unknown JSON fields are
// rejected so typos in field names do not silently drop data.
func ParseSession(data []byte, isYAML bool) (models.Session, error) {
	const op = "ParseSession"

	var s models.Session
	if isYAML {
		if err := yaml.UnmarshalStrict(data, &s); err != nil {
			return models.Session{}, &AllocationError{Op: op, Err: err, Details: "yaml"}
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return models.Session{}, &AllocationError{Op: op, Err: err, Details: "json"}
		}
	}

	if err := Validate(s); err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}
