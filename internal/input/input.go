package input

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrInputLoad is the parent of every error returned by Load.
	ErrInputLoad = errors.New("failed to load input")

	ErrInputNotFound = fmt.Errorf("%w: file not found", ErrInputLoad)
	ErrInputInvalid  = fmt.Errorf("%w: not a JSON array of strings", ErrInputLoad)
)

// Load reads the locator list at path. The file must hold a JSON array of
// strings; an empty array is valid and yields an empty, non-nil slice.
func Load(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrInputLoad, err)
	}

	return Parse(b)
}

// Parse decodes a JSON array of locator strings.
func Parse(b []byte) ([]string, error) {
	var links []string
	if err := json.Unmarshal(b, &links); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInputInvalid, err)
	}
	if links == nil {
		// "null" decodes without error but is not a list.
		return nil, fmt.Errorf("%w: got null", ErrInputInvalid)
	}

	return links, nil
}
