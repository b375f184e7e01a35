package session

import "strings"

// DefaultExportName is offered when the user is asked for a file name.
const DefaultExportName = "canvas.json"

// ExportFileName normalises a requested export file name: blank names fall
// back to DefaultExportName and ".json" is appended when missing.
func ExportFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultExportName
	}
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	return name
}

// LoadError reports a file that could not be imported. Its message is the
// one shown to the user.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return "Failed to load canvas: " + e.Err.Error() }

func (e *LoadError) Unwrap() error { return e.Err }

// Import parses an exported canvas file.
func Import(data []byte) (*Snapshot, error) {
	s, err := Decode(data)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	return s, nil
}
