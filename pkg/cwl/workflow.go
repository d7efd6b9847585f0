package cwl

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoWorkflow is returned when a document contains no Workflow entry.
var ErrNoWorkflow = errors.New("document contains no Workflow")

// Workflow is a CWL document selected for execution. It is read-only once
// loaded.
type Workflow struct {
	// Raw is the complete document encoded as JSON.
	Raw string

	// Entrypoint is the id of the Workflow entry to run.
	Entrypoint string

	Label   string
	Doc     string
	Version string
}

// Load decodes a YAML or JSON CWL document and selects the Workflow whose id
// matches entrypoint. In a packed $graph without a matching id the first
// Workflow entry is used. Metadata missing from the entry falls back to the
// top-level document. A leading "#" on entrypoint is ignored.
func Load(data []byte, entrypoint string) (Workflow, error) {
	entrypoint = strings.TrimPrefix(entrypoint, "#")

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Workflow{}, fmt.Errorf("YAML parse error: %w", err)
	}
	if raw == nil {
		return Workflow{}, ErrNoWorkflow
	}
	root := Document(normalize(raw).(map[string]any))

	entry, err := selectWorkflow(root, entrypoint)
	if err != nil {
		return Workflow{}, err
	}

	encoded, err := json.Marshal(root)
	if err != nil {
		return Workflow{}, fmt.Errorf("encode CWL as JSON: %w", err)
	}

	wf := Workflow{
		Raw:        string(encoded),
		Entrypoint: entrypoint,
		Label:      firstNonEmpty(entry.Label(), root.Label()),
		Doc:        firstNonEmpty(entry.Doc(), root.Doc()),
		Version:    firstNonEmpty(entry.SoftwareVersion(), root.SoftwareVersion()),
	}
	if wf.Entrypoint == "" {
		wf.Entrypoint = entry.ID()
	}
	return wf, nil
}

// LoadFile reads and loads a CWL document from disk.
func LoadFile(path, entrypoint string) (Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Workflow{}, fmt.Errorf("read CWL: %w", err)
	}
	return Load(data, entrypoint)
}

func selectWorkflow(root Document, entrypoint string) (Document, error) {
	if !root.IsGraph() {
		if root.Class() != "Workflow" {
			return nil, fmt.Errorf("%w: top-level class is %q", ErrNoWorkflow, root.Class())
		}
		return root, nil
	}

	var first Document
	for _, entry := range root.Graph() {
		if entry.Class() != "Workflow" {
			continue
		}
		if entrypoint != "" && entry.ID() == entrypoint {
			return entry, nil
		}
		if first == nil {
			first = entry
		}
	}
	if first == nil {
		return nil, ErrNoWorkflow
	}
	return first, nil
}

// normalize converts YAML-decoded maps with non-string keys into
// map[string]any so the document can be JSON-encoded.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalize(item)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprintf("%v", k)] = normalize(item)
		}
		return out
	case []any:
		for i, item := range val {
			val[i] = normalize(item)
		}
		return val
	default:
		return v
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
