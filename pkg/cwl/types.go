// Package cwl reads the metadata of a CWL document needed to submit it:
// the document itself, re-encoded as JSON, plus the label, doc and
// software version of the workflow being run. The document is not
// otherwise interpreted.
package cwl

import "strings"

// Document represents a raw CWL document (single or $graph packed).
type Document map[string]any

// Class returns the CWL class (Workflow, CommandLineTool, ExpressionTool).
func (d Document) Class() string {
	return d.str("class")
}

// ID returns the document's id field without a leading "#".
func (d Document) ID() string {
	return strings.TrimPrefix(d.str("id"), "#")
}

// CWLVersion returns the cwlVersion field.
func (d Document) CWLVersion() string {
	return d.str("cwlVersion")
}

// Label returns the label field.
func (d Document) Label() string {
	return d.str("label")
}

// Doc returns the doc field.
func (d Document) Doc() string {
	return d.str("doc")
}

// SoftwareVersion returns the schema.org s:softwareVersion annotation.
func (d Document) SoftwareVersion() string {
	return d.str("s:softwareVersion")
}

// IsGraph returns true if this is a $graph packed document.
func (d Document) IsGraph() bool {
	_, ok := d["$graph"]
	return ok
}

// Graph returns the $graph entries if this is a packed document.
func (d Document) Graph() []Document {
	g, ok := d["$graph"].([]any)
	if !ok {
		return nil
	}
	var docs []Document
	for _, entry := range g {
		if m, ok := entry.(map[string]any); ok {
			docs = append(docs, Document(m))
		}
	}
	return docs
}

func (d Document) str(key string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return ""
}
