package wire

// JobDoc is the top-level YAML job document shape. Exactly one of Python or
// Snippets is expected to be set (Compile rejects any other combination). (The field is named Python to
// match the original document's key and the spec's terminology — it no
// longer implies a Python interpreter, see SnippetSpec.Execute.)
type JobDoc struct {
	Python    string                 `yaml:"python,omitempty"`
	Variables map[string]any         `yaml:"variables,omitempty"`
	Snippets  []map[string]SnippetSpec `yaml:"snippets,omitempty"`
}

// IsInline reports whether this document uses the inline-snippet shape.
func (d *JobDoc) IsInline() bool {
	return d.Python != "" && d.Snippets == nil
}

// IsDAG reports whether this document uses the multi-snippet DAG shape.
func (d *JobDoc) IsDAG() bool {
	return d.Snippets != nil
}

// SnippetSpec is one entry of a DAG job document's snippets sequence.
type SnippetSpec struct {
	Description string            `yaml:"description,omitempty"`
	Execute     string            `yaml:"execute,omitempty"`
	When        map[string]string `yaml:"when,omitempty"`
	With        map[string]any    `yaml:"with,omitempty"`
	Variables   map[string]any    `yaml:"variables,omitempty"`
}
