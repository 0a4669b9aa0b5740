// Package jobmodel implements JobModel: compiling a YAML job document into
// a runner tree (one job.json file plus, for the inline shape, one
// generated script) written into a job's execution directory.
//
// Grounded on two sources: the shape of the compile/validate/fingerprint
// pipeline is lifted from the teacher's internal/router/dsl (CompileSpecs /
// compilePipeline / fingerprintPipeline — a DAG compiler that already does
// exactly this for a different DSL), and the substitution + document-shape
// rules are lifted from the original server's
// serverengine/jobmodel.py write_snippets().
package jobmodel

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/automationd/internal/varsub"
	"github.com/mattjoyce/automationd/internal/wire"
)

const (
	globalsFileName  = "globals.yaml"
	snippetsSubdir   = "snippets"
	inlineScriptName = "snippet-0.sh"
)

// Compiler is JobModel. workspacesRoot holds one directory per workspace,
// each with a globals.yaml and a snippets/ directory of executable sources.
type Compiler struct {
	workspacesRoot string
	logger         *slog.Logger
}

func New(workspacesRoot string, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{workspacesRoot: workspacesRoot, logger: logger}
}

// Compile parses yamlSource, resolves it against workspace, and writes the
// compiled tree into jobDir. jobID and workspace are folded into the
// fingerprint so Compile is deterministic on (doc, workspace, id).
func (c *Compiler) Compile(yamlSource, workspace, jobID, jobDir string) CompileResult {
	var doc wire.JobDoc
	if err := yaml.Unmarshal([]byte(yamlSource), &doc); err != nil {
		return CompileResult{Status: wire.Error, Detail: fmt.Sprintf("invalid yaml: %v", err)}
	}

	globals, err := c.loadGlobals(workspace)
	if err != nil {
		return CompileResult{Status: wire.Error, Detail: fmt.Sprintf("globals: %v", err)}
	}

	var snippets []CompiledSnippet
	switch {
	case doc.IsInline() && !doc.IsDAG():
		s, err := c.compileInline(&doc, jobDir)
		if err != nil {
			return CompileResult{Status: wire.Error, Detail: err.Error()}
		}
		snippets = []CompiledSnippet{s}
	case doc.IsDAG():
		s, err := c.compileDAG(&doc, workspace)
		if err != nil {
			return CompileResult{Status: wire.Error, Detail: err.Error()}
		}
		snippets = s
	default:
		return CompileResult{Status: wire.Error, Detail: "job document must set exactly one of python or snippets"}
	}

	job := &CompiledJob{
		JobID:     jobID,
		Workspace: workspace,
		Globals:   globals,
		Snippets:  snippets,
	}
	job.Fingerprint = fingerprint(job)

	if err := writeJobJSON(jobDir, job); err != nil {
		return CompileResult{Status: wire.Error, Detail: err.Error()}
	}
	return CompileResult{Status: wire.OK, Detail: "compiled", Job: job}
}

func (c *Compiler) loadGlobals(workspace string) (map[string]any, error) {
	path := filepath.Join(c.workspacesRoot, workspace, globalsFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("missing or unreadable globals file %s: %w", path, err)
	}
	var globals map[string]any
	if err := yaml.Unmarshal(b, &globals); err != nil {
		return nil, fmt.Errorf("invalid globals file %s: %w", path, err)
	}
	return globals, nil
}

// compileInline handles the `python:` shape: a single snippet, id 0, whose
// body is written out as an executable script rather than templated
// source — per spec.md §9, no source-code templating occurs for the
// *compiled job definition*; this is the one place a file is generated.
// The literal body text the caller supplied is carried verbatim into the
// generated file, only wrapped so the result speaks the same snippetproto
// wire protocol as a DAG snippet's `execute:` binary (design option (c)):
// the runtime always forks id 0's entrypoint and decodes a JSON Response
// from its stdout, so an inline body that ran as raw, unwrapped shell would
// never produce one.
func (c *Compiler) compileInline(doc *wire.JobDoc, jobDir string) (CompiledSnippet, error) {
	scriptPath := filepath.Join(jobDir, inlineScriptName)
	if err := os.WriteFile(scriptPath, []byte(inlineWrapperScript(doc.Python)), 0o755); err != nil {
		return CompiledSnippet{}, fmt.Errorf("write inline snippet body: %w", err)
	}
	return CompiledSnippet{
		ID:         0,
		Name:       "python",
		Entrypoint: scriptPath,
		Variables:  doc.Variables,
	}, nil
}

// inlineWrapperScript wraps the caller's literal body in a subshell and
// folds its exit status into a snippetproto Response on stdout: 0 is a
// successful run that emits "done", anything else is an error carrying the
// exit status. The body runs exactly as supplied; nothing inside it is
// rewritten. The body's own stdout is redirected to fd 2 (the tracer's
// stderr log stream), since stdout is reserved end-to-end for the single
// JSON Response the runtime decodes.
func inlineWrapperScript(body string) string {
	return "#!/bin/sh\n" +
		"(\n" + body + "\n) 1>&2\n" +
		"status=$?\n" +
		"if [ \"$status\" -eq 0 ]; then\n" +
		"  printf '{\"status\":\"ok\",\"emits\":[\"done\"]}'\n" +
		"else\n" +
		"  printf '{\"status\":\"error\",\"error\":\"inline snippet exited %d\"}' \"$status\"\n" +
		"fi\n"
}

// compileDAG handles the `snippets:` shape, applying the §4.C substitution
// and variable-overlay rules to each entry's `with:` mapping.
func (c *Compiler) compileDAG(doc *wire.JobDoc, workspace string) ([]CompiledSnippet, error) {
	out := make([]CompiledSnippet, 0, len(doc.Snippets))
	id := 1
	for _, entry := range doc.Snippets {
		if len(entry) != 1 {
			return nil, fmt.Errorf("snippets[%d]: expected exactly one name key", id-1)
		}
		var name string
		var spec wire.SnippetSpec
		for k, v := range entry {
			name, spec = k, v
		}

		substitutedWith := substituteWith(spec.With, doc.Variables)
		variables := overlayVariables(spec.Variables, substitutedWith)

		cs := CompiledSnippet{
			ID:          id,
			Name:        name,
			Description: spec.Description,
			Variables:   variables,
			When:        spec.When,
		}

		if spec.Execute == "" {
			cs.Entrypoint = ""
			cs.DegradedReason = fmt.Sprintf("snippet %q declares no execute path", name)
		} else {
			abs := filepath.Join(c.workspacesRoot, workspace, snippetsSubdir, spec.Execute)
			if _, err := os.Stat(abs); err != nil {
				cs.DegradedReason = fmt.Sprintf("snippet source not found: %s", abs)
			} else {
				cs.Entrypoint = abs
			}
		}

		out = append(out, cs)
		id++
	}
	return out, nil
}

// substituteWith applies the §4.C `${{variables.K1.K2...}}` rule to every
// string value of with, resolved against the job's top-level variables.
func substituteWith(with map[string]any, jobVariables map[string]any) map[string]any {
	if with == nil {
		return nil
	}
	resolve := varsub.MapResolver(jobVariables)
	out := make(map[string]any, len(with))
	for k, v := range with {
		if s, ok := v.(string); ok {
			out[k] = varsub.Substitute(s, varsub.VariablesPattern, resolve)
		} else {
			out[k] = v
		}
	}
	return out
}

// overlayVariables copies with onto variables key-for-key, only for keys
// that already exist in variables — the original's
// `for k,v in snippet_with.items(): if k in snippet_vars: snippet_vars[k]=v`.
func overlayVariables(variables map[string]any, with map[string]any) map[string]any {
	if variables == nil {
		return nil
	}
	out := make(map[string]any, len(variables))
	for k, v := range variables {
		out[k] = v
	}
	for k, v := range with {
		if _, declared := out[k]; declared {
			out[k] = v
		}
	}
	return out
}

func writeJobJSON(jobDir string, job *CompiledJob) error {
	b, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal compiled job: %w", err)
	}
	if err := os.WriteFile(filepath.Join(jobDir, "job.json"), b, 0o644); err != nil {
		return fmt.Errorf("write job.json: %w", err)
	}
	return nil
}

// fingerprint hashes a normalized, deterministically-ordered view of the
// compiled tree, mirroring the teacher's dsl.fingerprintPipeline: same
// shape, same algorithm, different domain object.
func fingerprint(job *CompiledJob) string {
	type shape struct {
		JobID     string            `json:"job_id"`
		Workspace string            `json:"workspace"`
		Globals   map[string]any    `json:"globals"`
		Snippets  []CompiledSnippet `json:"snippets"`
	}
	snippets := append([]CompiledSnippet(nil), job.Snippets...)
	sort.Slice(snippets, func(i, j int) bool { return snippets[i].ID < snippets[j].ID })

	s := shape{JobID: job.JobID, Workspace: job.Workspace, Globals: job.Globals, Snippets: snippets}
	body, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	sum := blake3.Sum256(body)
	return "blake3:" + hex.EncodeToString(sum[:])
}
