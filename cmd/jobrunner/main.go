// Command jobrunner is the per-job child process forked by JobProcess.Fire.
// It reads the compiled job tree (job.json) written by JobModel.Compile from
// the directory given as its sole argument, drives the snippet DAG to
// completion, and exits with the aggregate return code (wire.RetPass or
// wire.RetError) that JobProcess.Fire interprets as SUCCESS/FAILURE.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattjoyce/automationd/internal/jobmodel"
	"github.com/mattjoyce/automationd/internal/snippetruntime"
	"github.com/mattjoyce/automationd/internal/wire"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: jobrunner <job-dir>")
		return int(wire.RetError)
	}
	jobDir := args[0]

	job, err := loadCompiledJob(jobDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jobrunner: %v\n", err)
		return int(wire.RetError)
	}

	tracer, err := snippetruntime.NewTracer(jobDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jobrunner: open tracer: %v\n", err)
		return int(wire.RetError)
	}
	defer tracer.Close()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil)).With("job_id", job.JobID)

	d := snippetruntime.Run(job, tracer, logger)
	return int(d.RetCode())
}

func loadCompiledJob(jobDir string) (*jobmodel.CompiledJob, error) {
	b, err := os.ReadFile(filepath.Join(jobDir, "job.json"))
	if err != nil {
		return nil, fmt.Errorf("read job.json: %w", err)
	}
	var job jobmodel.CompiledJob
	if err := json.Unmarshal(b, &job); err != nil {
		return nil, fmt.Errorf("parse job.json: %w", err)
	}
	return &job, nil
}
