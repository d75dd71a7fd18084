package orchestrator

import (
	"fmt"
	"os"

	"github.com/aetherframe/orchestrator/internal/models"
)

// TargetResolver validates that a job's target actually exists and is
// reachable before the worker spends any effort building a workspace
// for it. Pluggable per target type — today only local file targets
// resolve end to end; pid and trace_log have documented future seams
// rather than silently succeeding against something that was never
// actually checked.
type TargetResolver interface {
	Resolve(job *models.Job) error
}

// ErrTargetUnresolved is a fatal job failure: the target could not be
// confirmed to exist.
type ErrTargetUnresolved struct {
	TargetType models.TargetType
	Target     string
	Reason     string
}

func (e ErrTargetUnresolved) Error() string {
	return fmt.Sprintf("target unresolved (%s %q): %s", e.TargetType, e.Target, e.Reason)
}

// Resolvers dispatches to the right TargetResolver for a job's
// TargetType.
type Resolvers struct {
	byType map[models.TargetType]TargetResolver
}

// NewResolvers builds the default resolver set: a real local-path
// resolver for binary/apk/memory_dump targets (the only target types
// the distilled spec exercises end-to-end), and stub resolvers for
// pid and trace_log that fail clearly rather than pretending to
// succeed.
func NewResolvers() *Resolvers {
	local := &localPathResolver{}
	unsupported := func(reason string) TargetResolver { return &unsupportedResolver{reason: reason} }

	return &Resolvers{byType: map[models.TargetType]TargetResolver{
		models.TargetBinary:     local,
		models.TargetAPK:        local,
		models.TargetMemoryDump: local,
		models.TargetPID:        unsupported("pid target resolution requires a process-attach backend not yet implemented"),
		models.TargetTraceLog:   unsupported("trace_log target resolution requires a trace-ingest backend not yet implemented"),
	}}
}

// Resolve looks up the resolver for job.TargetType and invokes it.
func (r *Resolvers) Resolve(job *models.Job) error {
	resolver, ok := r.byType[job.TargetType]
	if !ok {
		return ErrTargetUnresolved{TargetType: job.TargetType, Target: job.TargetPath, Reason: "no resolver registered for target_type"}
	}
	return resolver.Resolve(job)
}

// localPathResolver confirms a target path exists on the local
// filesystem — the only target_type this implementation exercises
// end to end.
type localPathResolver struct{}

func (r *localPathResolver) Resolve(job *models.Job) error {
	info, err := os.Stat(job.TargetPath)
	if err != nil {
		return ErrTargetUnresolved{TargetType: job.TargetType, Target: job.TargetPath, Reason: err.Error()}
	}
	if info.IsDir() {
		return ErrTargetUnresolved{TargetType: job.TargetType, Target: job.TargetPath, Reason: "target is a directory, expected a file"}
	}
	return nil
}

// unsupportedResolver always fails with a documented reason, giving
// future target types a seam to fill in without the worker silently
// treating an unresolvable target as ready.
type unsupportedResolver struct{ reason string }

func (r *unsupportedResolver) Resolve(job *models.Job) error {
	return ErrTargetUnresolved{TargetType: job.TargetType, Target: job.TargetPath, Reason: r.reason}
}
