package pipeline

import (
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/reconcile"
)

// DefaultWorkers is the number of files imported concurrently when no limit is set.
const DefaultWorkers = 4

// Job pairs a file with the pipeline of its format instance.
type Job struct {
	Pipeline *Pipeline
	Source   Source
}

// FileResult is the outcome of one file of a batch.
type FileResult struct {
	Source  string
	Format  string
	Results []ImportResult
	Err     error
}

// BatchResult is the outcome of a batch.
type BatchResult struct {
	ID    string
	Files []FileResult
	// Pending holds the entries of all successful files with cross-file duplicates removed,
	// in job order.
	Pending []ImportResult
}

// Failed returns the files that could not be imported.
func (b BatchResult) Failed() []FileResult {
	var failed []FileResult
	for _, f := range b.Files {
		if f.Err != nil {
			failed = append(failed, f)
		}
	}
	return failed
}

// Batch imports the jobs with at most workers files in flight. existing is shared by all
// files and never written; a failing file does not stop the others.
func Batch(jobs []Job, existing reconcile.KeySet, workers int, logger *slog.Logger) BatchResult {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}

	batch := BatchResult{ID: uuid.NewString(), Files: make([]FileResult, len(jobs))}
	logger = logger.With("batch", batch.ID)
	logger.Info("Starting batch", "files", len(jobs), "workers", workers, "known_keys", existing.Len())

	var g errgroup.Group
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			results, err := job.Pipeline.Run(job.Source, existing)
			batch.Files[i] = FileResult{
				Source:  job.Source.Name,
				Format:  job.Pipeline.Format().Name,
				Results: results,
				Err:     err,
			}
			if err != nil {
				logger.Error("File failed", "file", job.Source.Name, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	batch.Pending = merge(batch.Files)
	logger.Info("Batch finished", "pending", len(batch.Pending), "failed", len(batch.Failed()))
	return batch
}

// merge drops entries whose key an earlier file already produced.
func merge(files []FileResult) []ImportResult {
	var (
		sets    [][]reconcile.Candidate
		results = map[string]ImportResult{}
	)
	for _, f := range files {
		if f.Err != nil {
			continue
		}
		set := make([]reconcile.Candidate, len(f.Results))
		for i, r := range f.Results {
			set[i] = reconcile.Candidate{Key: r.Key, Entry: r.Entry, Source: r.Source}
			if _, ok := results[r.Key]; !ok {
				results[r.Key] = r
			}
		}
		sets = append(sets, set)
	}

	merged := reconcile.Merge(sets...)
	pending := make([]ImportResult, len(merged))
	for i, c := range merged {
		pending[i] = results[c.Key]
	}
	return pending
}
