package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kozaktomas/sign-vision/internal/ai"
	"github.com/kozaktomas/sign-vision/internal/constants"
	"github.com/kozaktomas/sign-vision/internal/descriptions"
	"github.com/kozaktomas/sign-vision/internal/media"
	"golang.org/x/sync/errgroup"
)

// ProgressInfo contains progress information for callbacks
type ProgressInfo struct {
	Current int
	Total   int
	Name    string
	Err     error
}

// BatchOptions controls the batch describing operations.
type BatchOptions struct {
	Concurrency int                // parallel describe requests, default 1
	OnProgress  func(ProgressInfo) // optional, called once per item
}

func (o BatchOptions) workers() int {
	if o.Concurrency <= 0 {
		return 1
	}
	return o.Concurrency
}

// Failure records an item that could not be described.
type Failure struct {
	Name string
	Err  error
}

type describeJob struct {
	name     string
	load     func() ([]byte, error)
	filename string
}

type describeResult struct {
	description string
	err         error
}

// describeAll runs describer over jobs with a bounded number of workers and
// returns the results in job order. A failed job does not stop the others.
func describeAll(ctx context.Context, describer ai.VideoDescriber, jobs []describeJob, opts BatchOptions) []describeResult {
	results := make([]describeResult, len(jobs))
	var progressMu sync.Mutex
	done := 0

	report := func(name string, err error) {
		progressMu.Lock()
		defer progressMu.Unlock()
		done++
		if opts.OnProgress != nil {
			opts.OnProgress(ProgressInfo{Current: done, Total: len(jobs), Name: name, Err: err})
		}
	}

	var g errgroup.Group
	g.SetLimit(opts.workers())

	for i := range jobs {
		g.Go(func() error {
			job := jobs[i]
			if err := ctx.Err(); err != nil {
				results[i] = describeResult{err: err}
				report(job.name, err)
				return nil
			}

			video, err := job.load()
			if err == nil {
				results[i].description, err = describer.Describe(ctx, video, job.filename)
			}
			results[i].err = err
			report(job.name, err)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// GenerateDescriptions describes every .mp4 video in store with describer
// and returns cache entries named after the file stems, in filename order.
// Videos that fail are reported and left out.
func GenerateDescriptions(ctx context.Context, describer ai.VideoDescriber, store *media.Store, opts BatchOptions) ([]descriptions.Entry, []Failure, error) {
	files, err := store.List(constants.AvatarExt)
	if err != nil {
		return nil, nil, err
	}

	jobs := make([]describeJob, len(files))
	for i, f := range files {
		jobs[i] = describeJob{
			name:     strings.TrimSuffix(f, filepath.Ext(f)),
			load:     func() ([]byte, error) { return store.Read(f) },
			filename: f,
		}
	}

	var entries []descriptions.Entry
	var failures []Failure
	for i, res := range describeAll(ctx, describer, jobs, opts) {
		if res.err != nil {
			failures = append(failures, Failure{Name: jobs[i].name, Err: res.err})
			continue
		}
		entries = append(entries, descriptions.Entry{Name: jobs[i].name, Description: res.description})
	}

	if err := ctx.Err(); err != nil {
		return entries, failures, err
	}
	return entries, failures, nil
}

// RedescribeReport summarizes RedescribeSigns.
type RedescribeReport struct {
	Updated  int
	Failures []Failure
}

// RedescribeSigns describes the stored video of every sign again with
// describer and saves the new descriptions. Signs whose video is missing or
// fails to describe keep their old description. The cache is rebuilt
// afterwards, also when ctx was cancelled part way.
func (o *Orchestrator) RedescribeSigns(ctx context.Context, describer ai.VideoDescriber, opts BatchOptions) (*RedescribeReport, error) {
	if o.signs == nil {
		return nil, errNoStore
	}

	signs, err := o.signs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing signs: %w", err)
	}

	jobs := make([]describeJob, len(signs))
	for i := range signs {
		sign := signs[i]
		jobs[i] = describeJob{
			name: sign.Name,
			load: func() ([]byte, error) {
				if sign.VideoPath == "" {
					return nil, fmt.Errorf("sign %q has no video", sign.Name)
				}
				return o.media.Read(sign.VideoPath)
			},
			filename: sign.VideoPath,
		}
	}

	report := &RedescribeReport{}
	for i, res := range describeAll(ctx, describer, jobs, opts) {
		if res.err != nil {
			report.Failures = append(report.Failures, Failure{Name: signs[i].Name, Err: res.err})
			continue
		}
		updated := signs[i]
		updated.Description = res.description
		if err := o.signs.Update(context.WithoutCancel(ctx), &updated); err != nil {
			report.Failures = append(report.Failures, Failure{Name: signs[i].Name, Err: err})
			continue
		}
		report.Updated++
	}

	if _, err := o.RebuildCache(context.WithoutCancel(ctx)); err != nil {
		return report, fmt.Errorf("rebuilding description cache: %w", err)
	}
	return report, ctx.Err()
}
