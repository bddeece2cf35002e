package bill

import (
	"context"
	"path/filepath"
	"sync"
)

// Batch result statuses.
const (
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusError   = "error"
)

// BatchResult is the outcome for one file of a batch.
type BatchResult struct {
	Index    int
	Path     string
	Filename string
	Result   *Result
	Error    error
	Status   string
}

// Progress is called after each file with the number done so far.
type Progress func(done, total int, r BatchResult)

// AnalyzeFiles analyzes paths with a pool of workers. Results keep the
// input order. A bill without a total is a warning.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, paths []string, workers int, opts Options, progress Progress) []BatchResult {
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int, len(paths))
	results := make([]BatchResult, len(paths))

	var mu sync.Mutex
	done := 0

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := range jobs {
				a.log.Debug().Int("worker", worker).Str("file", paths[i]).Int("index", i+1).Msg("worker processing bill")

				r := a.analyzeFile(ctx, paths[i], opts)
				r.Index = i
				results[i] = r

				mu.Lock()
				done++
				if progress != nil {
					progress(done, len(paths), r)
				}
				mu.Unlock()
			}
		}(w)
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func (a *Analyzer) analyzeFile(ctx context.Context, path string, opts Options) BatchResult {
	r := BatchResult{Path: path, Filename: filepath.Base(path), Status: StatusError}

	if err := ctx.Err(); err != nil {
		r.Error = err
		return r
	}
	doc, err := LoadDocument(path)
	if err != nil {
		r.Error = err
		return r
	}
	res, err := a.Analyze(ctx, doc, opts)
	if err != nil {
		r.Error = err
		return r
	}

	r.Result = res
	r.Status = StatusSuccess
	if res.Bill.TotalAmount == nil {
		r.Status = StatusWarning
	}
	return r
}
