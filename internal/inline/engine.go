package inline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"source-weaver/internal/common"
	"source-weaver/internal/diagnostic"
)

// Options configures an Engine.
type Options struct {
	// Delimiters mark inline regions in target files.
	Delimiters Delimiters
	// IndentContent re-indents content to the begin marker's indentation.
	IndentContent bool
	// Supplement receives blocks whose marker pair is missing. When nil such
	// blocks are reported as unmerged.
	Supplement io.Writer
	// Resolver finds the target file of blocks without one.
	Resolver TargetResolver
	// Workers bounds the number of files merged in parallel.
	Workers int
	// Logger receives debug output. Defaults to a no-op logger.
	Logger *zap.SugaredLogger
}

// Result records the outcome of one block.
type Result struct {
	Block   Block
	Target  string
	Outcome Outcome
	// Changed is true when merging this block altered the target file.
	Changed bool
	// Diagnostic explains every outcome other than a clean merge.
	Diagnostic *diagnostic.Diagnostic
}

// Engine splices blocks into files.
type Engine struct {
	opts  Options
	locks sync.Map // target path -> *sync.Mutex
	supMu sync.Mutex
}

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	return &Engine{opts: opts}
}

// Apply merges blocks into their target files and returns one Result per
// block, in input order. Blocks for the same file are applied in order under
// that file's lock; distinct files are merged in parallel. Only I/O failures
// and cancellation are returned as errors.
func (e *Engine) Apply(ctx context.Context, blocks []Block) ([]Result, error) {
	if err := e.opts.Delimiters.Validate(); err != nil {
		return nil, err
	}

	results := make([]Result, len(blocks))
	byTarget := make(map[string][]int)

	var targets []string

	for i, b := range blocks {
		results[i].Block = b

		target, err := e.target(b)
		if err != nil {
			results[i].Outcome = OutcomeUnmerged
			results[i].Diagnostic = blockDiagnostic(diagnostic.SeverityWarning, diagnostic.CodeInlineTarget,
				err.Error(), b)

			continue
		}

		results[i].Target = target
		if _, ok := byTarget[target]; !ok {
			targets = append(targets, target)
		}

		byTarget[target] = append(byTarget[target], i)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(e.opts.Workers)

	for _, target := range targets {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return e.mergeFile(target, byTarget[target], results)
			}
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for i := range results {
		if results[i].Outcome == OutcomeAppended {
			if err := e.supplement(results[i].Block); err != nil {
				return nil, err
			}
		}
	}

	return results, nil
}

func (e *Engine) target(b Block) (string, error) {
	if b.Target != "" {
		return filepath.Clean(b.Target), nil
	}

	if e.opts.Resolver == nil {
		return "", fmt.Errorf("%w: %q has no target and no resolver is configured", ErrNoTarget, b.ID)
	}

	target, err := e.opts.Resolver.ResolveTarget(b.ID)
	if err != nil {
		return "", err
	}

	return filepath.Clean(target), nil
}

func (e *Engine) lock(path string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(path, &sync.Mutex{})

	return mu.(*sync.Mutex)
}

// mergeFile applies the blocks at indexes to target. Each goroutine writes only
// its own entries of results.
func (e *Engine) mergeFile(target string, indexes []int, results []Result) error {
	mu := e.lock(target)
	mu.Lock()
	defer mu.Unlock()

	original, err := os.ReadFile(target)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading inline target %s: %w", target, err)
		}

		for _, i := range indexes {
			r := &results[i]
			r.Outcome = OutcomeUnmerged
			r.Diagnostic = blockDiagnostic(diagnostic.SeverityWarning, diagnostic.CodeInlineTarget,
				fmt.Sprintf("target file %s does not exist", target), r.Block)
		}

		return nil
	}

	current := original

	for _, i := range indexes {
		r := &results[i]

		next, n, err := Splice(current, r.Block.ID, r.Block.Content, e.opts.Delimiters,
			SpliceOptions{IndentContent: e.opts.IndentContent})

		switch {
		case errors.Is(err, ErrUnterminated):
			r.Outcome = OutcomeUnmerged
			r.Diagnostic = blockDiagnostic(diagnostic.SeverityWarning, diagnostic.CodeInlineUnterminated,
				fmt.Sprintf("%s: %v", target, err), r.Block)
		case errors.Is(err, ErrMarkerInContent):
			r.Outcome = OutcomeUnmerged
			r.Diagnostic = blockDiagnostic(diagnostic.SeverityWarning, diagnostic.CodeInlineUnmerged,
				fmt.Sprintf("%s: %v", target, err), r.Block)
		case err != nil:
			return fmt.Errorf("merging %q into %s: %w", r.Block.ID, target, err)
		case n == 0 && e.opts.Supplement != nil:
			r.Outcome = OutcomeAppended
			r.Diagnostic = blockDiagnostic(diagnostic.SeverityInfo, diagnostic.CodeInlineAppended,
				fmt.Sprintf("no %q marker pair in %s; block appended to the supplementary output", r.Block.ID, target), r.Block)
		case n == 0:
			r.Outcome = OutcomeUnmerged
			r.Diagnostic = blockDiagnostic(diagnostic.SeverityWarning, diagnostic.CodeInlineUnmerged,
				fmt.Sprintf("no %q marker pair in %s", r.Block.ID, target), r.Block)
		default:
			r.Outcome = OutcomeMerged
			r.Changed = string(next) != string(current)
			current = next
		}
	}

	changed, err := common.WriteFileAtomic(target, current)
	if err != nil {
		return err
	}

	e.opts.Logger.Debugw("inline merge", "target", target, "blocks", len(indexes), "changed", changed)

	return nil
}

func (e *Engine) supplement(b Block) error {
	e.supMu.Lock()
	defer e.supMu.Unlock()

	text := e.opts.Delimiters.BeginLine(b.ID) + "\n" +
		formatContent(b.Content, "\n", "", SpliceOptions{}) +
		e.opts.Delimiters.EndLine(b.ID) + "\n"

	if _, err := io.WriteString(e.opts.Supplement, text); err != nil {
		return fmt.Errorf("writing supplementary block %q: %w", b.ID, err)
	}

	return nil
}

func blockDiagnostic(sev diagnostic.Severity, code, msg string, b Block) *diagnostic.Diagnostic {
	return &diagnostic.Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  msg,
		Subject:  b.ID,
		Location: b.Origin,
	}
}

// Diagnostics collects the diagnostics of results.
func Diagnostics(results []Result) diagnostic.Diagnostics {
	var d diagnostic.Diagnostics

	for _, r := range results {
		if r.Diagnostic != nil {
			d.Add(*r.Diagnostic)
		}
	}

	return d
}
