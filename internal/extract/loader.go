package extract

import (
	"context"
	"fmt"
	"go/ast"
	"os"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"

	"source-weaver/internal/decl"
)

// LoadMode specifies what information to load from packages.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedImports

// Options configures an Extractor.
type Options struct {
	// Workers bounds the number of files extracted in parallel.
	Workers int
	// IncludeUnexported keeps unexported types and members.
	IncludeUnexported bool
	// Logger receives debug output. Defaults to a no-op logger.
	Logger *zap.SugaredLogger
}

// Extractor loads Go packages and extracts their declarations.
type Extractor struct {
	opts Options
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	return &Extractor{opts: opts}
}

type job struct {
	pkg  *packages.Package
	file *ast.File
	path string
}

// LoadPackages loads the packages matching patterns, relative to dir, and
// returns one decl.File per non-generated source file in load order.
// Patterns are standard Go package patterns (e.g., "./...", "source-weaver/examples/shapes").
func (e *Extractor) LoadPackages(ctx context.Context, dir string, patterns ...string) ([]decl.File, error) {
	cfg := &packages.Config{
		Mode:    LoadMode,
		Context: ctx,
		Dir:     dir,
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	var errs []error
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, e)
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("package errors: %v", errs)
	}

	var jobs []job

	for _, pkg := range pkgs {
		for _, file := range pkg.Syntax {
			if ast.IsGenerated(file) {
				continue
			}

			jobs = append(jobs, job{pkg: pkg, file: file, path: pkg.Fset.Position(file.Package).Filename})
		}
	}

	files := make([]decl.File, len(jobs))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(e.opts.Workers)

	for i, j := range jobs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			src, err := os.ReadFile(j.path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", j.path, err)
			}

			x := newFileExtractor(j.pkg.Fset, j.file, src, j.path, j.pkg.PkgPath, j.pkg.TypesInfo, e.opts)
			files[i] = x.extract()

			e.opts.Logger.Debugw("extracted file", "file", j.path, "declarations", len(files[i].Declarations))

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return files, nil
}
