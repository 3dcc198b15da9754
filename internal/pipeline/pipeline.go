package pipeline

import (
	"bytes"
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"source-weaver/internal/common"
	"source-weaver/internal/compose"
	"source-weaver/internal/config"
	"source-weaver/internal/decl"
	"source-weaver/internal/diagnostic"
	"source-weaver/internal/extract"
	"source-weaver/internal/inline"
	"source-weaver/internal/model"
	"source-weaver/internal/render"
)

// ErrWarnings is returned when warnings are treated as errors.
var ErrWarnings = errors.New("warnings reported")

// Report summarizes one run.
type Report struct {
	// Diagnostics from every stage, in stage order.
	Diagnostics diagnostic.Diagnostics
	// Outputs are the whole-file outputs produced by templates.
	Outputs []string
	// Changed are the outputs whose content changed on disk.
	Changed []string
	// Inline holds one result per rendered inline block.
	Inline []inline.Result
	// Types is the number of composed types.
	Types int
}

// Pipeline runs generation for one configuration.
type Pipeline struct {
	cfg *config.Config
	log *zap.SugaredLogger
}

// New creates a Pipeline. A nil logger discards output.
func New(cfg *config.Config, log *zap.SugaredLogger) *Pipeline {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Pipeline{cfg: cfg, log: log}
}

// Load extracts declarations from Go sources and reads manifests. Files are
// returned in discovery order: sources first, then manifests.
func (p *Pipeline) Load(ctx context.Context) ([]decl.File, error) {
	var files []decl.File

	if len(p.cfg.Sources) > 0 {
		x := extract.New(extract.Options{
			Workers:           p.cfg.Workers,
			IncludeUnexported: p.cfg.IncludeUnexported,
			Logger:            p.log,
		})

		loaded, err := x.LoadPackages(ctx, p.cfg.Dir, p.cfg.Sources...)
		if err != nil {
			return nil, errors.Wrap(err, "extracting Go sources")
		}

		files = append(files, loaded...)
	}

	for _, path := range p.cfg.Paths(p.cfg.Manifests) {
		loaded, err := decl.LoadManifest(path)
		if err != nil {
			return nil, errors.WithHint(errors.Wrap(err, "loading manifest"),
				"manifests list files with their declarations under a top-level files key")
		}

		files = append(files, loaded...)
	}

	return files, nil
}

// Model loads and composes the declarations. On a fatal composition error the
// returned diagnostics still hold everything reported.
func (p *Pipeline) Model(ctx context.Context) (*model.Model, diagnostic.Diagnostics, error) {
	files, err := p.Load(ctx)
	if err != nil {
		return nil, diagnostic.Diagnostics{}, err
	}

	decls, order := decl.Flatten(files)

	start := time.Now()

	res, err := compose.New(compose.Options{FileOrder: order, Marker: p.cfg.Marker}).Compose(decls)
	if err != nil {
		var cerr *compose.Error
		if errors.As(err, &cerr) {
			return nil, cerr.Diagnostics, withCompositionHint(err)
		}

		return nil, diagnostic.Diagnostics{}, errors.Wrap(err, "composing types")
	}

	p.log.Infow("composed types", "files", len(files), "declarations", len(decls),
		"types", res.Graph.Len(), "elapsed", time.Since(start))

	return model.New(res.Graph), res.Diagnostics, nil
}

func withCompositionHint(err error) error {
	switch {
	case errors.Is(err, compose.ErrSupertypeCycle):
		return errors.WithHint(err, "break the cycle by removing one of the listed supertypes")
	case errors.Is(err, compose.ErrDuplicateDeclaration):
		return errors.WithHint(err, "declare the type once and move additional members into extensions")
	default:
		return err
	}
}

// Run performs a full generation pass. The report is returned alongside any
// error so diagnostics can be shown either way.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	m, diags, err := p.Model(ctx)
	report.Diagnostics.Merge(diags)

	if err != nil {
		return report, err
	}

	report.Types = m.Len()

	templates, err := render.LoadTemplates(p.cfg.Paths(p.cfg.Templates))
	if err != nil {
		return report, errors.Wrap(err, "loading templates")
	}

	delims := p.cfg.Delimiters()

	out, err := render.NewRenderer(render.Options{
		OutputDir:  p.cfg.Path(p.cfg.Output),
		Header:     p.cfg.Header,
		Format:     p.cfg.Format,
		Delimiters: delims,
		Args:       p.cfg.Args,
		Workers:    p.cfg.Workers,
		Logger:     p.log,
	}).Render(ctx, m, templates)
	if err != nil {
		return report, errors.Wrap(err, "rendering templates")
	}

	report.Diagnostics.Merge(out.Diagnostics)

	for _, f := range out.Files {
		report.Outputs = append(report.Outputs, f.Path)
	}

	report.Changed, err = render.WriteFiles(out.Files)
	if err != nil {
		return report, errors.Wrap(err, "writing outputs")
	}

	if err := p.merge(ctx, m, out.Blocks, delims, report); err != nil {
		return report, err
	}

	p.log.Infow("generation finished", "templates", len(templates), "outputs", len(report.Outputs),
		"changed", len(report.Changed), "inline", len(report.Inline),
		"warnings", len(report.Diagnostics.Warnings))

	if p.cfg.WarningsAsErrors && report.Diagnostics.HasWarnings() {
		return report, errors.WithHint(errors.Wrapf(ErrWarnings, "%d warning(s)", len(report.Diagnostics.Warnings)),
			"fix the warnings or disable warnings_as_errors")
	}

	return report, nil
}

func (p *Pipeline) merge(ctx context.Context, m *model.Model, blocks []inline.Block,
	delims inline.Delimiters, report *Report,
) error {
	if len(blocks) == 0 {
		return nil
	}

	var supplement bytes.Buffer

	opts := inline.Options{
		Delimiters:    delims,
		IndentContent: p.cfg.Inline.Indent,
		Resolver:      inline.TypeResolver(p.locate(m)),
		Workers:       p.cfg.Workers,
		Logger:        p.log,
	}

	if p.cfg.Inline.Supplement != "" {
		opts.Supplement = &supplement
	}

	results, err := inline.NewEngine(opts).Apply(ctx, blocks)
	if err != nil {
		return errors.Wrap(err, "merging inline blocks")
	}

	report.Inline = results
	report.Diagnostics.Merge(inline.Diagnostics(results))

	if supplement.Len() > 0 {
		path := p.cfg.Path(p.cfg.Inline.Supplement)

		changed, err := common.WriteFileAtomic(path, supplement.Bytes())
		if err != nil {
			return errors.Wrap(err, "writing supplementary inline output")
		}

		report.Outputs = append(report.Outputs, path)
		if changed {
			report.Changed = append(report.Changed, path)
		}
	}

	return nil
}

// locate maps a type name to the file holding its primary declaration.
func (p *Pipeline) locate(m *model.Model) func(string) (string, bool) {
	return func(name string) (string, bool) {
		t := m.Lookup(name)
		if t == nil || t.File() == "" {
			return "", false
		}

		return p.cfg.Path(t.File()), true
	}
}
