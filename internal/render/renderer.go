package render

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"

	"source-weaver/internal/common"
	"source-weaver/internal/diagnostic"
	"source-weaver/internal/inline"
	"source-weaver/internal/model"
	"source-weaver/internal/source"
)

// DefaultHeader marks Go outputs as generated.
const DefaultHeader = "// Code generated by source-weaver. DO NOT EDIT."

// Options configures a Renderer.
type Options struct {
	// OutputDir is the directory where whole-file outputs are written.
	OutputDir string
	// Header is prepended to Go outputs. Empty disables it.
	Header string
	// Format runs Go outputs through goimports.
	Format bool
	// Delimiters mark inline blocks in rendered text.
	Delimiters inline.Delimiters
	// Args is handed to every template as .Args.
	Args map[string]any
	// Workers bounds the number of templates rendered in parallel.
	Workers int
	// Logger receives debug output. Defaults to a no-op logger.
	Logger *zap.SugaredLogger
}

// Context is the data every template executes against.
type Context struct {
	// Types answers queries over the composed types.
	Types *model.Model
	// Args are the user-supplied template arguments.
	Args map[string]any
	// Template is the name of the executing template.
	Template string
}

// GeneratedFile is one whole-file output.
type GeneratedFile struct {
	// Template is the name of the template that produced the file.
	Template string
	// Path is where the file is written.
	Path string
	// Content is the final file content.
	Content []byte
}

// Output is the result of rendering all templates.
type Output struct {
	Files       []GeneratedFile
	Blocks      []inline.Block
	Diagnostics diagnostic.Diagnostics
}

// Renderer executes templates against a model.
type Renderer struct {
	opts Options
}

// NewRenderer creates a Renderer.
func NewRenderer(opts Options) *Renderer {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	return &Renderer{opts: opts}
}

// rendered is the per-template result collected by Render.
type rendered struct {
	file   *GeneratedFile
	blocks []inline.Block
	empty  bool
}

// Render executes templates in parallel. Files and blocks are returned in
// template order regardless of scheduling.
func (r *Renderer) Render(ctx context.Context, m *model.Model, templates []*Template) (*Output, error) {
	if err := r.opts.Delimiters.Validate(); err != nil {
		return nil, err
	}

	owners := make(map[string]string, len(templates))
	for _, t := range templates {
		path := r.outputPath(t)
		if other, ok := owners[path]; ok {
			return nil, fmt.Errorf("templates %s and %s both render to %s", other, t.Path, path)
		}

		owners[path] = t.Path
	}

	results := make([]rendered, len(templates))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.opts.Workers)

	for i, t := range templates {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				res, err := r.renderTemplate(m, t)
				if err != nil {
					return err
				}

				results[i] = res

				return nil
			}
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := &Output{}

	for i, res := range results {
		out.Blocks = append(out.Blocks, res.blocks...)

		switch {
		case res.file != nil:
			out.Files = append(out.Files, *res.file)
		case res.empty && len(res.blocks) == 0:
			out.Diagnostics.AddInfo(diagnostic.CodeEmptyOutput,
				fmt.Sprintf("template %s rendered no output", templates[i].Name),
				templates[i].Name, source.Location{File: templates[i].Path})
		}
	}

	return out, nil
}

func (r *Renderer) outputPath(t *Template) string {
	return filepath.Join(r.opts.OutputDir, t.OutputName())
}

func (r *Renderer) renderTemplate(m *model.Model, t *Template) (rendered, error) {
	var buf bytes.Buffer

	data := Context{Types: m, Args: r.opts.Args, Template: t.Name}
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return rendered{}, fmt.Errorf("executing template %s: %w", t.Path, err)
	}

	path := r.outputPath(t)

	blocks, rest, err := inline.ParseBlocks(buf.String(), path, r.opts.Delimiters)
	if err != nil {
		return rendered{}, fmt.Errorf("template %s: %w", t.Path, err)
	}

	if strings.TrimSpace(rest) == "" {
		r.opts.Logger.Debugw("template rendered no file content", "template", t.Name, "blocks", len(blocks))

		return rendered{blocks: blocks, empty: true}, nil
	}

	content := []byte(rest)

	if filepath.Ext(path) == ".go" {
		content = r.finishGo(content)

		if r.opts.Format {
			formatted, err := imports.Process(path, content, nil)
			if err != nil {
				if debugPath := writeDebugUnformatted(path, content); debugPath != "" {
					return rendered{}, fmt.Errorf("formatting %s: %w (unformatted written to %s)", path, err, debugPath)
				}

				return rendered{}, fmt.Errorf("formatting %s: %w", path, err)
			}

			content = formatted
		}
	}

	r.opts.Logger.Debugw("rendered template", "template", t.Name, "output", path, "blocks", len(blocks))

	return rendered{
		file:   &GeneratedFile{Template: t.Name, Path: path, Content: content},
		blocks: blocks,
	}, nil
}

// finishGo prepends the header unless the template already emitted it.
func (r *Renderer) finishGo(content []byte) []byte {
	header := strings.TrimSpace(r.opts.Header)
	if header == "" || bytes.HasPrefix(bytes.TrimSpace(content), []byte(header)) {
		return content
	}

	return append([]byte(header+"\n\n"), bytes.TrimLeft(content, "\n")...)
}

// WriteFiles writes files atomically, creating directories as needed, and
// returns the paths whose content changed. Unchanged files are not touched.
func WriteFiles(files []GeneratedFile) ([]string, error) {
	var changed []string

	for _, file := range files {
		ok, err := common.WriteFileAtomic(file.Path, file.Content)
		if err != nil {
			return changed, fmt.Errorf("writing file %s: %w", file.Path, err)
		}

		if ok {
			changed = append(changed, file.Path)
		}
	}

	return changed, nil
}
