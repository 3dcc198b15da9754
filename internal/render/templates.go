package render

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	"source-weaver/internal/common"
)

// Template file extensions, stripped when naming outputs.
var templateExts = []string{".gotmpl", ".tmpl"}

// ErrNoTemplates indicates a template path that matches no template file.
var ErrNoTemplates = errors.New("no templates found")

// Template is one parsed template file.
type Template struct {
	// Name is the file name, e.g. "models.go.tmpl".
	Name string
	// Path is the file the template was read from.
	Path string

	tmpl *template.Template
}

// OutputName returns the file a template renders to: the template extension
// is dropped and ".generated" is inserted before the remaining extension,
// which defaults to ".go".
func (t *Template) OutputName() string {
	return OutputName(t.Name)
}

// OutputName derives the output file name for a template file name.
func OutputName(name string) string {
	for _, ext := range templateExts {
		if trimmed, ok := strings.CutSuffix(name, ext); ok {
			name = trimmed

			break
		}
	}

	ext := filepath.Ext(name)
	if ext == "" {
		ext = ".go"
	}

	return strings.TrimSuffix(name, filepath.Ext(name)) + ".generated" + ext
}

// ParseTemplate parses a template from text.
func ParseTemplate(name, text string) (*Template, error) {
	tmpl, err := template.New(name).Funcs(Funcs()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}

	return &Template{Name: name, Path: name, tmpl: tmpl}, nil
}

// LoadTemplates reads templates from paths. Each path is a template file, a
// directory searched recursively for *.tmpl and *.gotmpl files, or a glob.
// Templates are returned in path order, each file once.
func LoadTemplates(paths []string) ([]*Template, error) {
	var files []string

	for _, p := range paths {
		matches, err := expand(p)
		if err != nil {
			return nil, err
		}

		if len(matches) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoTemplates, p)
		}

		files = append(files, matches...)
	}

	files = common.Unique(files)

	templates := make([]*Template, 0, len(files))

	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading template: %w", err)
		}

		t, err := ParseTemplate(filepath.Base(f), string(content))
		if err != nil {
			return nil, err
		}

		t.Path = f
		templates = append(templates, t)
	}

	return templates, nil
}

func expand(p string) ([]string, error) {
	if strings.ContainsAny(p, "*?[") {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("template glob %s: %w", p, err)
		}

		slices.Sort(matches)

		return matches, nil
	}

	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("template path: %w", err)
	}

	if !info.IsDir() {
		return []string{filepath.Clean(p)}, nil
	}

	var out []string

	err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && IsTemplateFile(path) {
			out = append(out, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking templates in %s: %w", p, err)
	}

	return out, nil
}

// IsTemplateFile reports whether path has a template extension.
func IsTemplateFile(path string) bool {
	return slices.ContainsFunc(templateExts, func(ext string) bool {
		return strings.HasSuffix(path, ext)
	})
}
