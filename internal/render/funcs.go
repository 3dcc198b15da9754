package render

import (
	"fmt"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"source-weaver/internal/annotation"
	"source-weaver/internal/compose"
)

// Funcs returns the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"pluralize":        inflect.Pluralize,
		"singularize":      inflect.Singularize,
		"camelize":         inflect.Camelize,
		"underscore":       inflect.Underscore,
		"dasherize":        inflect.Dasherize,
		"title":            title,
		"upperFirst":       upperFirst,
		"lowerFirst":       lowerFirst,
		"join":             join,
		"contains":         strings.Contains,
		"hasPrefix":        strings.HasPrefix,
		"hasSuffix":        strings.HasSuffix,
		"annotation":       annotationValue,
		"hasAnnotation":    hasAnnotation,
		"annotationString": annotationString,
	}
}

// title builds a Caser per call; Casers are stateful and templates render
// concurrently.
func title(s string) string {
	return cases.Title(language.English).String(s)
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}

	return string(unicode.ToUpper(r)) + s[size:]
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}

	return string(unicode.ToLower(r)) + s[size:]
}

// join concatenates strings, type references by name, or types by local name.
func join(sep string, items any) (string, error) {
	switch v := items.(type) {
	case []string:
		return strings.Join(v, sep), nil
	case []compose.TypeRef:
		names := make([]string, len(v))
		for i, r := range v {
			names[i] = r.Name
		}

		return strings.Join(names, sep), nil
	case []*compose.LogicalType:
		names := make([]string, len(v))
		for i, t := range v {
			names[i] = t.LocalName
		}

		return strings.Join(names, sep), nil
	case []any:
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = fmt.Sprint(x)
		}

		return strings.Join(parts, sep), nil
	default:
		return "", fmt.Errorf("join: unsupported value of type %T", items)
	}
}

func bagOf(subject any) (annotation.Bag, error) {
	switch s := subject.(type) {
	case *compose.LogicalType:
		return s.Annotations, nil
	case *compose.Member:
		return s.Annotations, nil
	case compose.Member:
		return s.Annotations, nil
	case *compose.Parameter:
		return s.Annotations, nil
	case compose.Parameter:
		return s.Annotations, nil
	case annotation.Bag:
		return s, nil
	default:
		return nil, fmt.Errorf("value of type %T has no annotations", subject)
	}
}

// annotationValue returns the plain Go value of key, or nil when absent.
func annotationValue(key string, subject any) (any, error) {
	bag, err := bagOf(subject)
	if err != nil {
		return nil, err
	}

	v, ok := bag.Get(key)
	if !ok {
		return nil, nil
	}

	return v.Interface(), nil
}

func hasAnnotation(key string, subject any) (bool, error) {
	bag, err := bagOf(subject)
	if err != nil {
		return false, err
	}

	return bag.Has(key), nil
}

// annotationString returns the string value of key, or "" when the value is
// absent or not a string.
func annotationString(key string, subject any) (string, error) {
	bag, err := bagOf(subject)
	if err != nil {
		return "", err
	}

	v, ok := bag.Get(key)
	if !ok {
		return "", nil
	}

	s, _ := v.AsString()

	return s, nil
}
