// Package render executes user templates against the composed model.
//
// Rendering approach uses text/template + golang.org/x/tools/imports:
//   - templates are loaded from files, directories, and globs
//   - each template writes one output file, <base>.generated<ext>
//   - inline blocks are split out of the rendered text for the inline engine
//   - Go outputs get a generated-code header and are formatted with goimports
package render
