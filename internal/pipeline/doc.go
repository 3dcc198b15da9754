// Package pipeline runs one generation pass:
//
//	extract -> compose -> model -> render -> write -> inline merge -> report
//
// Fatal composition errors stop the run before anything is written.
// Everything else is collected into the Report.
package pipeline
