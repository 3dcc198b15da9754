// Package config loads the .weaver.yml project file.
//
// Values come, lowest precedence first, from built-in defaults, the YAML
// file, and WEAVER_* environment variables (e.g. WEAVER_OUTPUT,
// WEAVER_INLINE_INDENT). Relative paths are resolved against the directory
// holding the config file.
package config
