// Package config loads the editor configuration.
//
// Files are YAML (.yaml, .yml) or TOML (.toml). Decoding is strict: unknown
// keys are errors. After decoding, environment overrides are applied, then
// defaults, then struct validation:
//
//	INKWELL_LOG_LEVEL    log.level
//	INKWELL_FIELD_PATH   field.path
//	INKWELL_REMOTE_ADDR  remote.addr
//
// Relative paths (field.path, content.file, plugins.list[].file) are
// resolved against the directory of the config file.
package config
