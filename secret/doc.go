// Package secret resolves configuration values that point at secrets.
//
// A value is first expanded with ExpandEnvStrict, so ${VAR} must be set.
// If the result has the form
//
//	secretref:<provider>:<ref>
//
// the named Provider resolves ref. Two providers ship with the package:
// "env" reads an environment variable and "file" reads a file, trimming
// one trailing newline (the layout used by mounted container secrets).
package secret
