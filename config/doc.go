// Package config loads the landmarkd configuration.
//
// Values are layered: built-in defaults, then the YAML file (by default
// $XDG_CONFIG_HOME/landmarks/config.yaml), then LANDMARKS_* environment
// variables, with a .env file in the working directory loaded first.
// Credential fields may hold ${VAR} or secretref:<provider>:<ref> and are
// resolved through the secret package before validation.
package config
