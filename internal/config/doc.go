// Package config provides the run configuration of clarityfilter: values
// from command line flags, the optional YAML configuration file with
// per-site overrides, and the XDG directories used for persistent data.
package config
