// Package config provides configuration loading and validation for the
// audiomh service. It handles YAML-based configuration with struct
// validation, built-in defaults so the tool runs without a config file, and
// startup resolution of the transcription API credential from the
// environment.
package config
