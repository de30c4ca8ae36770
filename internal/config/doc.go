// Package config holds all configuration for webwalk: crawl parameters,
// report output options, and the optional .webwalk YAML file with
// per-site overrides.
//
// Configuration is built once from CLI flags (plus the config file),
// validated up front, and passed through the application by value —
// there is no global configuration state.
package config
