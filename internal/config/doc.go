// Package config defines the settings shared by sosync client processes and
// provides helpers to load, validate and save them in YAML format.
//
// The Config type holds the record store address, the current user identity
// and the coordination timing knobs (settle delay, status reset window).
package config
