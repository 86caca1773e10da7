// Package config provides configuration structures and utilities for
// linkstatus. It defines the crawl, resolution, and report options along
// with the YAML config file loader and validation.
package config
