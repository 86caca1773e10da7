// Package main provides the entry point for the linkstatus CLI.
//
// linkstatus audits the health of every outbound link on a website. It
// crawls the site's internal pages, resolves each discovered link to its
// terminal HTTP outcome, and reports the links that need attention.
//
// Usage:
//
//	linkstatus audit https://example.com
//	linkstatus check --list urls.txt
//
// See --help for all available options.
package main

// main is the entry point for linkstatus.
func main() {
	Execute()
}
