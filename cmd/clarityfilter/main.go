// Package main provides the entry point for the ClarityFilter CLI.
//
// ClarityFilter conceals page content that mentions terms the user chose
// not to see. It hides, blurs, pixelates or rewrites the smallest card or
// item holding a match and leaves the rest of the page alone.
//
// Usage:
//
//	clarityfilter settings add "Some Name"
//	clarityfilter filter page.html > filtered.html
//	clarityfilter watch page.html < fragments.html
//
// See --help for all available options.
package main

// main is the entry point for ClarityFilter.
func main() {
	Execute()
}
