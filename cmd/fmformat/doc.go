// Command fmformat renders a FaultMaven response as sidebar HTML.
//
// It reads the raw response from a file, or stdin when no file is given,
// and prints what the sidebar would display.
//
// Usage:
//
//	fmformat response.txt
//	curl -s .../query | jq -r .response | fmformat -sanitize
package main
