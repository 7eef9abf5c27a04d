// Command nettype reports the declared types and members of a .NET assembly
// selected by filter expressions.
package main

import "os"

// version is set at build time.
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
