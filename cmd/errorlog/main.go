// Command errorlog runs a reverse proxy supervised by the error log
// middleware, which records handler panics and serves them at a diagnostic
// path.
package main

import "errorlog/cmd/errorlog/cmd"

func main() {
	cmd.Execute()
}
