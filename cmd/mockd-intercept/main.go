// mockd-intercept checks and explains the fixture files used by
// intercepted HTTP tests.
package main

import "github.com/getmockd/intercept/pkg/cli"

func main() {
	cli.Execute()
}
