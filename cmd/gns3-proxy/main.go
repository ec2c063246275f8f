// Command gns3-proxy runs the authenticating reverse proxy described in
// spec.md: it fronts a pool of GNS3 backend servers, routing each
// connection to one of them by authenticated username.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/gns3/gns3-proxy/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		var exitErr *cmd.ExitCodeError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
