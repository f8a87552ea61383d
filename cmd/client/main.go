// Command client is gtstore's CLI driver: --get KEY or --put KEY --val
// VAL against the manager's current routing table (spec.md §6).
//
// Grounded on the original C++ client_cli.cpp's exit-code convention,
// carried verbatim: 0 on success, 1 on usage error, 2 on operation
// failure (SPEC_FULL.md "Supplemented Features").
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dreamware/gtstore/pkg/client"
	"github.com/dreamware/gtstore/pkg/config"
	"go.uber.org/zap"
)

const (
	exitOK         = 0
	exitUsageError = 1
	exitOpFailed   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(stderr)

	getKey := fs.String("get", "", "key to fetch")
	putKey := fs.String("put", "", "key to write")
	val := fs.String("val", "", "value for --put (comma-separated for a list)")
	managerHost := fs.String("manager-host", "", "override manager host")
	managerPort := fs.Int("manager-port", 0, "override manager port")

	if err := fs.Parse(args); err != nil {
		return exitUsageError
	}

	haveGet := *getKey != ""
	havePut := *putKey != ""
	if haveGet == havePut {
		fmt.Fprintln(stderr, "usage: client --get KEY | --put KEY --val VAL [--manager-host H] [--manager-port P]")
		return exitUsageError
	}
	if havePut && *val == "" {
		fmt.Fprintln(stderr, "usage: --put requires --val")
		return exitUsageError
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return exitUsageError
	}
	if *managerHost != "" {
		cfg.ManagerHost = *managerHost
	}
	if *managerPort != 0 {
		cfg.ManagerPort = *managerPort
	}

	logger := zap.NewNop()
	c := client.New("cli", cfg.ManagerAddr(), logger)
	defer c.Finalize()

	if err := c.Init(); err != nil {
		fmt.Fprintf(stderr, "failed to contact manager: %v\n", err)
		return exitOpFailed
	}

	if haveGet {
		values, err := c.Get(*getKey)
		if err != nil {
			fmt.Fprintf(stderr, "get failed: %v\n", err)
			return exitOpFailed
		}
		if len(values) == 0 {
			fmt.Fprintln(stderr, "key not found")
			return exitOpFailed
		}
		fmt.Fprintln(stdout, strings.Join(values, ","))
		return exitOK
	}

	ok, err := c.Put(*putKey, strings.Split(*val, ","))
	if err != nil {
		fmt.Fprintf(stderr, "put failed: %v\n", err)
		return exitOpFailed
	}
	if !ok {
		fmt.Fprintln(stderr, "put failed: no replica acknowledged")
		return exitOpFailed
	}
	fmt.Fprintln(stdout, "OK")
	return exitOK
}
