// Command recmand is a minimal line-oriented record manager daemon,
// grounded on the teacher's sgbd/src/main.go bootstrap: a flag-parsed
// config path, a stdin command loop, EXIT flushing and closing
// everything cleanly.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sorenkrogh/recman/config"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	abs, _ := filepath.Abs(*cfgPath)
	cfg, err := config.Load(abs)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(2)
		}
		cfg = config.Default(".")
	}

	d, err := newDaemon(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize recmand: %v\n", err)
		os.Exit(2)
	}
	if err := d.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
		os.Exit(2)
	}
}
