package main

import (
	"flag"
	"fmt"
	"os"

	"forumdb/pkg/store"
)

// inspect dumps raw store keys (and optionally values) for debugging.
func main() {
	var (
		path   string
		prefix string
		vals   bool
	)
	flag.StringVar(&path, "db", "", "pebble DB path")
	flag.StringVar(&prefix, "prefix", "", "key prefix filter (e.g. thread: or version:)")
	flag.BoolVar(&vals, "values", false, "print values as well")
	flag.Parse()
	if path == "" {
		fmt.Fprintln(os.Stderr, "--db required")
		os.Exit(2)
	}

	if err := store.Open(path); err != nil {
		fmt.Fprintf(os.Stderr, "open failed: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	keys, err := store.ListKeys(prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list failed: %v\n", err)
		os.Exit(1)
	}
	for _, k := range keys {
		if !vals {
			fmt.Println(k)
			continue
		}
		v, err := store.GetKey(k)
		if err != nil {
			fmt.Printf("%s\t<error: %v>\n", k, err)
			continue
		}
		fmt.Printf("%s\t%s\n", k, v)
	}
	fmt.Fprintf(os.Stderr, "%d keys\n", len(keys))
}
