// CLAUDE:SUMMARY One-shot CLI subcommands: normalize, match, lookup names and list name sources.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hazyhaar/touchstone-names/pkg/importer"
	"github.com/hazyhaar/touchstone-names/pkg/names"
)

func cmdNormalize(args []string) {
	fs := flag.NewFlagSet("normalize", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	cfg, logger := mustSetup(*cfgPath, os.Stderr)
	svc := mustService(cfg, logger)

	inputs := fs.Args()
	if len(inputs) == 0 {
		var err error
		if inputs, err = readLines(os.Stdin); err != nil {
			fmt.Fprintf(os.Stderr, "read stdin: %v\n", err)
			os.Exit(1)
		}
	}
	for _, name := range inputs {
		fmt.Printf("%s\t%s\n", name, svc.Normalizer.Normalize(name))
	}
}

func cmdMatch(args []string) {
	fs := flag.NewFlagSet("match", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	threshold := fs.String("threshold", "", "weak, normal or strong (default from config)")
	fs.Parse(args)

	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: touchstone-names match [-threshold t] <name1> <name2>")
		os.Exit(2)
	}

	cfg, logger := mustSetup(*cfgPath, os.Stderr)
	svc := mustService(cfg, logger)

	t := cfg.DefaultThreshold
	if *threshold != "" {
		var err error
		if t, err = names.ParseThreshold(*threshold); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
	}

	name1, name2 := fs.Arg(0), fs.Arg(1)
	ok, err := svc.Comparator.IsMatch(name1, name2, t)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	k1, k2 := svc.Comparator.Encode(name1), svc.Comparator.Encode(name2)
	fmt.Printf("%s\t%s/%s\n", name1, k1.Primary, k1.Secondary)
	fmt.Printf("%s\t%s/%s\n", name2, k2.Primary, k2.Secondary)
	fmt.Printf("%s: %t\n", t, ok)
	if !ok {
		os.Exit(1)
	}
}

func cmdLookup(args []string) {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	timeout := fs.Duration("timeout", 30*time.Minute, "time allowed to ingest the configured sources")
	fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: touchstone-names lookup <name>...")
		os.Exit(2)
	}

	cfg, logger := mustSetup(*cfgPath, os.Stderr)
	svc := mustService(cfg, logger)
	if len(cfg.Sources) == 0 {
		logger.Warn("no sources configured, the directory is empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ingest(ctx, svc.Directory, cfg.Sources, logger, nil)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, name := range fs.Args() {
		enc.Encode(svc.Directory.Lookup(name))
	}
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

func cmdSources(args []string) {
	fs := flag.NewFlagSet("sources", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	check := fs.Bool("check", false, "check every configured source now (needs status_db)")
	fs.Parse(args)

	cfg, logger := mustSetup(*cfgPath, os.Stderr)

	fmt.Println("Presets:")
	for _, name := range importer.PresetNames() {
		p, _ := importer.LookupPreset(name)
		fmt.Printf("  %-22s  %s (%s)\n", name, p.Description, p.License)
	}

	fmt.Println()
	fmt.Println("Configured sources:")
	if cfg.StatusDB == "" {
		for _, spec := range cfg.Sources {
			fmt.Printf("  %-22s  %-7s %s\n", spec.Name, spec.Kind, spec.Path)
		}
		return
	}

	status, err := openStatus(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer status.Close()
	if *check {
		importer.NewChecker(status, logger, cfg.CheckInterval).CheckAll(context.Background())
	}

	list, err := status.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, st := range list {
		line := fmt.Sprintf("  %-22s  %-7s %s", st.Name, st.Kind, st.Path)
		if st.LastStatus != nil {
			line += fmt.Sprintf("  [%d]", *st.LastStatus)
		}
		if st.LastIndexed != nil {
			line += fmt.Sprintf("  indexed=%d", *st.LastIndexed)
		}
		if st.LastError != nil {
			line += "  error: " + *st.LastError
		}
		fmt.Println(line)
	}
}
