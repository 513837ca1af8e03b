package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tmzncty/modelverify/pkg/verify/cache"
	"github.com/tmzncty/modelverify/pkg/verify/config"
	"github.com/tmzncty/modelverify/pkg/verify/history"
	"github.com/tmzncty/modelverify/pkg/verify/logging"
	"github.com/tmzncty/modelverify/pkg/verify/modelscope"
	"github.com/tmzncty/modelverify/pkg/verify/output"
	"github.com/tmzncty/modelverify/pkg/verify/reconcile"
	"github.com/tmzncty/modelverify/pkg/verify/repair"
	"github.com/tmzncty/modelverify/pkg/verify/scanner"
	"github.com/tmzncty/modelverify/pkg/verify/types"
)

// runVerify is the main verification command handler.
func runVerify(_ *cobra.Command, args []string) error {
	repoID := viper.GetString("repository")
	if len(args) > 0 {
		repoID = args[0]
	}
	if repoID == "" {
		return fmt.Errorf("no repository given; pass one as an argument or set repository in the config")
	}

	localDir := viper.GetString("local_dir")
	if localDir == "" {
		return fmt.Errorf("no local directory given; pass --local-dir or set local_dir in the config")
	}
	localDir, err := config.ExpandPath(localDir)
	if err != nil {
		return err
	}
	localDir, err = filepath.Abs(localDir)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := os.Stat(localDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("local model directory not found: %s", localDir)
		}
		return fmt.Errorf("cannot access local directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", localDir)
	}

	level := viper.GetString("logging.level")
	if viper.GetBool("verbose") {
		level = "debug"
	}
	if err := logging.Init(logging.Config{
		Level: level,
		Path:  viper.GetString("logging.path"),
		Quiet: getQuiet(),
	}); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		printInfo("\nInterrupted, finishing in-flight files...")
		cancel()
	}()

	revision := viper.GetString("revision")

	client := modelscope.NewClient(viper.GetString("api_base"))
	printInfo("Fetching official file metadata for %s@%s...", repoID, revision)
	manifest, err := client.FetchManifest(ctx, repoID, revision)
	if err != nil {
		// No scan or repair can proceed without a manifest.
		printError("could not retrieve official metadata: %v", err)
		return err
	}
	printInfo("Fetched metadata for %d files.", len(manifest))

	var digestCache *cache.Store
	if viper.GetBool("cache.enabled") {
		cachePath := viper.GetString("cache.path")
		digestCache, err = cache.Open(cachePath, repoID)
		if err != nil {
			printError("digest cache unavailable, hashing everything: %v", err)
			digestCache = nil
		} else {
			defer func() { _ = digestCache.Close() }()
		}
	}

	opts := scanner.Options{
		Root:    localDir,
		Workers: viper.GetInt("workers"),
		Cache:   digestCache,
		Watch:   viper.GetBool("watch"),
	}
	if !getQuiet() {
		opts.OnProgress = func(p scanner.Progress) {
			fmt.Fprintf(os.Stderr, "  Processed (%d/%d): %s\n", p.Done, p.Total, p.Name)
		}
	}

	scan, err := scanner.New(opts).Scan(ctx, manifest)
	if err != nil {
		return err
	}
	if ctx.Err() != nil && len(scan.Cancelled) > 0 {
		// An incomplete scan must not produce a report: files that were
		// never hashed would silently read as checked.
		return fmt.Errorf("verification interrupted: %d of %d files were never checked, no report produced",
			len(scan.Cancelled), len(manifest))
	}

	policy := reconcile.Policy{
		CriticalSuffixes: viper.GetStringSlice("critical.suffixes"),
		CriticalNames:    viper.GetStringSlice("critical.names"),
	}
	report := reconcile.Reconcile(manifest, scan.Scanned, scan.Missing, policy)

	if err := printReport(repoID, revision, localDir, manifest, scan, report); err != nil {
		return err
	}

	recordHistory(history.OpVerify, repoID, revision, report, scan)

	if viper.GetBool("repair") && len(report.Problems) > 0 {
		runRepair(ctx, repoID, revision, localDir, report, scan)
	} else if len(report.Problems) > 0 {
		printInfo("Re-run with --repair to remove problematic files and re-download.")
	}

	// Invalid files are reported, not failed on: the report itself is
	// the product of a successful run.
	return nil
}

// buildReport assembles the formatter input from the run's pieces.
func buildReport(repoID, revision, localDir string, manifest types.Manifest, scan *scanner.Result, rec *reconcile.Report) *output.Report {
	modified := make(map[string]bool, len(scan.ModifiedDuringScan))
	for _, name := range scan.ModifiedDuringScan {
		modified[name] = true
	}

	problemByName := make(map[string]types.Problem, len(rec.Problems))
	for _, p := range rec.Problems {
		problemByName[p.Name] = p
	}

	report := &output.Report{
		Repository: repoID,
		Revision:   revision,
		LocalRoot:  localDir,
		Valid:      rec.Valid,
		Stats: output.Stats{
			ManifestFiles:  len(manifest),
			FilesChecked:   rec.FilesChecked,
			FilesValid:     rec.FilesValid,
			FilesMissing:   len(rec.Problems) - countNonMissing(rec.Problems),
			MissingSkipped: len(rec.MissingSkipped),
			BytesHashed:    scan.BytesHashed,
			CacheHits:      scan.CacheHits,
			Elapsed:        scan.Elapsed,
		},
	}

	names := make([]string, 0, len(rec.Verdicts))
	for name := range rec.Verdicts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := manifest[name]
		row := output.FileResult{
			Name:               name,
			OK:                 !rec.Problems.Contains(name),
			OfficialSHA256:     entry.SHA256,
			OfficialSize:       entry.Size,
			LocalSize:          types.SizeNotFound,
			ModifiedDuringScan: modified[name],
		}
		if result, ok := scan.Scanned[name]; ok {
			row.LocalSHA256 = result.SHA256
			row.LocalSize = result.Size
		}
		var verdictNames []string
		for _, v := range rec.Verdicts[name] {
			verdictNames = append(verdictNames, v.String())
		}
		row.Status = strings.Join(verdictNames, ",")
		if p, ok := problemByName[name]; ok {
			row.Reason = p.Reason()
		}
		report.Files = append(report.Files, row)
		if !row.OK {
			report.Problems = append(report.Problems, row)
		}
	}

	if len(scan.ModifiedDuringScan) > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"%d file(s) were modified by another process during the scan; their mismatches may be a race with an in-progress download, not corruption",
			len(scan.ModifiedDuringScan)))
	}
	return report
}

// countNonMissing counts problems carrying any reason other than a
// plain local absence.
func countNonMissing(problems types.ProblemSet) int {
	n := 0
	for _, p := range problems {
		missing := false
		for _, reason := range p.Reasons {
			if reason == reconcile.ReasonMissing {
				missing = true
			}
		}
		if !missing {
			n++
		}
	}
	return n
}

// printReport formats and prints the verification report.
func printReport(repoID, revision, localDir string, manifest types.Manifest, scan *scanner.Result, rec *reconcile.Report) error {
	outFormat := viper.GetString("output")
	if outFormat == "" {
		outFormat = config.DefaultOutputFormat
	}
	formatter, err := output.Get(outFormat)
	if err != nil {
		return fmt.Errorf("unknown output format %q: available formats are %v", outFormat, output.Available())
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, buildReport(repoID, revision, localDir, manifest, scan, rec)); err != nil {
		return err
	}
	fmt.Print(buf.String())
	return nil
}

// recordHistory persists the run record; failures are logged, never fatal.
func recordHistory(op history.Operation, repoID, revision string, rec *reconcile.Report, scan *scanner.Result) {
	if !viper.GetBool("history.enabled") {
		return
	}
	logger := logging.Get("history")
	hlog, err := history.New(viper.GetString("history.path"))
	if err != nil {
		logger.Warn("history disabled", "error", err)
		return
	}
	_, err = hlog.Record(op, repoID, revision, rec.Valid, rec.Problems, history.Summary{
		FilesChecked: rec.FilesChecked,
		FilesValid:   rec.FilesValid,
		FilesMissing: len(rec.Problems) - countNonMissing(rec.Problems),
		BytesHashed:  scan.BytesHashed,
	})
	if err != nil {
		logger.Warn("could not record run", "error", err)
	}
}

// runRepair drives the repair coordinator for the found problems.
func runRepair(ctx context.Context, repoID, revision, localDir string, rec *reconcile.Report, scan *scanner.Result) {
	fetcher := modelscope.NewCLIFetcher(modelscope.FetchConfig{
		CacheRoot: viper.GetString("cache_root"),
		Debug:     viper.GetBool("fetch_debug"),
	})

	coordinator := repair.New(localDir, fetcher, makeConfirm())
	outcome := coordinator.Run(ctx, rec.Problems, repoID)

	if !outcome.Aborted {
		recordHistory(history.OpRepair, repoID, revision, rec, scan)
	}

	switch {
	case outcome.Aborted:
		printInfo("Repair cancelled. No files were deleted.")
	case outcome.FetchError != nil:
		printError("re-download failed: %v", outcome.FetchError)
		printInfo("Please re-run modelverify after downloading manually.")
	case outcome.Fetched:
		printInfo("Removed %d file(s), %d deletion error(s).", len(outcome.Deleted), len(outcome.DeleteErrors))
		printInfo("Please re-run modelverify after the re-download completes.")
	}
	for _, de := range outcome.DeleteErrors {
		printError("could not remove %s: %s", de.Path, de.Error)
	}
}

// makeConfirm returns the confirmation gate: scripted yes with --yes,
// otherwise an interactive y/n prompt on stdin.
func makeConfirm() repair.ConfirmFunc {
	if viper.GetBool("yes") {
		return func(prompt string) bool {
			printInfo("%sy (auto-confirmed)", prompt)
			return true
		}
	}
	reader := bufio.NewReader(os.Stdin)
	return func(prompt string) bool {
		fmt.Print(prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(line), "y")
	}
}
