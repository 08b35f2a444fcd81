package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/danielpatrickdp/formfill/internal/corpus"
	"github.com/danielpatrickdp/formfill/internal/logging"
	"github.com/danielpatrickdp/formfill/internal/replay"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to formfill.db (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	last := flag.Int("last", 50, "DB mode: number of recorded match decisions to re-run")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/formfill.db [--last N]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *last)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region db-mode

// runDBMode re-runs recorded match decisions against the stored history and
// reports the ones that would now be answered differently.
func runDBMode(dbPath string, last int) int {
	store, err := corpus.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	history, err := store.List("", 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load history: %v\n", err)
		return 2
	}
	entries, err := logging.ListDecisions(store.DB(), logging.OpMatch, last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query provenance: %v\n", err)
		return 2
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no match decisions found in provenance_log")
		return 2
	}

	h := replay.NewHarness(history, replay.DefaultConfig(), logging.New("REPLAY"))
	ctx := context.Background()
	total, drifted := 0, 0
	fmt.Printf("%6s| %-28s| %-24s| %-24s\n", "ID", "Target", "Recorded", "Replayed")
	fmt.Printf("%6s+%-28s+%-24s+%-24s\n", "------", "-----------------------------", "-------------------------", "-------------------------")

	// entries are newest first, replay chronologically
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		var rec logging.MatchRecord
		if err := json.Unmarshal([]byte(e.PayloadJSON), &rec); err != nil || len(rec.Targets) == 0 {
			continue
		}
		total++
		drifts, err := h.Rerun(ctx, []logging.MatchRecord{rec}, e.UserID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rerun %d: %v\n", e.ID, err)
			return 2
		}
		if len(drifts) == 0 {
			continue
		}
		drifted++
		for _, t := range drifts[0].Changed {
			fmt.Printf("%6d| %-28s| %-24s| %-24s\n", e.ID, t, orDash(drifts[0].Before[t]), orDash(drifts[0].After[t]))
		}
	}

	fmt.Printf("\nSummary: %d decisions, %d unchanged, %d drifted\n", total, total-drifted, drifted)
	if drifted > 0 {
		return 1
	}
	return 0
}

// #endregion db-mode

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	cfg, err := f.Config.ToConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fixture config: %v\n", err)
		return 2
	}

	h := replay.NewHarness(f.History, cfg, logging.New("REPLAY"))
	results, err := h.Run(context.Background(), f.Cases)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}
	return printResults(results)
}

// #endregion fixture-mode

// #region output

// printResults outputs a result table and returns the exit code.
func printResults(results []replay.Result) int {
	fmt.Printf("%-24s| %-10s| %-6s| %s\n", "Case", "Kind", "Result", "Detail")
	fmt.Printf("%-24s+%-10s+%-6s+%s\n", "------------------------", "-----------", "-------", "--------------------")
	for _, r := range results {
		status, detail := "OK", summarizeGot(r.Got)
		if !r.Passed {
			status, detail = "DIFF", r.Reason
		}
		fmt.Printf("%-24s| %-10s| %-6s| %s\n", r.Case, r.Kind, status, detail)
	}

	s := replay.Summarize(results)
	fmt.Printf("\nSummary: %d total, %d pass, %d fail | precision %.2f recall %.2f\n",
		s.Total, s.Passed, s.Failed, s.Precision, s.Recall)
	if s.Failed > 0 {
		return 1
	}
	return 0
}

func summarizeGot(got map[string]string) string {
	keys := make([]string, 0, len(got))
	for k := range got {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, got[k]))
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// #endregion output
