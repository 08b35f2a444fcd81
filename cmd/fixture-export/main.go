package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/formfill/internal/corpus"
	"github.com/danielpatrickdp/formfill/internal/logging"
	"github.com/danielpatrickdp/formfill/internal/replay"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to formfill.db")
	last := flag.Int("last", 20, "number of most recent match decisions to export")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/formfill.db --out path/to/fixture.json [--last N]")
		os.Exit(2)
	}

	if err := run(*dbPath, *last, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath string, last int, outPath string) error {
	store, err := corpus.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	history, err := store.List("", 0)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	entries, err := logging.ListDecisions(store.DB(), logging.OpMatch, last)
	if err != nil {
		return fmt.Errorf("query provenance: %w", err)
	}

	var (
		cases []replay.FixtureCase
		cfg   replay.FixtureConfig
	)
	// entries are newest first, export chronologically
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		var rec logging.MatchRecord
		if err := json.Unmarshal([]byte(e.PayloadJSON), &rec); err != nil || len(rec.Targets) == 0 {
			continue
		}
		if cfg.Strategy == "" {
			cfg = replay.FixtureConfig{Threshold: rec.Threshold, Strategy: rec.Strategy}
		}
		c, err := buildCase(store, e, rec)
		if err != nil {
			return err
		}
		cases = append(cases, c)
	}
	if len(cases) == 0 {
		return fmt.Errorf("no match decisions found in last %d provenance entries", last)
	}
	fmt.Printf("Found %d match decisions\n", len(cases))

	fixture := replay.Fixture{
		Description: fmt.Sprintf("Export of %d match decisions over %d submissions", len(cases), len(history)),
		Config:      cfg,
		History:     history,
		Cases:       cases,
	}
	if err := fixture.Save(outPath); err != nil {
		return err
	}
	fmt.Printf("Wrote fixture to %s (%d cases)\n", outPath, len(cases))
	return nil
}

// #endregion extract

// #region output

// buildCase turns a recorded decision into a case expecting the recorded
// values. Unassigned targets are expected to stay empty.
func buildCase(store *corpus.Store, e logging.ProvenanceEntry, rec logging.MatchRecord) (replay.FixtureCase, error) {
	c := replay.FixtureCase{
		Name:     fmt.Sprintf("decision-%d", e.ID),
		Kind:     replay.KindMatch,
		UserID:   e.UserID,
		Targets:  rec.Targets,
		Expected: make(map[string]string, len(rec.Targets)),
	}
	for _, t := range rec.Targets {
		c.Expected[t] = ""
	}
	if rec.SubmissionID == "" {
		return c, nil
	}
	sub, err := store.Get(rec.SubmissionID)
	if err != nil {
		return c, fmt.Errorf("decision %d: %w", e.ID, err)
	}
	for _, a := range rec.Assignments {
		c.Expected[a.Target] = sub.Values[a.Matched]
	}
	return c, nil
}

// #endregion output
