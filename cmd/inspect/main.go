package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/danielpatrickdp/formfill/internal/corpus"
	"github.com/danielpatrickdp/formfill/internal/logging"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to formfill.db")
	last := flag.Int("last", 20, "show N most recent rows")
	user := flag.String("user", "", "filter submissions to one user")
	submission := flag.String("submission", "", "show single submission detail")
	decisions := flag.Bool("decisions", false, "list provenance decisions instead of submissions")
	op := flag.String("op", "", "filter decisions to one operation (match, recommend, feedback, submit)")
	fields := flag.Bool("fields", false, "list field names with value counts")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/formfill.db [--last N] [--user id] [--submission id] [--decisions [--op name]] [--fields] [--json]")
		os.Exit(2)
	}

	store, err := corpus.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *submission != "":
		err = runDetailMode(store, *submission, *jsonOut)
	case *decisions:
		err = runDecisionMode(store, *op, *last, *jsonOut)
	case *fields:
		err = runFieldMode(store, *user, *jsonOut)
	default:
		err = runListMode(store, *user, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id,omitempty"`
	FormType  string `json:"form_type,omitempty"`
	Fields    int    `json:"fields"`
	CreatedAt string `json:"created_at"`
}

func runListMode(store *corpus.Store, user string, last int, jsonOut bool) error {
	subs, err := store.List(user, last)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		fmt.Fprintln(os.Stderr, "no submissions found")
		return nil
	}

	// store returns most recent first, reverse for chronological
	rows := make([]listRow, len(subs))
	for i, s := range subs {
		rows[len(subs)-1-i] = listRow{
			ID:        s.ID,
			UserID:    s.UserID,
			FormType:  s.FormType,
			Fields:    len(s.Values),
			CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}
	fmt.Printf("%-12s  %-12s  %-10s  %6s  %s\n", "Submission", "User", "Form", "Fields", "Time")
	fmt.Printf("%-12s+-%-12s+-%-10s+-%6s+-%s\n",
		"------------", "------------", "----------", "------", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-12s  %-12s  %-10s  %6d  %s\n",
			shortID(r.ID), orDash(r.UserID), orDash(r.FormType), r.Fields, r.CreatedAt)
	}
	if n := store.Skipped(); n > 0 {
		fmt.Printf("\n%d malformed rows skipped\n", n)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(store *corpus.Store, id string, jsonOut bool) error {
	sub, err := store.Get(id)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(sub)
	}

	fmt.Printf("Submission: %s\n", sub.ID)
	fmt.Printf("User:       %s\n", orDash(sub.UserID))
	fmt.Printf("Form:       %s\n", orDash(sub.FormType))
	fmt.Printf("Created:    %s\n", sub.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("\nValues:\n")
	for _, name := range sub.FieldNames() {
		fmt.Printf("  %-30s %s\n", name, sub.Values[name])
	}
	return nil
}

// #endregion detail-mode

// #region decision-mode

type decisionRow struct {
	ID        int64           `json:"id"`
	Operation string          `json:"operation"`
	Subject   string          `json:"subject"`
	UserID    string          `json:"user_id,omitempty"`
	Decision  string          `json:"decision"`
	Reason    string          `json:"reason,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt string          `json:"created_at"`
}

func runDecisionMode(store *corpus.Store, op string, last int, jsonOut bool) error {
	entries, err := logging.ListDecisions(store.DB(), op, last)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no decisions found")
		return nil
	}

	rows := make([]decisionRow, len(entries))
	for i, e := range entries {
		r := decisionRow{
			ID:        e.ID,
			Operation: e.Operation,
			Subject:   e.Subject,
			UserID:    e.UserID,
			Decision:  e.Decision,
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if e.PayloadJSON != "" {
			r.Payload = json.RawMessage(e.PayloadJSON)
		}
		rows[len(entries)-1-i] = r
	}

	if jsonOut {
		return printJSON(rows)
	}
	fmt.Printf("%6s  %-10s  %-9s  %-28s  %s\n", "ID", "Operation", "Decision", "Subject", "Detail")
	fmt.Printf("%6s+-%-10s+-%-9s+-%-28s+-%s\n",
		"------", "----------", "---------", "----------------------------", "--------------------")
	for _, r := range rows {
		fmt.Printf("%6d  %-10s  %-9s  %-28s  %s\n",
			r.ID, r.Operation, r.Decision, truncate(r.Subject, 28), detail(r))
	}
	return nil
}

// detail summarizes the payload of match and recommend decisions.
func detail(r decisionRow) string {
	switch r.Operation {
	case logging.OpMatch:
		var mr logging.MatchRecord
		if err := json.Unmarshal(r.Payload, &mr); err == nil {
			parts := make([]string, 0, len(mr.Assignments))
			for _, a := range mr.Assignments {
				parts = append(parts, fmt.Sprintf("%s<-%s (%.2f)", a.Target, a.Matched, a.Confidence))
			}
			if len(parts) > 0 {
				return strings.Join(parts, ", ")
			}
		}
	case logging.OpRecommend:
		var rr logging.RecommendRecord
		if err := json.Unmarshal(r.Payload, &rr); err == nil && rr.Default != "" {
			return fmt.Sprintf("default=%q (%.2f) of %d", rr.Default, rr.Confidence, len(rr.Suggestions))
		}
	}
	return r.Reason
}

// #endregion decision-mode

// #region field-mode

type fieldRow struct {
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Distinct int    `json:"distinct"`
}

func runFieldMode(store *corpus.Store, user string, jsonOut bool) error {
	subs, err := store.List(user, 0)
	if err != nil {
		return err
	}
	counts := map[string]int{}
	distinct := map[string]map[string]bool{}
	for _, s := range subs {
		for k, v := range s.Values {
			if v == "" {
				continue
			}
			counts[k]++
			if distinct[k] == nil {
				distinct[k] = map[string]bool{}
			}
			distinct[k][v] = true
		}
	}
	rows := make([]fieldRow, 0, len(counts))
	for name, n := range counts {
		rows = append(rows, fieldRow{Name: name, Count: n, Distinct: len(distinct[name])})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Name < rows[j].Name
	})

	if jsonOut {
		return printJSON(rows)
	}
	fmt.Printf("%-30s  %6s  %8s\n", "Field", "Count", "Distinct")
	for _, r := range rows {
		fmt.Printf("%-30s  %6d  %8d\n", truncate(r.Name, 30), r.Count, r.Distinct)
	}
	return nil
}

// #endregion field-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// #endregion output
