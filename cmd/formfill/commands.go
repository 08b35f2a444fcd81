package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/formfill/internal/corpus"
)

// #region extract
func newExtractCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file|->",
		Short: "Infer field names for the placeholders in a form document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args[0])
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}
			svc, _, err := openService(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer svc.Close()
			return printJSON(cmd.OutOrStdout(), svc.Extract(string(text), nil))
		},
	}
}

// #endregion extract

// #region match
func newMatchCmd(flags *rootFlags) *cobra.Command {
	var (
		fields []string
		userID string
	)
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Fill target fields from the most relevant previous submission",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(fields) == 0 {
				return fmt.Errorf("--fields is required")
			}
			svc, _, err := openService(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer svc.Close()
			res, err := svc.Match(cmd.Context(), fields, userID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "comma-separated target field names")
	cmd.Flags().StringVar(&userID, "user", "", "restrict history to this user")
	return cmd
}

// #endregion match

// #region recommend
func newRecommendCmd(flags *rootFlags) *cobra.Command {
	var (
		fields      []string
		contextText string
		userID      string
		partial     map[string]string
	)
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Suggest values for fields",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(fields) == 0 {
				return fmt.Errorf("--field is required")
			}
			svc, _, err := openService(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer svc.Close()
			return printJSON(cmd.OutOrStdout(), svc.Recommend(cmd.Context(), fields, partial, contextText, userID))
		},
	}
	cmd.Flags().StringSliceVar(&fields, "field", nil, "field name (repeatable)")
	cmd.Flags().StringVar(&contextText, "context", "", "free text describing the form")
	cmd.Flags().StringVar(&userID, "user", "", "user whose history is preferred")
	cmd.Flags().StringToStringVar(&partial, "partial", nil, "already entered values, field=value")
	return cmd
}

// #endregion recommend

// #region feedback
func newFeedbackCmd(flags *rootFlags) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "feedback <field> <value>",
		Short: "Record the value finally chosen for a field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := openService(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer svc.Close()
			sub, err := svc.Feedback(cmd.Context(), args[0], args[1], userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sub.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user who entered the value")
	return cmd
}

// #endregion feedback

// #region submit
func newSubmitCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <json|->",
		Short: "Store one submission given as a JSON object or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := []byte(args[0])
			if !strings.HasPrefix(strings.TrimSpace(args[0]), "{") {
				var err error
				if data, err = readInput(args[0]); err != nil {
					return fmt.Errorf("read submission: %w", err)
				}
			}
			var sub corpus.Submission
			if err := json.Unmarshal(data, &sub); err != nil {
				return fmt.Errorf("decode submission: %w", err)
			}
			svc, _, err := openService(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer svc.Close()
			stored, err := svc.Submit(cmd.Context(), sub)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), stored.ID)
			return nil
		},
	}
}

// #endregion submit

// #region import
func newImportCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <jsonl|->",
		Short: "Import newline-delimited submissions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open import: %w", err)
				}
				defer f.Close()
				in = f
			}
			svc, _, err := openService(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer svc.Close()
			res, err := svc.Import(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

// #endregion import

// #region complete
func newCompleteCmd(flags *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "complete <field> [prefix]",
		Short: "List stored values of a field starting with a prefix",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 2 {
				prefix = args[1]
			}
			svc, _, err := openService(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer svc.Close()
			for _, v := range svc.Complete(args[0], prefix, limit) {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum values")
	return cmd
}

// #endregion complete

// #region stats
func newStatsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the store and index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, err := openService(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer svc.Close()
			st, err := svc.Stats()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
}

// #endregion stats

// #region config
func newConfigCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return cfg.Write(cmd.OutOrStdout())
		},
	}
}

// #endregion config
