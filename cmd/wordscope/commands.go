package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/23skdu/wordscope/internal/core"
	"github.com/23skdu/wordscope/internal/projection"
	"github.com/spf13/cobra"
)

func newVectorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vector <token>",
		Short: "Print the raw vector of a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			vec, err := app.Engine.Vector(args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, map[string]interface{}{"token": args[0], "vector": vec}, func() {
				parts := make([]string, len(vec))
				for i, v := range vec {
					parts[i] = fmt.Sprintf("%g", v)
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, " "))
			})
		},
	}
}

func newSimilarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similar <token>",
		Short: "List the tokens nearest to a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, _ := cmd.Flags().GetInt("k")
			keepSelf, _ := cmd.Flags().GetBool("keep-self")

			app, err := setup(cmd)
			if err != nil {
				return err
			}
			matches, err := app.Cached.ByToken(cmd.Context(), args[0], k, !keepSelf)
			if err != nil {
				return err
			}
			return printMatches(cmd, matches)
		},
	}
	cmd.Flags().IntP("k", "k", 20, "Number of neighbours to retrieve")
	cmd.Flags().Bool("keep-self", false, "Keep the query token in the results")
	return cmd
}

func newAnalogyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "analogy",
		Short:   "Solve an analogy: sum(positive) - sum(negative)",
		Example: `  wordscope analogy --positive king,woman --negative man`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, _ := cmd.Flags().GetString("positive")
			neg, _ := cmd.Flags().GetString("negative")
			k, _ := cmd.Flags().GetInt("k")

			positive, negative := splitTerms(pos), splitTerms(neg)
			if len(positive) == 0 && len(negative) == 0 {
				return core.NewInvalidArgumentError("positive", "at least one term is required")
			}

			app, err := setup(cmd)
			if err != nil {
				return err
			}
			matches, err := app.Cached.Analogy(cmd.Context(), positive, negative, k)
			if err != nil {
				return err
			}
			return printMatches(cmd, matches)
		},
	}
	cmd.Flags().String("positive", "", "Terms to add, separated by commas or spaces")
	cmd.Flags().String("negative", "", "Terms to subtract, separated by commas or spaces")
	cmd.Flags().IntP("k", "k", 20, "Number of results")
	return cmd
}

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project <token>",
		Short: "Project a token's neighbourhood to 3D and write it as Parquet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")

			app, err := setup(cmd)
			if err != nil {
				return err
			}
			opts := projection.DefaultOptions()
			opts.Sample = app.Config.ProjectionSample
			opts.Seed = app.Config.ProjectionSeed
			opts.Logger = app.Logger
			if cmd.Flags().Changed("sample") {
				opts.Sample, _ = cmd.Flags().GetInt("sample")
			}

			points, err := projection.Neighborhood(cmd.Context(), app.Cached, app.Table, args[0], opts)
			if err != nil {
				return err
			}

			if out == "" {
				return printResult(cmd, points, func() {
					for _, p := range points {
						fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.4f\t%.4f\t%.4f\t%t\n", p.Token, p.X, p.Y, p.Z, p.Highlight)
					}
				})
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := projection.WriteParquet(f, points); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			return printResult(cmd, map[string]interface{}{"path": out, "points": len(points)}, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d points to %s\n", len(points), out)
			})
		},
	}
	cmd.Flags().String("out", "", "Parquet output path (prints rows when empty)")
	cmd.Flags().Int("sample", 0, "Background tokens to include (overrides WORDSCOPE_PROJECTION_SAMPLE)")
	return cmd
}

// splitTerms splits on commas or whitespace and strips punctuation from
// each term.
func splitTerms(s string) []string {
	var out []string
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	for _, part := range fields {
		term := strings.Map(func(r rune) rune {
			if unicode.IsPunct(r) {
				return -1
			}
			return r
		}, part)
		if term != "" {
			out = append(out, term)
		}
	}
	return out
}

func printMatches(cmd *cobra.Command, matches []core.Match) error {
	if matches == nil {
		matches = []core.Match{}
	}
	return printResult(cmd, matches, func() {
		for _, m := range matches {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.4f\n", m.Token, m.Score)
		}
	})
}

// printResult writes v as JSON when --json is set, otherwise runs text.
func printResult(cmd *cobra.Command, v interface{}, text func()) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	if !jsonOut {
		text()
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
