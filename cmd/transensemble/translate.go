package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
)

func newTranslateCmd(a *app) *cobra.Command {
	var single bool

	cmd := &cobra.Command{
		Use:   "translate [file]",
		Short: "Translate a file or standard input",
		Long: `Translate reads Arabic text from a file, or from standard input when no
file or "-" is given, and prints the selected English translation.

Long documents are split at sentence boundaries and each chunk is
translated in its own round. With --single the whole input is one round
and the full score breakdown is printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("input is empty")
			}

			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			r, out, err := a.renderer(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer out.Close()

			if single {
				sel, err := rt.Engine.Translate(cmd.Context(), ports.TranslationRequest{SourceText: text})
				if err != nil {
					return err
				}
				return r.Selection(sel)
			}

			res, err := rt.Documents.Translate(cmd.Context(), text)
			if err != nil {
				return err
			}
			return r.Document(res)
		},
	}
	cmd.Flags().BoolVar(&single, "single", false, "translate the input in a single round without chunking")
	return cmd
}

func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read standard input: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(b), nil
}
