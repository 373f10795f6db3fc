package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
)

// candidateFile is the input of the evaluate command. JSON documents are
// valid YAML and are read the same way.
type candidateFile struct {
	Source     string           `yaml:"source"`
	Candidates []candidateInput `yaml:"candidates"`
}

type candidateInput struct {
	Method           domain.Method `yaml:"method"`
	Text             string        `yaml:"text"`
	NativeConfidence *float64      `yaml:"native_confidence"`
}

func newEvaluateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate <candidates-file>",
		Short: "Score existing translations and select the best",
		Long: `Evaluate reads a source text and candidate translations from a YAML or
JSON file and runs a selection round over them without calling any
translation method:

  source: "..."
  candidates:
    - method: method_a
      text: "..."
      native_confidence: 0.9
    - method: method_b
      text: "..."

The judge is consulted when it is configured and the candidates are close.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := loadCandidates(args[0])
			if err != nil {
				return err
			}

			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			candidates := make([]*domain.Candidate, len(input.Candidates))
			for i, c := range input.Candidates {
				candidates[i] = domain.NewCandidate(c.Method, c.Text, input.Source, c.NativeConfidence)
			}
			sel, err := rt.Engine.Evaluate(cmd.Context(), input.Source, candidates)
			if err != nil {
				return err
			}

			r, out, err := a.renderer(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer out.Close()
			return r.Selection(sel)
		},
	}
}

func loadCandidates(path string) (*candidateFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read candidates: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var f candidateFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse candidates: %w", err)
	}
	if f.Source == "" {
		return nil, errors.New("candidates file has no source text")
	}
	if len(f.Candidates) == 0 {
		return nil, errors.New("candidates file lists no candidates")
	}
	return &f, nil
}
