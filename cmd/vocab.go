package main

import (
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/recap-cli/internal/vocab"
)

// vocabView is the printable form of the effective vocabulary.
type vocabView struct {
	Tickers  []string          `yaml:"tickers"`
	PriceIDs map[string]string `yaml:"price_ids,omitempty"`
	ASRFixes []vocabFixView    `yaml:"asr_fixes"`
}

type vocabFixView struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

func newVocabView(v *vocab.Vocabulary) vocabView {
	view := vocabView{Tickers: v.Tickers(), PriceIDs: make(map[string]string)}
	for _, t := range view.Tickers {
		if id, ok := v.PriceID(t); ok {
			view.PriceIDs[t] = id
		}
	}
	for _, f := range v.ASRFixes() {
		view.ASRFixes = append(view.ASRFixes, vocabFixView{Pattern: strings.TrimPrefix(f.Pattern.String(), "(?i)"), Replacement: f.Replacement})
	}
	return view
}

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Print the effective ticker whitelist and ASR fixes",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := loadVocab(cfg.Vocab.File)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(newVocabView(v))
	},
}

func init() {
	rootCmd.AddCommand(vocabCmd)
}
