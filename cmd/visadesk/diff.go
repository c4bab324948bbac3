package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/rpattn/visadesk/internal/domain"
)

var (
	diffSection    string
	diffDateFields []string
)

var diffCmd = &cobra.Command{
	Use:   "diff OLD.json NEW.json",
	Short: "Print the audit notes a section change would produce",
	Long: `diff runs the change detector over two JSON objects without touching the
database and prints one audit note per line, exactly as they would be stored
on the case.`,
	Args: cobra.ExactArgs(2),
	// the detector needs neither config nor a database
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiff(afero.NewOsFs(), cmd.OutOrStdout(), diffSection, diffDateFields, args[0], args[1])
	},
}

func init() {
	diffCmd.Flags().StringVarP(&diffSection, "section", "s", "personalInfo", "Section name used as the note prefix")
	diffCmd.Flags().StringSliceVar(&diffDateFields, "date-field", nil,
		"Additional field names compared as calendar dates (repeatable)")
}

func runDiff(fs afero.Fs, out io.Writer, section string, dateFields []string, oldPath, newPath string) error {
	oldData, err := readSnapshot(fs, oldPath)
	if err != nil {
		return err
	}
	newData, err := readSnapshot(fs, newPath)
	if err != nil {
		return err
	}

	var opts []domain.DetectorOption
	if len(dateFields) > 0 {
		fields := append(append([]string{}, domain.DefaultDateFields...), dateFields...)
		opts = append(opts, domain.WithDateFields(fields...))
	}
	for _, record := range domain.NewChangeDetector(opts...).Detect(oldData, newData, section) {
		if _, err := fmt.Fprintln(out, record.Note); err != nil {
			return err
		}
	}
	return nil
}

func readSnapshot(fs afero.Fs, path string) (domain.Snapshot, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var snapshot domain.Snapshot
	if err := decoder.Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return snapshot, nil
}
