package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/rpattn/visadesk/internal/domain"
	"github.com/rpattn/visadesk/internal/export"
)

var (
	exportOrg     string
	exportOut     string
	exportStatus  string
	exportCountry string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write an organization's cases and audit log to an xlsx workbook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		orgID, err := uuid.Parse(exportOrg)
		if err != nil {
			return fmt.Errorf("invalid --org %q: %w", exportOrg, err)
		}
		filter := domain.CaseFilter{Status: domain.CaseStatus(exportStatus), Country: exportCountry}
		if filter.Status != "" && !filter.Status.Valid() {
			return fmt.Errorf("unknown status %q", exportStatus)
		}
		if exportOut == "" {
			exportOut = fmt.Sprintf("cases-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
		}

		st, err := openStore(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer st.conn.Close()

		fs := afero.NewOsFs()
		file, err := fs.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOut, err)
		}
		defer func() {
			if closeErr := file.Close(); closeErr != nil {
				log.Error().Err(closeErr).Str("file", exportOut).Msg("failed to close export file")
			}
		}()

		service := export.NewService(st.repos.Cases, st.repos.CaseLogs, export.WithLogger(log.Logger))
		summary, err := service.WriteWorkbook(cmd.Context(), orgID, filter, file)
		if err != nil {
			return err
		}
		log.Info().
			Str("file", exportOut).
			Int("cases", summary.Cases).
			Int("entries", summary.Entries).
			Msg("export written")
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOrg, "org", "", "Organization ID to export")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output path (default cases-<timestamp>.xlsx)")
	exportCmd.Flags().StringVar(&exportStatus, "status", "", "Only export cases in this status")
	exportCmd.Flags().StringVar(&exportCountry, "country", "", "Only export cases for this destination country")
	cobra.CheckErr(exportCmd.MarkFlagRequired("org"))
}
