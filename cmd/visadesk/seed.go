package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/rpattn/visadesk/internal/catalog"
	"github.com/rpattn/visadesk/internal/seed"
)

var (
	seedOrg  string
	seedFile string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load service types, service levels and consular fees from a YAML file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		orgID, err := uuid.Parse(seedOrg)
		if err != nil {
			return fmt.Errorf("invalid --org %q: %w", seedOrg, err)
		}

		st, err := openStore(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer st.conn.Close()

		catalogService := catalog.NewService(st.repos, st.tx, catalog.WithLogger(log.Logger))
		loader := seed.NewLoader(afero.NewOsFs(), catalogService, log.Logger)

		result, err := loader.LoadFile(cmd.Context(), orgID, seedFile)
		if err != nil {
			return err
		}
		log.Info().
			Str("organization_id", orgID.String()).
			Int("service_types", result.ServiceTypes).
			Int("service_levels", result.ServiceLevels).
			Int("consular_fees", result.ConsularFees).
			Msg("seed applied")
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedOrg, "org", "", "Organization ID that owns the seeded records")
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Path to the seed YAML file")
	cobra.CheckErr(seedCmd.MarkFlagRequired("org"))
	cobra.CheckErr(seedCmd.MarkFlagRequired("file"))
}
