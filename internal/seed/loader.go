package seed

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/rpattn/visadesk/internal/catalog"
	"github.com/rpattn/visadesk/internal/domain"
)

// File is the reference-data document loaded into one organization.
type File struct {
	ServiceTypes []ServiceTypeSeed `yaml:"serviceTypes"`
	ConsularFees []ConsularFeeSeed `yaml:"consularFees"`
}

// ServiceTypeSeed is a service type and the levels offered for it. Types are
// appended in file order.
type ServiceTypeSeed struct {
	Country     string             `yaml:"country"`
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	BasePrice   int64              `yaml:"basePrice"`
	Levels      []ServiceLevelSeed `yaml:"levels"`
}

type ServiceLevelSeed struct {
	Name           string `yaml:"name"`
	Price          int64  `yaml:"price"`
	ProcessingDays int    `yaml:"processingDays"`
}

type ConsularFeeSeed struct {
	Country  string `yaml:"country"`
	VisaType string `yaml:"visaType"`
	Entries  string `yaml:"entries"`
	Amount   int64  `yaml:"amount"`
}

// Catalog receives seeded records.
type Catalog interface {
	CreateServiceType(ctx context.Context, organizationID uuid.UUID, input catalog.ServiceTypeInput) (domain.ServiceType, error)
	CreateServiceLevel(ctx context.Context, organizationID uuid.UUID, level domain.ServiceLevel) (domain.ServiceLevel, error)
	CreateConsularFee(ctx context.Context, organizationID uuid.UUID, fee domain.ConsularFee) (domain.ConsularFee, error)
}

// Result counts the records created by Apply.
type Result struct {
	ServiceTypes  int
	ServiceLevels int
	ConsularFees  int
}

// Loader reads seed files from fs and writes them through a Catalog.
type Loader struct {
	fs      afero.Fs
	catalog Catalog
	logger  zerolog.Logger
}

// NewLoader creates a seed loader
func NewLoader(fs afero.Fs, catalog Catalog, logger zerolog.Logger) *Loader {
	return &Loader{fs: fs, catalog: catalog, logger: logger}
}

// Read parses a seed file. Unknown keys are rejected.
func (l *Loader) Read(path string) (File, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return File{}, fmt.Errorf("%w: seed file must be YAML, got %q", domain.ErrValidation, path)
	}

	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read seed file: %w", err)
	}

	var file File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return File{}, fmt.Errorf("%w: failed to parse seed file %s: %v", domain.ErrValidation, path, err)
	}
	return file, nil
}

// Apply creates every record of file in the organization. It stops at the
// first failure; records created before it are kept.
func (l *Loader) Apply(ctx context.Context, organizationID uuid.UUID, file File) (Result, error) {
	var result Result

	for _, fee := range file.ConsularFees {
		if _, err := l.catalog.CreateConsularFee(ctx, organizationID, domain.ConsularFee{
			Country:  fee.Country,
			VisaType: fee.VisaType,
			Entries:  fee.Entries,
			Amount:   domain.Money(fee.Amount),
		}); err != nil {
			return result, fmt.Errorf("failed to seed consular fee %s/%s: %w", fee.Country, fee.VisaType, err)
		}
		result.ConsularFees++
	}

	for _, st := range file.ServiceTypes {
		created, err := l.catalog.CreateServiceType(ctx, organizationID, catalog.ServiceTypeInput{
			Country:     st.Country,
			Name:        st.Name,
			Description: st.Description,
			BasePrice:   domain.Money(st.BasePrice),
		})
		if err != nil {
			return result, fmt.Errorf("failed to seed service type %s: %w", st.Name, err)
		}
		result.ServiceTypes++

		for _, level := range st.Levels {
			if _, err := l.catalog.CreateServiceLevel(ctx, organizationID, domain.ServiceLevel{
				ServiceTypeID:  created.ID,
				Name:           level.Name,
				Price:          domain.Money(level.Price),
				ProcessingDays: level.ProcessingDays,
			}); err != nil {
				return result, fmt.Errorf("failed to seed service level %s for %s: %w", level.Name, st.Name, err)
			}
			result.ServiceLevels++
		}
	}

	l.logger.Info().
		Str("organization_id", organizationID.String()).
		Int("service_types", result.ServiceTypes).
		Int("service_levels", result.ServiceLevels).
		Int("consular_fees", result.ConsularFees).
		Msg("seed applied")
	return result, nil
}

// LoadFile reads path and applies it.
func (l *Loader) LoadFile(ctx context.Context, organizationID uuid.UUID, path string) (Result, error) {
	file, err := l.Read(path)
	if err != nil {
		return Result{}, err
	}
	return l.Apply(ctx, organizationID, file)
}
