package serviceloader

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"

	"github.com/rpattn/visadesk/internal/domain"
)

// ServiceTypeSource fetches service types by primary key.
type ServiceTypeSource interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.ServiceType, error)
}

// ServiceTypeLoader batches service-type lookups made while serving one
// request. Types owned by another organization resolve to nil.
type ServiceTypeLoader struct {
	Loader *dataloader.Loader
}

// NewServiceTypeLoader builds a loader restricted to organizationID.
func NewServiceTypeLoader(source ServiceTypeSource, organizationID uuid.UUID) *ServiceTypeLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		ids := make([]uuid.UUID, 0, len(keys))
		parsed := make([]uuid.UUID, len(keys))
		for i, k := range keys {
			id, err := uuid.Parse(k.String())
			if err != nil {
				results[i] = &dataloader.Result{Error: fmt.Errorf("invalid UUID: %w", err)}
				continue
			}
			parsed[i] = id
			ids = append(ids, id)
		}

		types, err := source.GetByIDs(ctx, ids)
		if err != nil {
			for i := range results {
				if results[i] == nil {
					results[i] = &dataloader.Result{Error: err}
				}
			}
			return results
		}

		byID := make(map[uuid.UUID]domain.ServiceType, len(types))
		for _, st := range types {
			if st.OrganizationID == organizationID {
				byID[st.ID] = st
			}
		}

		// Results must line up with keys.
		for i, id := range parsed {
			if results[i] != nil {
				continue
			}
			if st, ok := byID[id]; ok {
				st := st
				results[i] = &dataloader.Result{Data: &st}
			} else {
				results[i] = &dataloader.Result{Data: (*domain.ServiceType)(nil)}
			}
		}
		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))
	return &ServiceTypeLoader{Loader: loader}
}

// Load resolves one service type; a missing type yields nil without error.
func (l *ServiceTypeLoader) Load(ctx context.Context, id uuid.UUID) (*domain.ServiceType, error) {
	value, err := l.Loader.Load(ctx, dataloader.StringKey(id.String()))()
	if err != nil {
		return nil, err
	}
	st, _ := value.(*domain.ServiceType)
	return st, nil
}

// LoadMany resolves ids in one batch, preserving their order.
func (l *ServiceTypeLoader) LoadMany(ctx context.Context, ids []uuid.UUID) ([]*domain.ServiceType, error) {
	keys := make(dataloader.Keys, len(ids))
	for i, id := range ids {
		keys[i] = dataloader.StringKey(id.String())
	}

	values, errs := l.Loader.LoadMany(ctx, keys)()
	out := make([]*domain.ServiceType, len(ids))
	for i := range ids {
		if i < len(errs) && errs[i] != nil {
			return nil, fmt.Errorf("failed to load service type %s: %w", ids[i], errs[i])
		}
		out[i], _ = values[i].(*domain.ServiceType)
	}
	return out, nil
}
