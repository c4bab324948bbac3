package serviceloader

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rpattn/visadesk/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubSource struct {
	mu    sync.Mutex
	calls [][]uuid.UUID
	types []domain.ServiceType
	err   error
}

func (s *stubSource) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.ServiceType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, append([]uuid.UUID(nil), ids...))
	return s.types, s.err
}

func TestLoadManyBatchesAndPreservesOrder(t *testing.T) {
	orgID := uuid.New()
	a := domain.ServiceType{ID: uuid.New(), OrganizationID: orgID, Name: "Tourist"}
	b := domain.ServiceType{ID: uuid.New(), OrganizationID: orgID, Name: "Business"}
	foreign := domain.ServiceType{ID: uuid.New(), OrganizationID: uuid.New(), Name: "Other"}
	source := &stubSource{types: []domain.ServiceType{a, b, foreign}}

	loader := NewServiceTypeLoader(source, orgID)
	missing := uuid.New()
	got, err := loader.LoadMany(context.Background(), []uuid.UUID{b.ID, missing, a.ID, foreign.ID})
	require.NoError(t, err)

	require.Len(t, got, 4)
	assert.Equal(t, "Business", got[0].Name)
	assert.Nil(t, got[1])
	assert.Equal(t, "Tourist", got[2].Name)
	assert.Nil(t, got[3], "types of another organization are hidden")
	assert.Len(t, source.calls, 1)
}

func TestLoadCachesWithinLoader(t *testing.T) {
	orgID := uuid.New()
	st := domain.ServiceType{ID: uuid.New(), OrganizationID: orgID, Name: "Tourist"}
	source := &stubSource{types: []domain.ServiceType{st}}
	loader := NewServiceTypeLoader(source, orgID)

	for i := 0; i < 3; i++ {
		got, err := loader.Load(context.Background(), st.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, st.ID, got.ID)
	}
	assert.Len(t, source.calls, 1)
}

func TestLoadPropagatesSourceErrors(t *testing.T) {
	source := &stubSource{err: errors.New("database down")}
	loader := NewServiceTypeLoader(source, uuid.New())

	_, err := loader.Load(context.Background(), uuid.New())
	assert.EqualError(t, err, "database down")
}
