package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alexivanou/geonames-sync/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEntityRepository implements repository.EntityRepository interface
type MockEntityRepository struct {
	mock.Mock
}

func (m *MockEntityRepository) GetSummary(ctx context.Context, kind model.Kind, geonameID int64) (*model.EntitySummary, error) {
	args := m.Called(ctx, kind, geonameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EntitySummary), args.Error(1)
}

func (m *MockEntityRepository) GetLocalizedName(ctx context.Context, kind model.Kind, entityID int64, lang string) (string, error) {
	args := m.Called(ctx, kind, entityID, lang)
	return args.String(0), args.Error(1)
}

func (m *MockEntityRepository) GetTranslations(ctx context.Context, kind model.Kind, entityID int64, lang string) ([]model.TranslationResult, error) {
	args := m.Called(ctx, kind, entityID, lang)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TranslationResult), args.Error(1)
}

func str(s string) *string { return &s }

func TestService_GetEntity(t *testing.T) {
	kyiv := &model.EntitySummary{
		ID:         7,
		GeonameID:  703448,
		Name:       "Kyiv",
		Latitude:   50.45,
		Longitude:  30.52,
		Population: 2797553,
		Timezone:   str("Europe/Kyiv"),
	}

	tests := []struct {
		name          string
		kind          model.Kind
		lang          string
		setupMocks    func(*MockEntityRepository)
		expectedError string
		expectNil     bool
		expectedName  string
	}{
		{
			name: "localized city",
			kind: model.KindCity,
			lang: "uk",
			setupMocks: func(repo *MockEntityRepository) {
				repo.On("GetSummary", mock.Anything, model.KindCity, int64(703448)).Return(kyiv, nil)
				repo.On("GetLocalizedName", mock.Anything, model.KindCity, int64(7), "uk").Return("Київ", nil)
				repo.On("GetTranslations", mock.Anything, model.KindCity, int64(7), "").Return([]model.TranslationResult{
					{Locale: str("uk"), Name: "Київ", IsPreferred: true},
				}, nil)
			},
			expectedName: "Київ",
		},
		{
			name: "default language",
			kind: model.KindCity,
			setupMocks: func(repo *MockEntityRepository) {
				repo.On("GetSummary", mock.Anything, model.KindCity, int64(703448)).Return(kyiv, nil)
				repo.On("GetLocalizedName", mock.Anything, model.KindCity, int64(7), "en").Return("Kyiv", nil)
				repo.On("GetTranslations", mock.Anything, model.KindCity, int64(7), "").Return(nil, nil)
			},
			expectedName: "Kyiv",
		},
		{
			name: "not found",
			kind: model.KindCountry,
			setupMocks: func(repo *MockEntityRepository) {
				repo.On("GetSummary", mock.Anything, model.KindCountry, int64(703448)).Return(nil, nil)
			},
			expectNil: true,
		},
		{
			name:          "unknown kind",
			kind:          model.Kind("planets"),
			expectedError: "unknown kind",
		},
		{
			name: "repository failure",
			kind: model.KindCity,
			setupMocks: func(repo *MockEntityRepository) {
				repo.On("GetSummary", mock.Anything, model.KindCity, int64(703448)).Return(nil, errors.New("db down"))
			},
			expectedError: "db down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockEntityRepository)
			if tt.setupMocks != nil {
				tt.setupMocks(repo)
			}

			svc := NewService(repo)
			resp, err := svc.GetEntity(context.Background(), tt.kind, 703448, tt.lang)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Nil(t, resp)
				return
			}

			require.NoError(t, err)
			if tt.expectNil {
				assert.Nil(t, resp)
				return
			}
			require.NotNil(t, resp)
			assert.Equal(t, tt.expectedName, resp.Name)
			assert.Equal(t, "Kyiv", resp.DefaultName)
			assert.Equal(t, model.Coordinate{Lat: 50.45, Lon: 30.52}, resp.Coordinates)
			assert.NotNil(t, resp.Translations)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_GetEntity_UnknownKindIsSentinel(t *testing.T) {
	svc := NewService(new(MockEntityRepository))
	_, err := svc.GetEntity(context.Background(), "planets", 1, "")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
