package ordering_test

import (
	"context"
	"errors"
	"testing"

	"taskboard/internal/ordering"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSiblingStore struct {
	mock.Mock
}

func (m *MockSiblingStore) MaxOrder(ctx context.Context, parentID uuid.UUID) (int, bool, error) {
	args := m.Called(ctx, parentID)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func TestNextOrder_EmptyParent(t *testing.T) {
	// Arrange
	store := new(MockSiblingStore)
	policy := ordering.NewPolicy(store)

	parentID := uuid.New()
	store.On("MaxOrder", mock.Anything, parentID).Return(0, false, nil)

	// Act
	order, err := policy.NextOrder(context.Background(), parentID)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 0, order)
}

func TestNextOrder_AppendsAfterMax(t *testing.T) {
	// Arrange
	store := new(MockSiblingStore)
	policy := ordering.NewPolicy(store)

	parentID := uuid.New()
	// Разреженные ключи: 0, 2, 5 — следующий всегда max+1
	store.On("MaxOrder", mock.Anything, parentID).Return(5, true, nil)

	// Act
	order, err := policy.NextOrder(context.Background(), parentID)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 6, order)
}

func TestNextOrder_SingleZeroSibling(t *testing.T) {
	// Arrange
	store := new(MockSiblingStore)
	policy := ordering.NewPolicy(store)

	parentID := uuid.New()
	store.On("MaxOrder", mock.Anything, parentID).Return(0, true, nil)

	// Act
	order, err := policy.NextOrder(context.Background(), parentID)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 1, order)
}

func TestNextOrder_StoreError(t *testing.T) {
	// Arrange
	store := new(MockSiblingStore)
	policy := ordering.NewPolicy(store)

	parentID := uuid.New()
	store.On("MaxOrder", mock.Anything, parentID).Return(0, false, errors.New("db down"))

	// Act
	_, err := policy.NextOrder(context.Background(), parentID)

	// Assert
	assert.Error(t, err)
}
