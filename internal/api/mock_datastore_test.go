package api

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/glats-richard/eigoonline/internal/datastore"
)

// mockDS is a testify mock over the datastore interface.
type mockDS struct {
	mock.Mock
}

var _ datastore.Interface = (*mockDS)(nil)

func (m *mockDS) Open() error  { return m.Called().Error(0) }
func (m *mockDS) Close() error { return m.Called().Error(0) }

func (m *mockDS) GetOverride(schoolID string) (*datastore.SchoolOverride, error) {
	args := m.Called(schoolID)
	row, _ := args.Get(0).(*datastore.SchoolOverride)
	return row, args.Error(1)
}

func (m *mockDS) ListOverrides() ([]datastore.SchoolOverride, error) {
	args := m.Called()
	rows, _ := args.Get(0).([]datastore.SchoolOverride)
	return rows, args.Error(1)
}

func (m *mockDS) UpsertOverride(schoolID string, data []byte) error {
	return m.Called(schoolID, data).Error(0)
}

func (m *mockDS) DeleteOverride(schoolID string) error {
	return m.Called(schoolID).Error(0)
}

func (m *mockDS) SaveReview(r *datastore.Review) error {
	return m.Called(r).Error(0)
}

func (m *mockDS) ApprovedReviews(schoolID string) ([]datastore.Review, error) {
	args := m.Called(schoolID)
	rows, _ := args.Get(0).([]datastore.Review)
	return rows, args.Error(1)
}

func (m *mockDS) CountRecentReviews(ipHash string, window time.Duration) (int64, error) {
	args := m.Called(ipHash, window)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockDS) UpdateReviewStatus(id uint, status string, comment *string) error {
	return m.Called(id, status, comment).Error(0)
}

func (m *mockDS) SaveConversion(cv *datastore.Conversion) error {
	return m.Called(cv).Error(0)
}

func (m *mockDS) GetConversionByEventID(eventID string) (*datastore.Conversion, error) {
	args := m.Called(eventID)
	row, _ := args.Get(0).(*datastore.Conversion)
	return row, args.Error(1)
}

func (m *mockDS) CountRecentConversions(ipHash string, window time.Duration) (int64, error) {
	args := m.Called(ipHash, window)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockDS) UpdateConversionStatus(id uint, status string) error {
	return m.Called(id, status).Error(0)
}

func (m *mockDS) SaveClick(cl *datastore.Click) error {
	return m.Called(cl).Error(0)
}
