package appeal

import (
	"testing"

	"anonchat/backend/internal/models"
	"anonchat/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockStorage covers the slice of the Storage interface the appeal flow
// touches; unexpected calls fall through to the nil interface and panic.
type MockStorage struct {
	mock.Mock
	storage.Storage
}

func (m *MockStorage) GetBanByIP(ip string) (*models.BanRecord, error) {
	args := m.Called(ip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BanRecord), args.Error(1)
}

func (m *MockStorage) GetPendingAppealByIP(ip string) (*models.BanAppeal, error) {
	args := m.Called(ip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BanAppeal), args.Error(1)
}

func (m *MockStorage) CreateAppeal(appeal *models.BanAppeal) error {
	args := m.Called(appeal)
	return args.Error(0)
}

func (m *MockStorage) GetAppealByID(id uint) (*models.BanAppeal, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BanAppeal), args.Error(1)
}

func (m *MockStorage) UpdateAppeal(appeal *models.BanAppeal) error {
	args := m.Called(appeal)
	return args.Error(0)
}

func (m *MockStorage) DeleteBanByIP(ip string) error {
	args := m.Called(ip)
	return args.Error(0)
}

func (m *MockStorage) PublishBanUpdate(ip string) error {
	args := m.Called(ip)
	return args.Error(0)
}

func TestSubmitRequiresActiveBan(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetBanByIP", "1.1.1.1").Return(nil, nil)

	svc := NewService(storageMock, nil)
	_, err := svc.Submit("1.1.1.1", "a@b.c", "please")

	assert.ErrorIs(t, err, ErrNoActiveBan)
	storageMock.AssertExpectations(t)
}

func TestSubmitRejectsSecondPending(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetBanByIP", "1.1.1.1").Return(&models.BanRecord{ID: 1, IP: "1.1.1.1"}, nil)
	storageMock.On("GetPendingAppealByIP", "1.1.1.1").Return(&models.BanAppeal{ID: 7, IP: "1.1.1.1"}, nil)

	svc := NewService(storageMock, nil)
	_, err := svc.Submit("1.1.1.1", "a@b.c", "please")

	assert.ErrorIs(t, err, ErrAlreadyPending)
}

func TestSubmitCreatesPendingAppeal(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetBanByIP", "1.1.1.1").Return(&models.BanRecord{ID: 1, IP: "1.1.1.1"}, nil)
	storageMock.On("GetPendingAppealByIP", "1.1.1.1").Return(nil, nil)
	storageMock.On("CreateAppeal", mock.AnythingOfType("*models.BanAppeal")).Return(nil)

	svc := NewService(storageMock, nil)
	appeal, err := svc.Submit("1.1.1.1", "a@b.c", "please")

	assert.NoError(t, err)
	assert.Equal(t, models.AppealPending, appeal.Status)
	assert.NotZero(t, appeal.SubmittedAt)
	storageMock.AssertExpectations(t)
}

func TestResolveApprovalLiftsBan(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetAppealByID", uint(7)).Return(&models.BanAppeal{
		ID: 7, IP: "1.1.1.1", Status: models.AppealPending,
	}, nil)
	storageMock.On("UpdateAppeal", mock.AnythingOfType("*models.BanAppeal")).Return(nil)
	storageMock.On("DeleteBanByIP", "1.1.1.1").Return(nil)
	storageMock.On("PublishBanUpdate", "1.1.1.1").Return(nil)

	svc := NewService(storageMock, nil)
	resolved, err := svc.Resolve(7, models.AppealApproved, "checked", "admin")

	assert.NoError(t, err)
	assert.Equal(t, models.AppealApproved, resolved.Status)
	assert.Equal(t, "admin", resolved.Reviewer)
	assert.NotZero(t, resolved.ReviewedAt)
	storageMock.AssertCalled(t, "DeleteBanByIP", "1.1.1.1")
	storageMock.AssertExpectations(t)
}

func TestResolveRejectionKeepsBan(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetAppealByID", uint(7)).Return(&models.BanAppeal{
		ID: 7, IP: "1.1.1.1", Status: models.AppealPending,
	}, nil)
	storageMock.On("UpdateAppeal", mock.AnythingOfType("*models.BanAppeal")).Return(nil)

	svc := NewService(storageMock, nil)
	resolved, err := svc.Resolve(7, models.AppealRejected, "", "admin")

	assert.NoError(t, err)
	assert.Equal(t, models.AppealRejected, resolved.Status)
	storageMock.AssertNotCalled(t, "DeleteBanByIP", mock.Anything)
}

func TestResolveTerminalStates(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetAppealByID", uint(7)).Return(&models.BanAppeal{
		ID: 7, IP: "1.1.1.1", Status: models.AppealApproved,
	}, nil)

	svc := NewService(storageMock, nil)
	_, err := svc.Resolve(7, models.AppealRejected, "", "admin")
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestResolveValidatesStatus(t *testing.T) {
	svc := NewService(new(MockStorage), nil)
	_, err := svc.Resolve(7, "maybe", "", "admin")
	assert.ErrorIs(t, err, ErrBadStatus)
}

func TestResolveUnknownAppeal(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetAppealByID", uint(404)).Return(nil, nil)

	svc := NewService(storageMock, nil)
	_, err := svc.Resolve(404, models.AppealApproved, "", "admin")
	assert.ErrorIs(t, err, ErrNotFound)
}
