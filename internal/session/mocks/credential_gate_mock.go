package mocks

import (
	"context"

	"storyboard-server/internal/session"

	"github.com/stretchr/testify/mock"
)

// MockCredentialGate is a mock type for the CredentialGate type
type MockCredentialGate struct {
	mock.Mock
}

// HasCredential provides a mock function with given fields: ctx
func (_m *MockCredentialGate) HasCredential(ctx context.Context) bool {
	ret := _m.Called(ctx)

	var r0 bool
	if rf, ok := ret.Get(0).(func(context.Context) bool); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Get(0).(bool)
	}

	return r0
}

// RequestCredential provides a mock function with given fields: ctx
func (_m *MockCredentialGate) RequestCredential(ctx context.Context) error {
	ret := _m.Called(ctx)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		err := ret.Error(0)
		if err != nil {
			r0 = err
		}
	}

	return r0
}

// NewMockCredentialGate creates a new instance of MockCredentialGate. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockCredentialGate(t interface {
	mock.TestingT
	Helper()
}) *MockCredentialGate {
	m := &MockCredentialGate{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ session.CredentialGate = (*MockCredentialGate)(nil)
