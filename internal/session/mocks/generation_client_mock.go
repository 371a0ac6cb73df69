package mocks

import (
	"context"

	"storyboard-server/internal/model"
	"storyboard-server/internal/session"

	"github.com/stretchr/testify/mock"
)

// MockGenerationClient is a mock type for the GenerationClient type
type MockGenerationClient struct {
	mock.Mock
}

// LookupLyrics provides a mock function with given fields: ctx, title, artist
func (_m *MockGenerationClient) LookupLyrics(ctx context.Context, title string, artist string) (string, []string, error) {
	ret := _m.Called(ctx, title, artist)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string, string) string); ok {
		r0 = rf(ctx, title, artist)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(string)
		}
	}

	var r1 []string
	if rf, ok := ret.Get(1).(func(context.Context, string, string) []string); ok {
		r1 = rf(ctx, title, artist)
	} else {
		if ret.Get(1) != nil {
			r1 = ret.Get(1).([]string)
		}
	}

	var r2 error
	if rf, ok := ret.Get(2).(func(context.Context, string, string) error); ok {
		r2 = rf(ctx, title, artist)
	} else {
		err := ret.Error(2)
		if err != nil {
			r2 = err
		}
	}

	return r0, r1, r2
}

// GenerateStoryboard provides a mock function with given fields: ctx, song, lyrics
func (_m *MockGenerationClient) GenerateStoryboard(ctx context.Context, song model.SongIdentity, lyrics string) (string, error) {
	ret := _m.Called(ctx, song, lyrics)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, model.SongIdentity, string) string); ok {
		r0 = rf(ctx, song, lyrics)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(string)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, model.SongIdentity, string) error); ok {
		r1 = rf(ctx, song, lyrics)
	} else {
		err := ret.Error(1)
		if err != nil {
			r1 = err
		}
	}

	return r0, r1
}

// GenerateVideo provides a mock function with given fields: ctx, prompt, cfg
func (_m *MockGenerationClient) GenerateVideo(ctx context.Context, prompt string, cfg model.VideoConfig) (string, error) {
	ret := _m.Called(ctx, prompt, cfg)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string, model.VideoConfig) string); ok {
		r0 = rf(ctx, prompt, cfg)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(string)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, model.VideoConfig) error); ok {
		r1 = rf(ctx, prompt, cfg)
	} else {
		err := ret.Error(1)
		if err != nil {
			r1 = err
		}
	}

	return r0, r1
}

// NewMockGenerationClient creates a new instance of MockGenerationClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockGenerationClient(t interface {
	mock.TestingT
	Helper()
}) *MockGenerationClient {
	m := &MockGenerationClient{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ session.GenerationClient = (*MockGenerationClient)(nil)
