// Package mocks provides test doubles for the vision completer.
package mocks

import (
	"context"

	vision "github.com/sells-group/fieldguide/pkg/vision"
	mock "github.com/stretchr/testify/mock"
)

// MockCompleter is a mock type for the Completer interface.
type MockCompleter struct {
	mock.Mock
}

// Complete provides a mock function with given fields: ctx, req
func (_m *MockCompleter) Complete(ctx context.Context, req vision.Request) (*vision.Response, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Complete")
	}

	var r0 *vision.Response
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, vision.Request) (*vision.Response, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, vision.Request) *vision.Response); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*vision.Response)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, vision.Request) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockCompleter creates a new instance of MockCompleter. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockCompleter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCompleter {
	m := &MockCompleter{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
