// Package mocks holds testify mocks of the fixture interfaces.
package mocks

import (
	context "context"

	fixture "github.com/prashanthpai/sqlreplay/fixture"
	mock "github.com/stretchr/testify/mock"
)

// Store is an autogenerated mock type for the Store type
type Store struct {
	mock.Mock
}

// Load provides a mock function with given fields: ctx, name
func (_m *Store) Load(ctx context.Context, name string) (*fixture.Fixture, bool, error) {
	ret := _m.Called(ctx, name)

	var r0 *fixture.Fixture
	if rf, ok := ret.Get(0).(func(context.Context, string) *fixture.Fixture); ok {
		r0 = rf(ctx, name)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*fixture.Fixture)
		}
	}

	var r1 bool
	if rf, ok := ret.Get(1).(func(context.Context, string) bool); ok {
		r1 = rf(ctx, name)
	} else {
		r1 = ret.Get(1).(bool)
	}

	var r2 error
	if rf, ok := ret.Get(2).(func(context.Context, string) error); ok {
		r2 = rf(ctx, name)
	} else {
		r2 = ret.Error(2)
	}

	return r0, r1, r2
}

// Save provides a mock function with given fields: ctx, f
func (_m *Store) Save(ctx context.Context, f *fixture.Fixture) error {
	ret := _m.Called(ctx, f)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *fixture.Fixture) error); ok {
		r0 = rf(ctx, f)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}
