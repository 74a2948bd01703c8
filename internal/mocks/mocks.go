// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/reubingeorge/undetected-chromedriver-go/api/schemas"
	"github.com/stretchr/testify/mock"
)

// -- ScriptExecutor Mock --

// MockScriptExecutor mocks the schemas.ScriptExecutor interface.
type MockScriptExecutor struct {
	mock.Mock
}

func (m *MockScriptExecutor) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	callArgs := m.Called(ctx, script, args)
	return callArgs.Get(0), callArgs.Error(1)
}

// -- PageIntrospector Mock --

// MockPageIntrospector mocks the schemas.PageIntrospector interface.
type MockPageIntrospector struct {
	mock.Mock
}

func (m *MockPageIntrospector) PageSource(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPageIntrospector) Title(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPageIntrospector) CurrentURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// -- Element Mocks --

// MockElement mocks the schemas.ElementHandle interface.
type MockElement struct {
	mock.Mock
}

func (m *MockElement) Click(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElement) SendKeys(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *MockElement) IsDisplayed(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockElement) IsEnabled(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockElement) Location(ctx context.Context) (schemas.Point, error) {
	args := m.Called(ctx)
	return args.Get(0).(schemas.Point), args.Error(1)
}

func (m *MockElement) Size(ctx context.Context) (schemas.Size, error) {
	args := m.Called(ctx)
	return args.Get(0).(schemas.Size), args.Error(1)
}

// MockElementLocator mocks the schemas.ElementLocator interface.
type MockElementLocator struct {
	mock.Mock
}

func (m *MockElementLocator) FindElement(ctx context.Context, selector string) (schemas.ElementHandle, error) {
	args := m.Called(ctx, selector)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(schemas.ElementHandle), args.Error(1)
}

// -- PointerActor Mock --

// MockPointer mocks the schemas.PointerActor interface.
type MockPointer struct {
	mock.Mock
}

func (m *MockPointer) MoveBy(ctx context.Context, dx, dy float64) error {
	return m.Called(ctx, dx, dy).Error(0)
}

func (m *MockPointer) Click(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPointer) SendKeys(ctx context.Context, keys string) error {
	return m.Called(ctx, keys).Error(0)
}

// -- Navigator Mock --

// MockNavigator mocks the schemas.Navigator interface.
type MockNavigator struct {
	mock.Mock
}

func (m *MockNavigator) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockNavigator) Quit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
