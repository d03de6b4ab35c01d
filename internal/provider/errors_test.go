package provider

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presswork/internal/cms"
)

func TestErrorMessageComposition(t *testing.T) {
	cause := errors.New("waiting for selector timed out")
	err := Fatal("dom", "set_title", cms.ErrElementNotFound, "no candidate matched new_post_title", cause)

	msg := err.Error()
	assert.Contains(t, msg, "dom")
	assert.Contains(t, msg, "set_title")
	assert.Contains(t, msg, "ELEMENT_NOT_FOUND")
	assert.Contains(t, msg, "no candidate matched")
	assert.Contains(t, msg, "timed out")
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Transient("dom", "initialize", cms.ErrNavigationTimeout, "", cause)

	wrapped := fmt.Errorf("phase INITIALIZE: %w", err)

	assert.True(t, errors.Is(wrapped, cause))

	extracted := AsError(wrapped)
	require.NotNil(t, extracted)
	assert.Equal(t, cms.ErrNavigationTimeout, extracted.Kind)
	assert.True(t, extracted.Transient)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transient classified", Transient("dom", "login", cms.ErrNavigationTimeout, "", nil), true},
		{"fatal classified", Fatal("dom", "login", cms.ErrAuthRejected, "", nil), false},
		{"wrapped transient", fmt.Errorf("retry: %w", Transient("vision", "publish", cms.ErrTimeout, "", nil)), true},
		{"unclassified", errors.New("plain"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, cms.ErrUploadFailed, KindOf(Transient("dom", "insert_images", cms.ErrUploadFailed, "", nil)))
	assert.Equal(t, cms.ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, cms.ErrorKind(""), KindOf(nil))
}

func TestFactoryFunc(t *testing.T) {
	f := FactoryFunc{
		ProviderName: "dom",
		Build: func() (Provider, error) {
			return nil, errors.New("not wired in this test")
		},
	}

	assert.Equal(t, "dom", f.Name())
	_, err := f.New()
	assert.Error(t, err)
}
