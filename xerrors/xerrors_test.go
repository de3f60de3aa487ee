package xerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	base := errors.New("boom")

	wrapped := Wrap(base, "loading")
	assert.Equal(t, "loading: boom", wrapped.Error())
	assert.True(t, errors.Is(wrapped, base))

	assert.Nil(t, Wrap(nil, "loading"))
}

func TestWrapf(t *testing.T) {
	base := errors.New("boom")

	wrapped := Wrapf(base, "loading %s", "config.jsonc")
	assert.Equal(t, "loading config.jsonc: boom", wrapped.Error())
	assert.True(t, errors.Is(wrapped, base))

	assert.Nil(t, Wrapf(nil, "loading %s", "config.jsonc"))
}

func TestWithCode(t *testing.T) {
	base := errors.New("boom")

	coded := WithCode(base, "JSON_ERROR")
	assert.Equal(t, "JSON_ERROR", GetCode(coded))
	assert.True(t, errors.Is(coded, base))

	// 嵌套包装后依然能提取错误码
	outer := Wrap(coded, "reload")
	assert.Equal(t, "JSON_ERROR", GetCode(outer))

	assert.Nil(t, WithCode(nil, "JSON_ERROR"))
	assert.Equal(t, "", GetCode(base))
}

func TestCollector(t *testing.T) {
	var c Collector
	c.Collect(nil)
	assert.NoError(t, c.Err())

	first := errors.New("first")
	c.Collect(first)
	c.Collect(errors.New("second"))
	assert.Equal(t, first, c.Err())
}

func TestCombine(t *testing.T) {
	assert.NoError(t, Combine(nil, nil))

	single := errors.New("only")
	assert.Equal(t, single, Combine(nil, single))

	a, b := errors.New("a"), errors.New("b")
	combined := Combine(a, b)
	assert.True(t, errors.Is(combined, a))
	assert.True(t, errors.Is(combined, b))
}
