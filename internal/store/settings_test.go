package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_RoundTrip(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	theme, err := s.GetSettingString(ctx, "theme", "light")
	require.NoError(t, err)
	assert.Equal(t, "light", theme)

	require.NoError(t, s.SetSetting(ctx, "theme", "dark"))
	require.NoError(t, s.SetSetting(ctx, "haptics", true))
	require.NoError(t, s.SetSetting(ctx, SettingMinYield, 2.5))
	require.NoError(t, s.SetSetting(ctx, SettingLastFetchAt, clock.Now()))

	theme, err = s.GetSettingString(ctx, "theme", "light")
	require.NoError(t, err)
	assert.Equal(t, "dark", theme)

	haptics, err := s.GetSettingBool(ctx, "haptics", false)
	require.NoError(t, err)
	assert.True(t, haptics)

	minYield, err := s.GetSettingFloat(ctx, SettingMinYield, 0)
	require.NoError(t, err)
	assert.Equal(t, 2.5, minYield)

	last, ok, err := s.GetSettingTime(ctx, SettingLastFetchAt)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, last.Equal(clock.Now()))

	_, ok, err = s.GetSettingTime(ctx, "never")
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := s.GetSetting(ctx, "theme", nil)
	require.NoError(t, err)
	assert.Equal(t, "dark", v)

	v, err = s.GetSetting(ctx, "missing", 42)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	all, err := s.GetAllSettings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.JSONEq(t, `"dark"`, string(all["theme"]))
}

func TestSettings_WrongType(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetSetting(ctx, "count", 3))

	got, err := s.GetSettingString(ctx, "count", "fallback")
	assert.Error(t, err)
	assert.Equal(t, "fallback", got)

	_, err = s.GetSettingFloat(ctx, "count", 0)
	assert.NoError(t, err)

	_, _, err = s.GetSettingTime(ctx, "count")
	assert.Error(t, err)
}
