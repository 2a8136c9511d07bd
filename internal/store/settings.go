package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dividend-hunter/internal/domain"
	"dividend-hunter/internal/storage"
)

// Setting keys used by the app.
const (
	SettingLastFetchAt = "lastFetchAt"
	SettingCategory    = "category"
	SettingMinYield    = "minYield"
	SettingMinSafety   = "minSafety"
)

// SetSetting stores value as JSON under key.
func (s *Store) SetSetting(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	if err := s.backend.Settings().Put(ctx, domain.Setting{Key: key, Value: raw}); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// GetSetting decodes the value of key into a generic value, or returns def when unset.
func (s *Store) GetSetting(ctx context.Context, key string, def any) (any, error) {
	var v any
	found, err := s.getSettingInto(ctx, key, &v)
	if err != nil {
		return nil, err
	}
	if !found {
		return def, nil
	}
	return v, nil
}

// GetSettingString returns a string setting or def.
func (s *Store) GetSettingString(ctx context.Context, key, def string) (string, error) {
	v := def
	if _, err := s.getSettingInto(ctx, key, &v); err != nil {
		return def, err
	}
	return v, nil
}

// GetSettingBool returns a bool setting or def.
func (s *Store) GetSettingBool(ctx context.Context, key string, def bool) (bool, error) {
	v := def
	if _, err := s.getSettingInto(ctx, key, &v); err != nil {
		return def, err
	}
	return v, nil
}

// GetSettingFloat returns a numeric setting or def.
func (s *Store) GetSettingFloat(ctx context.Context, key string, def float64) (float64, error) {
	v := def
	if _, err := s.getSettingInto(ctx, key, &v); err != nil {
		return def, err
	}
	return v, nil
}

// GetSettingTime returns a timestamp setting. ok is false when unset.
func (s *Store) GetSettingTime(ctx context.Context, key string) (t time.Time, ok bool, err error) {
	found, err := s.getSettingInto(ctx, key, &t)
	if err != nil || !found {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// GetAllSettings returns every setting as raw JSON keyed by name.
func (s *Store) GetAllSettings(ctx context.Context) (map[string]json.RawMessage, error) {
	all, err := s.backend.Settings().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get all settings: %w", err)
	}

	result := make(map[string]json.RawMessage, len(all))
	for _, st := range all {
		result[st.Key] = st.Value
	}
	return result, nil
}

func (s *Store) getSettingInto(ctx context.Context, key string, dst any) (bool, error) {
	st, err := s.backend.Settings().Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get setting %s: %w", key, err)
	}
	if err := json.Unmarshal(st.Value, dst); err != nil {
		return false, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return true, nil
}
