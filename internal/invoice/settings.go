package invoice

import (
	"context"
	"fmt"

	"invoicer/internal/core"
	"invoicer/internal/validate"
)

// Settings returns the stored invoice settings. Defaults are written on
// first access so every process sees the same values.
func (e *Engine) Settings(ctx context.Context) (core.Settings, error) {
	s, _, ok, err := e.settings.Load(ctx)
	if err != nil {
		return core.Settings{}, err
	}
	if ok {
		return s, nil
	}

	defaults := core.DefaultSettings()
	if _, err := e.settings.Save(ctx, defaults, 0); err != nil && !isConflict(err) {
		return core.Settings{}, fmt.Errorf("initialize settings: %w", err)
	}
	// Lost the race against another initializer; theirs wins.
	s, _, ok, err = e.settings.Load(ctx)
	if err != nil {
		return core.Settings{}, err
	}
	if !ok {
		return defaults, nil
	}
	return s, nil
}

// SaveSettings validates and replaces the stored settings.
func (e *Engine) SaveSettings(ctx context.Context, s core.Settings) (core.Settings, error) {
	if err := s.Validate(); err != nil {
		return core.Settings{}, err
	}
	_, err := e.settings.Update(ctx, func(current *core.Settings) error {
		*current = s
		return nil
	})
	if err != nil {
		return core.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return s, nil
}

// Templates returns the stored design templates, writing the built-in set on
// first access.
func (e *Engine) Templates(ctx context.Context) ([]core.Template, error) {
	ts, _, ok, err := e.templates.Load(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return ts, nil
	}

	defaults := core.DefaultTemplates()
	if _, err := e.templates.Save(ctx, defaults, 0); err != nil && !isConflict(err) {
		return nil, fmt.Errorf("initialize templates: %w", err)
	}
	ts, _, ok, err = e.templates.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return defaults, nil
	}
	return ts, nil
}

// SaveTemplates validates and replaces the stored templates.
func (e *Engine) SaveTemplates(ctx context.Context, ts []core.Template) ([]core.Template, error) {
	seen := make(map[string]bool, len(ts))
	for i, t := range ts {
		if err := validate.Struct(t); err != nil {
			return nil, fmt.Errorf("template %d: %w", i+1, err)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("template %d: duplicate id %q", i+1, t.ID)
		}
		seen[t.ID] = true
	}
	_, err := e.templates.Update(ctx, func(current *[]core.Template) error {
		*current = append([]core.Template(nil), ts...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save templates: %w", err)
	}
	return ts, nil
}
