// Package settings loads invoice settings and design templates from a YAML
// seed file.
package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"invoicer/internal/core"
)

// Seed is the decoded content of a settings file, merged over the built-in
// defaults.
type Seed struct {
	Settings  core.Settings
	Templates []core.Template
}

// Defaults returns the seed a fresh installation starts with.
func Defaults() Seed {
	return Seed{Settings: core.DefaultSettings(), Templates: core.DefaultTemplates()}
}

type fileCompany struct {
	Name    *string `yaml:"name"`
	Address *string `yaml:"address"`
	Email   *string `yaml:"email"`
	Phone   *string `yaml:"phone"`
	Website *string `yaml:"website"`
}

type fileSettings struct {
	AutoNumbering  *bool        `yaml:"autoNumbering"`
	DefaultDueDays *int         `yaml:"defaultDueDays"`
	DefaultTaxRate *rate        `yaml:"defaultTaxRate"`
	Currency       *string      `yaml:"currency"`
	Company        *fileCompany `yaml:"company"`
}

type fileTemplate struct {
	ID     string       `yaml:"id"`
	Name   string       `yaml:"name"`
	Design *core.Design `yaml:"design"`
}

type file struct {
	Settings  *fileSettings  `yaml:"settings"`
	Templates []fileTemplate `yaml:"templates"`
}

// rate accepts a tax rate written as a number or a string ("0.2", "20%").
type rate struct{ decimal.Decimal }

func (r *rate) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: tax rate must be a scalar", n.Line)
	}
	v := strings.TrimSpace(n.Value)
	percent := strings.HasSuffix(v, "%")
	d, err := core.ParseAmount(strings.TrimSuffix(v, "%"))
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	if percent {
		d = d.Div(decimal.NewFromInt(100))
	}
	r.Decimal = d
	return nil
}

// Load reads and validates the seed file at path.
func Load(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, err
	}
	return Parse(data)
}

// LoadOptional behaves like Load but returns the defaults when path is empty
// or the file does not exist. found reports whether a file was read.
func LoadOptional(path string) (seed Seed, found bool, err error) {
	if strings.TrimSpace(path) == "" {
		return Defaults(), false, nil
	}
	seed, err = Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), false, nil
	}
	if err != nil {
		return Seed{}, false, err
	}
	return seed, true, nil
}

// Parse decodes data and overlays it on the defaults. Keys left out of the
// file keep their default value; a templates list replaces the built-in set.
func Parse(data []byte) (Seed, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Seed{}, fmt.Errorf("parsing settings file: %w", err)
	}

	seed := Defaults()
	if f.Settings != nil {
		mergeSettings(&seed.Settings, f.Settings)
	}
	if len(f.Templates) > 0 {
		seed.Templates = make([]core.Template, 0, len(f.Templates))
		for _, t := range f.Templates {
			design := core.DefaultDesign()
			if t.Design != nil {
				mergeDesign(&design, *t.Design)
			}
			seed.Templates = append(seed.Templates, core.Template{
				ID:     strings.TrimSpace(t.ID),
				Name:   strings.TrimSpace(t.Name),
				Design: design,
			})
		}
	}

	if err := seed.Settings.Validate(); err != nil {
		return Seed{}, err
	}
	return seed, nil
}

func mergeSettings(dst *core.Settings, src *fileSettings) {
	if src.AutoNumbering != nil {
		dst.AutoNumbering = *src.AutoNumbering
	}
	if src.DefaultDueDays != nil {
		dst.DefaultDueDays = *src.DefaultDueDays
	}
	if src.DefaultTaxRate != nil {
		dst.DefaultTaxRate = src.DefaultTaxRate.Decimal
	}
	if src.Currency != nil {
		dst.Currency = strings.ToUpper(strings.TrimSpace(*src.Currency))
	}
	if c := src.Company; c != nil {
		setString(&dst.CompanyInfo.Name, c.Name)
		setString(&dst.CompanyInfo.Address, c.Address)
		setString(&dst.CompanyInfo.Email, c.Email)
		setString(&dst.CompanyInfo.Phone, c.Phone)
		setString(&dst.CompanyInfo.Website, c.Website)
	}
}

func mergeDesign(dst *core.Design, src core.Design) {
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&dst.Template, src.Template},
		{&dst.Color, src.Color},
		{&dst.HeadingFont, src.HeadingFont},
		{&dst.BodyFont, src.BodyFont},
		{&dst.FontSize, src.FontSize},
	} {
		if f.src != "" {
			*f.dst = f.src
		}
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// Store is the engine surface a seed is written through.
type Store interface {
	SaveSettings(ctx context.Context, s core.Settings) (core.Settings, error)
	SaveTemplates(ctx context.Context, ts []core.Template) ([]core.Template, error)
}

// Apply writes seed through store.
func Apply(ctx context.Context, store Store, seed Seed) error {
	if _, err := store.SaveSettings(ctx, seed.Settings); err != nil {
		return err
	}
	if _, err := store.SaveTemplates(ctx, seed.Templates); err != nil {
		return err
	}
	return nil
}
