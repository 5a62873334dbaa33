// Package config defines the engine's YAML-tagged configuration tree and
// its validation: a struct tree with `yaml` and `validate` tags, loaded
// with gopkg.in/yaml.v3 and checked with github.com/rupor-github/gencfg (a
// thin wrapper over go-playground/validator).
package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"github.com/h0rv/epub-stream-sub001/bookenum"
	"github.com/h0rv/epub-stream-sub001/limits"
)

// LayoutConfig carries the reader-facing typographic and feature-toggle
// options: hyphenation policy, justification strategy, cover-page handling
// and the degraded-capability float/SVG modes.
type LayoutConfig struct {
	Hyphenation     bookenum.HyphenationMode      `yaml:"hyphenation" validate:"gte=0"`
	Justification   bookenum.JustificationStrategy `yaml:"justification" validate:"gte=0"`
	CoverPage       bookenum.CoverPageMode        `yaml:"cover_page" validate:"gte=0"`
	Float           bookenum.FloatSupport         `yaml:"float" validate:"gte=0"`
	Svg             bookenum.SvgMode              `yaml:"svg" validate:"gte=0"`
	WidowOrphanLines int                          `yaml:"widow_orphan_lines" validate:"min=0,max=4"`
}

// DefaultLayoutConfig mirrors a desktop/tablet-class reading surface:
// adaptive inter-word justification, discretionary hyphenation, and the
// Basic float and Native SVG modes, which lay out and rasterize the same
// as FloatSupportNone and SvgModeRasterizeFallback.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		Hyphenation:      bookenum.HyphenationModeDiscretionary,
		Justification:    bookenum.JustificationAdaptiveInterWord,
		CoverPage:        bookenum.CoverPageContain,
		Float:            bookenum.FloatSupportBasic,
		Svg:              bookenum.SvgModeNative,
		WidowOrphanLines: 2,
	}
}

// EmbeddedLayoutConfig mirrors a constrained e-paper reading surface:
// discretionary hyphenation stays on (it's cheap), but float and native SVG
// support are dropped to their fallback behaviours.
func EmbeddedLayoutConfig() LayoutConfig {
	cfg := DefaultLayoutConfig()
	cfg.Float = bookenum.FloatSupportNone
	cfg.Svg = bookenum.SvgModeRasterizeFallback
	return cfg
}

// PageChromeConfig controls the header/footer/page-number chrome the render
// engine draws around content.
type PageChromeConfig struct {
	TextStyle        bookenum.PageChromeTextStyle `yaml:"text_style" validate:"gte=0"`
	ShowPageNumber   bool                         `yaml:"show_page_number"`
	ShowChapterTitle bool                         `yaml:"show_chapter_title"`
	HeaderTemplate   string                       `yaml:"header_template,omitempty"`
	FooterTemplate   string                       `yaml:"footer_template,omitempty"`
}

func DefaultPageChromeConfig() PageChromeConfig {
	return PageChromeConfig{
		TextStyle:        bookenum.PageChromeTextRegular,
		ShowPageNumber:   true,
		ShowChapterTitle: true,
	}
}

// RenderIntentConfig carries the e-paper-specific display intent
// (grayscale reduction, dithering, contrast), kept separate from layout
// since it affects pixel output rather than text flow.
type RenderIntentConfig struct {
	Grayscale     bookenum.GrayscaleMode `yaml:"grayscale" validate:"gte=0"`
	Dither        bookenum.DitherMode    `yaml:"dither" validate:"gte=0"`
	ContrastBoost float32                `yaml:"contrast_boost" validate:"gte=0,lte=2"`
}

func DefaultRenderIntentConfig() RenderIntentConfig {
	return RenderIntentConfig{
		Grayscale:     bookenum.GrayscaleOff,
		Dither:        bookenum.DitherNone,
		ContrastBoost: 1.0,
	}
}

// EngineConfig is the full configuration tree for cmd/inkreader and any
// other caller of the render engine: resource budgets, limits, layout
// options and logging, loaded from a single YAML document.
type EngineConfig struct {
	Memory       limits.MemoryBudget       `yaml:"memory"`
	Metadata     limits.MetadataLimits     `yaml:"metadata"`
	Navigation   limits.NavigationLimits   `yaml:"navigation"`
	Layout       LayoutConfig              `yaml:"layout"`
	PageChrome   PageChromeConfig          `yaml:"page_chrome"`
	RenderIntent RenderIntentConfig        `yaml:"render_intent"`
	Images       limits.ImageReadOptions   `yaml:"images"`
	Logging      LoggingConfig             `yaml:"logging"`

	// Embedded marks a constrained e-paper target. It propagates into
	// render.Config.Embedded, which suppresses RenderPage's legacy merged
	// command layer.
	Embedded bool `yaml:"embedded"`
}

// Default returns a generously sized desktop/tablet configuration.
func Default() *EngineConfig {
	return &EngineConfig{
		Memory:       limits.DefaultMemoryBudget(),
		Metadata:     limits.DefaultMetadataLimits(),
		Navigation:   limits.DefaultNavigationLimits(),
		Layout:       DefaultLayoutConfig(),
		PageChrome:   DefaultPageChromeConfig(),
		RenderIntent: DefaultRenderIntentConfig(),
		Images:       limits.DefaultImageReadOptions(),
		Logging:      DefaultLoggingConfig(),
	}
}

// Embedded returns the tighter, e-paper-class configuration: smaller
// memory/navigation budgets and the degraded layout fallbacks.
func Embedded() *EngineConfig {
	cfg := Default()
	cfg.Memory = limits.EmbeddedMemoryBudget()
	cfg.Navigation = limits.EmbeddedNavigationLimits()
	cfg.Layout = EmbeddedLayoutConfig()
	cfg.Images = limits.EmbeddedImageReadOptions()
	cfg.Embedded = true
	return cfg
}

// Load reads, parses and validates an EngineConfig from a YAML file at
// path: unmarshal first, then run struct-level validation via gencfg so a
// malformed field is reported with its yaml tag path rather than a generic
// decode error.
func Load(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := gencfg.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

// Marshal serialises cfg back to YAML, for callers that want to persist an
// effective configuration (e.g. after merging CLI flags onto Default()).
func Marshal(cfg *EngineConfig) ([]byte, error) {
	return yaml.Marshal(cfg)
}
