package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in the documented default values for fields left at
// their zero value.
func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = LogInfo
	}
	if cfg.Chunking.MaxTimeDiffSeconds == 0 {
		cfg.Chunking.MaxTimeDiffSeconds = 120
	}
	if cfg.Chunking.MaxSegmentCount == 0 {
		cfg.Chunking.MaxSegmentCount = 512
	}
	if cfg.Aggregator.QnAModel == "" {
		cfg.Aggregator.QnAModel = DefaultQnAModel
	}
	if cfg.Astrology.Orb == 0 {
		cfg.Astrology.Orb = 2.0
	}
	if cfg.Astrology.Natal.Timezone == "" {
		cfg.Astrology.Natal.Timezone = "UTC"
	}
	if cfg.Store.EmbeddingProvider == "" {
		cfg.Store.EmbeddingProvider = EmbedOpenAI
	}
	if cfg.Store.EmbeddingDimensions == 0 {
		cfg.Store.EmbeddingDimensions = 768
	}
	for i := range cfg.Models {
		if cfg.Models[i].ModelHost == "" {
			cfg.Models[i].ModelHost = HostServer
		}
		if c := cfg.Models[i].CoreNLP; c != nil && c.PipelineLanguage == "" {
			c.PipelineLanguage = "en"
		}
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}

	if len(cfg.Paths.TranscriptDirs) == 0 {
		errs = append(errs, errors.New("paths.transcript_dirs must list at least one directory"))
	}

	if cfg.Chunking.MaxTimeDiffSeconds < 0 {
		errs = append(errs, fmt.Errorf("chunking.max_time_diff_seconds %d must be positive", cfg.Chunking.MaxTimeDiffSeconds))
	}
	if cfg.Chunking.MaxSegmentCount < 0 {
		errs = append(errs, fmt.Errorf("chunking.max_segment_count %d must be positive", cfg.Chunking.MaxSegmentCount))
	}

	// Models
	enabled := 0
	namesSeen := make(map[string]int, len(cfg.Models))
	for i, m := range cfg.Models {
		prefix := fmt.Sprintf("models[%d]", i)
		if m.ModelName == "" {
			errs = append(errs, fmt.Errorf("%s.model_name is required", prefix))
		} else {
			if prev, ok := namesSeen[m.ModelName]; ok {
				errs = append(errs, fmt.Errorf("%s.model_name %q is a duplicate of models[%d]", prefix, m.ModelName, prev))
			}
			namesSeen[m.ModelName] = i
		}
		if !m.ModelType.IsValid() {
			errs = append(errs, fmt.Errorf("%s.model_type %q is invalid", prefix, m.ModelType))
			continue
		}
		if !m.ModelHost.IsValid() {
			errs = append(errs, fmt.Errorf("%s.model_host %q is invalid; valid values: server, local", prefix, m.ModelHost))
		} else if m.ModelHost == HostLocal {
			errs = append(errs, fmt.Errorf("%s.model_host \"local\" is not supported; run the model behind an inference server and set base_url", prefix))
		}
		if m.CoreNLP != nil && m.ModelType != ModelCoreNLP {
			slog.Warn("corenlp block on non-corenlp model is ignored",
				"model", m.ModelName, "model_type", m.ModelType)
		}

		if !m.UseModel {
			continue
		}
		enabled++

		switch m.ModelType {
		case ModelCoreNLP:
			switch {
			case m.CoreNLP == nil:
				errs = append(errs, fmt.Errorf("%s: model_type corenlp requires a corenlp block", prefix))
			default:
				if m.CoreNLP.Address == "" {
					errs = append(errs, fmt.Errorf("%s.corenlp.address is required", prefix))
				}
				if m.CoreNLP.Port <= 0 || m.CoreNLP.Port > 65535 {
					errs = append(errs, fmt.Errorf("%s.corenlp.port %d is out of range [1, 65535]", prefix, m.CoreNLP.Port))
				}
			}
		default:
			if m.BaseURL == "" {
				errs = append(errs, fmt.Errorf("%s.base_url is required for enabled %s models", prefix, m.ModelType))
			}
		}
		if m.ModelType == ModelPipeline && m.PipelineTask == "" {
			errs = append(errs, fmt.Errorf("%s.model_pipeline_task is required when model_type is pipeline", prefix))
		}
		if m.ModelType == ModelGliner && !m.EnableCustomLabels && !m.EnableQnA {
			slog.Warn("gliner model has neither custom labels nor question answering enabled; it will produce nothing",
				"model", m.ModelName)
		}
	}
	if enabled == 0 && len(cfg.Models) > 0 {
		slog.Warn("all models are disabled; chunk analysis will be empty")
	}

	// Astrology
	if cfg.Astrology.Enabled {
		if cfg.Astrology.ChartServiceURL == "" {
			errs = append(errs, errors.New("astrology.chart_service_url is required when astrology is enabled"))
		}
		if cfg.Astrology.Natal.Date == "" || cfg.Astrology.Natal.Time == "" {
			errs = append(errs, errors.New("astrology.natal.date and astrology.natal.time are required when astrology is enabled"))
		}
		if cfg.Astrology.Orb <= 0 {
			errs = append(errs, fmt.Errorf("astrology.orb %.2f must be positive", cfg.Astrology.Orb))
		}
		if (cfg.Astrology.ZRFortunePeriods == "") != (cfg.Astrology.ZRSpiritPeriods == "") {
			errs = append(errs, errors.New("astrology.zr_fortune_periods and astrology.zr_spirit_periods must be set together"))
		}
	}

	// Interpretation
	if cfg.Interpret.Enabled {
		if !cfg.Astrology.Enabled {
			errs = append(errs, errors.New("interpret.enabled requires astrology.enabled"))
		}
		if !cfg.Interpret.Provider.IsValid() {
			errs = append(errs, fmt.Errorf("interpret.provider %q is invalid; valid values: openai, anyllm", cfg.Interpret.Provider))
		}
		if cfg.Interpret.Provider == InterpretAnyLLM && cfg.Interpret.Backend == "" {
			errs = append(errs, errors.New("interpret.backend is required when interpret.provider is anyllm"))
		}
		if cfg.Interpret.Model == "" {
			errs = append(errs, errors.New("interpret.model is required when interpretation is enabled"))
		}
		if fb := cfg.Interpret.Fallback; fb != nil {
			if !fb.Provider.IsValid() {
				errs = append(errs, fmt.Errorf("interpret.fallback.provider %q is invalid; valid values: openai, anyllm", fb.Provider))
			}
			if fb.Provider == InterpretAnyLLM && fb.Backend == "" {
				errs = append(errs, errors.New("interpret.fallback.backend is required when interpret.fallback.provider is anyllm"))
			}
			if fb.Model == "" {
				errs = append(errs, errors.New("interpret.fallback.model is required"))
			}
		}
	}

	// Store
	if cfg.Store.DSN != "" {
		if !cfg.Store.EmbeddingProvider.IsValid() {
			errs = append(errs, fmt.Errorf("store.embedding_provider %q is invalid; valid values: openai, ollama", cfg.Store.EmbeddingProvider))
		}
		if cfg.Store.EmbeddingProvider == EmbedOllama && cfg.Store.EmbeddingBaseURL == "" {
			errs = append(errs, errors.New("store.embedding_base_url is required when store.embedding_provider is ollama"))
		}
		if cfg.Store.EmbeddingModel == "" {
			errs = append(errs, errors.New("store.embedding_model is required when the store is enabled"))
		}
		if cfg.Store.EmbeddingDimensions <= 0 {
			errs = append(errs, fmt.Errorf("store.embedding_dimensions %d must be positive", cfg.Store.EmbeddingDimensions))
		}
	}

	return errors.Join(errs...)
}
