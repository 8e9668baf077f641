package batch

import (
	"fmt"

	"github.com/NWeiss87/auricle/internal/analysis"
	"github.com/NWeiss87/auricle/internal/config"
	"github.com/NWeiss87/auricle/pkg/provider/annotate"
	"github.com/NWeiss87/auricle/pkg/provider/annotate/corenlp"
	"github.com/NWeiss87/auricle/pkg/provider/inference/transformers"
	"github.com/NWeiss87/auricle/pkg/provider/parse/spacyserver"
)

// NewRegistry returns a runner registry with a factory for every supported
// model type, closed over the shared assets. Each factory builds its own
// provider client from the model's base_url, so models on different
// inference servers coexist in one run.
func NewRegistry(assets Assets) *config.Registry {
	reg := config.NewRegistry()

	reg.Register(config.ModelSequence, func(m config.ModelConfig) (analysis.Runner, error) {
		p, err := transformers.New(m.BaseURL)
		if err != nil {
			return nil, err
		}
		return analysis.NewSequenceRunner(p, m.ModelName), nil
	})
	reg.Register(config.ModelToken, func(m config.ModelConfig) (analysis.Runner, error) {
		p, err := transformers.New(m.BaseURL)
		if err != nil {
			return nil, err
		}
		return analysis.NewTokenRunner(p, m.ModelName), nil
	})
	reg.Register(config.ModelKeyphrase, func(m config.ModelConfig) (analysis.Runner, error) {
		p, err := transformers.New(m.BaseURL)
		if err != nil {
			return nil, err
		}
		return analysis.NewKeyphraseRunner(p, m.ModelName), nil
	})

	// Zero-shot, generic pipeline and gliclass models all score the chunk
	// against the candidate label list and differ only in the payload shape
	// their server returns, which the runner normalizes.
	scored := func(m config.ModelConfig) (analysis.Runner, error) {
		p, err := transformers.New(m.BaseURL)
		if err != nil {
			return nil, err
		}
		return analysis.NewZeroShotRunner(p, m.ModelName, assets.Labels), nil
	}
	reg.Register(config.ModelZeroShot, scored)
	reg.Register(config.ModelPipeline, scored)
	reg.Register(config.ModelGliclass, scored)

	reg.Register(config.ModelQuestionAnswering, func(m config.ModelConfig) (analysis.Runner, error) {
		p, err := transformers.New(m.BaseURL)
		if err != nil {
			return nil, err
		}
		return analysis.NewQuestionRunner(p, m.ModelName, assets.Questions), nil
	})

	reg.Register(config.ModelGliner, func(m config.ModelConfig) (analysis.Runner, error) {
		p, err := transformers.New(m.BaseURL)
		if err != nil {
			return nil, err
		}
		var gc analysis.GlinerConfig
		if m.EnableCustomLabels {
			gc.CustomLabels = assets.Labels
		}
		if m.EnableQnA {
			gc.Questions = assets.Questions
		}
		return analysis.NewGlinerRunner(p, m.ModelName, gc), nil
	})

	reg.Register(config.ModelSpacy, func(m config.ModelConfig) (analysis.Runner, error) {
		p, err := spacyserver.New(m.BaseURL)
		if err != nil {
			return nil, err
		}
		return analysis.NewParseRunner(p, m.ModelName, assets.Lexicon), nil
	})

	reg.Register(config.ModelCoreNLP, func(m config.ModelConfig) (analysis.Runner, error) {
		if m.CoreNLP == nil {
			return nil, fmt.Errorf("batch: model %q has no corenlp block", m.ModelName)
		}
		p, err := corenlp.New(m.CoreNLP.Address, m.CoreNLP.Port)
		if err != nil {
			return nil, err
		}
		req := annotate.Request{
			Annotators:       m.CoreNLP.Annotators,
			Language:         m.CoreNLP.PipelineLanguage,
			OutputFormat:     "json",
			TokensRegexRules: m.CoreNLP.TokensRegexRules,
		}
		return analysis.NewAnnotateRunner(p, m.ModelName, req), nil
	})

	return reg
}

// BuildRunners creates one runner per enabled model, in configuration order.
// That order is also the run order within each chunk, which fixes the key
// order of the chunk_analysis maps in the output.
func BuildRunners(cfg *config.Config, reg *config.Registry) ([]analysis.Runner, error) {
	var runners []analysis.Runner
	for _, m := range cfg.Models {
		if !m.UseModel {
			continue
		}
		r, err := reg.Create(m)
		if err != nil {
			return nil, fmt.Errorf("batch: model %q: %w", m.ModelName, err)
		}
		runners = append(runners, r)
	}
	return runners, nil
}
