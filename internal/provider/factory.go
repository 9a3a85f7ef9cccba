package provider

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"assistbot/internal/config"
	"assistbot/internal/domain"
)

// Constructor builds a language model from the model config section.
type Constructor func(mc config.ModelConfig, awsCfg aws.Config, logger *slog.Logger) (domain.LanguageModel, error)

// Factory creates and caches language models from config.
type Factory struct {
	awsCfg       aws.Config
	logger       *slog.Logger
	constructors map[string]Constructor
	cache        map[string]domain.LanguageModel
	mu           sync.RWMutex
}

// NewFactory creates a factory with the built-in providers registered.
// awsCfg is only used by the bedrock provider.
func NewFactory(awsCfg aws.Config, logger *slog.Logger) *Factory {
	f := &Factory{
		awsCfg:       awsCfg,
		logger:       logger,
		constructors: make(map[string]Constructor),
		cache:        make(map[string]domain.LanguageModel),
	}
	f.registerDefaults()
	return f
}

// RegisterConstructor adds (or replaces) a provider constructor by name.
func (f *Factory) RegisterConstructor(name string, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[name] = ctor
}

func (f *Factory) registerDefaults() {
	f.constructors["bedrock"] = func(mc config.ModelConfig, awsCfg aws.Config, logger *slog.Logger) (domain.LanguageModel, error) {
		client := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
			if mc.APIBase != "" {
				o.BaseEndpoint = aws.String(mc.APIBase)
			}
		})
		return NewBedrock(BedrockConfig{Client: client, ModelID: mc.ModelID, Logger: logger}), nil
	}

	f.constructors["anthropic"] = func(mc config.ModelConfig, _ aws.Config, logger *slog.Logger) (domain.LanguageModel, error) {
		if mc.APIKey == "" {
			return nil, fmt.Errorf("anthropic: no API key configured (set model.apiKey or ANTHROPIC_API_KEY)")
		}
		return NewAnthropic(AnthropicConfig{APIKey: mc.APIKey, APIBase: mc.APIBase, Model: mc.ModelID, Logger: logger}), nil
	}

	f.constructors["openai"] = func(mc config.ModelConfig, _ aws.Config, logger *slog.Logger) (domain.LanguageModel, error) {
		if mc.APIKey == "" && mc.APIBase == "" {
			return nil, fmt.Errorf("openai: no API key configured (set model.apiKey or OPENAI_API_KEY)")
		}
		return NewOpenAI(OpenAIConfig{APIKey: mc.APIKey, APIBase: mc.APIBase, Model: mc.ModelID, Logger: logger}), nil
	}
}

// Get returns the model for mc, creating it on first use. Models are cached
// per provider and model ID. Uses double-check locking to avoid TOCTOU races.
func (f *Factory) Get(mc config.ModelConfig) (domain.LanguageModel, error) {
	name := mc.Provider
	if name == "" {
		name = "bedrock"
	}
	key := fmt.Sprintf("%s/%s/%g/%d", name, mc.ModelID, mc.RatePerMinute, mc.Burst)

	f.mu.RLock()
	if cached, ok := f.cache[key]; ok {
		f.mu.RUnlock()
		return cached, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	if cached, ok := f.cache[key]; ok {
		return cached, nil
	}

	ctor, ok := f.constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown model provider: %s", name)
	}
	m, err := ctor(mc, f.awsCfg, f.logger)
	if err != nil {
		return nil, err
	}
	if mc.RatePerMinute > 0 {
		m = NewRateLimited(m, NewRateLimiter(mc.Burst, mc.RatePerMinute))
	}

	f.logger.Info("language model ready", "provider", name, "model", mc.ModelID, "ratePerMinute", mc.RatePerMinute)
	f.cache[key] = m
	return m, nil
}
