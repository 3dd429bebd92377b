// Package config loads the typed configuration surface for the chat
// orchestration core via viper, with defaults matching every option
// named in the specification's "Configuration surface" section.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full configuration surface consumed by the orchestrator
// and every stage it wires. All fields have defaults set in Load, so a
// caller may run with zero environment/file configuration in tests.
type Config struct {
	Cache      CacheConfig      `mapstructure:"cache"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Rerank     RerankConfig     `mapstructure:"rerank"`
	Ranking    RankingConfig    `mapstructure:"ranking"`
	Safety     SafetyConfig     `mapstructure:"safety"`
	Generation GenerationConfig `mapstructure:"generation"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Gate       GateConfig       `mapstructure:"gate"`
}

type CacheConfig struct {
	ExpansionSize int           `mapstructure:"expansion_size"`
	ResponseSize  int           `mapstructure:"response_size"`
	SearchSize    int           `mapstructure:"search_size"`
	ResponseTTL   time.Duration `mapstructure:"response_ttl"`
	SearchTTL     time.Duration `mapstructure:"search_ttl"`
	Enabled       bool          `mapstructure:"enabled"`
}

type RetrievalConfig struct {
	TopK          int  `mapstructure:"top_k"`
	FilterEnabled bool `mapstructure:"filter_enabled"`
	TimeoutSecs   int  `mapstructure:"timeout_seconds"`
}

type RerankConfig struct {
	TopNDefault    int           `mapstructure:"top_n_default"`
	TopNShort      int           `mapstructure:"top_n_short"`
	TopNMulti      int           `mapstructure:"top_n_multi"`
	MinScore       float64       `mapstructure:"min_score"`
	RetryMinScore  float64       `mapstructure:"retry_min_score"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type RankingConfig struct {
	ForcedBoostMultiplier float64 `mapstructure:"forced_boost_multiplier"`
	ForcedScoreFloor      float64 `mapstructure:"forced_score_floor"`
	ForcedRecoveryFloor   float64 `mapstructure:"forced_recovery_floor"`
	SurgePenalty          float64 `mapstructure:"surge_penalty"`
	PediatricBoost        float64 `mapstructure:"pediatric_boost"`
	AdultBoost            float64 `mapstructure:"adult_boost"`
	LocationBoost         float64 `mapstructure:"location_boost"`
	MMRLambda             float64 `mapstructure:"mmr_lambda"`
	MMRMaxResults         int     `mapstructure:"mmr_max_results"`
	ScoreWindow           float64 `mapstructure:"score_window"`
}

type SafetyConfig struct {
	HallucinationBlockThreshold float64 `mapstructure:"hallucination_block_threshold"`
	HumanReviewThreshold        float64 `mapstructure:"human_review_threshold"`
	FactVerificationStrict      bool    `mapstructure:"fact_verification_strict"`
	StrictMode                  bool    `mapstructure:"strict_mode"`
}

type GenerationConfig struct {
	Temperature     float32       `mapstructure:"temperature"`
	MaxTokensSingle int           `mapstructure:"max_tokens_single"`
	MaxTokensMulti  int           `mapstructure:"max_tokens_multi"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type GateConfig struct {
	OutOfScopeTopics []string `mapstructure:"out_of_scope_topics"`
}

type AuditConfig struct {
	BufferSize           int           `mapstructure:"buffer_size"`
	FlushInterval        time.Duration `mapstructure:"flush_interval"`
	MaxQuestionLength    int           `mapstructure:"max_question_length"`
	MaxResponseLength    int           `mapstructure:"max_response_length"`
	Enabled              bool          `mapstructure:"enabled"`
}

// Load reads configuration from environment variables (prefixed
// CHATCORE_) and an optional config file, falling back to the spec's
// stated defaults for anything unset.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CHATCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("chatcore")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/chatcore")

	setDefaults(v)
	bindEnvs(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindEnvs explicitly binds every configuration key to its
// CHATCORE_-prefixed environment variable. AutomaticEnv alone only
// resolves keys looked up via v.Get; it does not feed v.Unmarshal for
// keys that were never individually bound, so every key set in
// setDefaults needs a matching BindEnv call here.
func bindEnvs(v *viper.Viper) {
	keys := []string{
		"cache.expansion_size", "cache.response_size", "cache.search_size",
		"cache.response_ttl", "cache.search_ttl", "cache.enabled",
		"retrieval.top_k", "retrieval.filter_enabled", "retrieval.timeout_seconds",
		"rerank.top_n_default", "rerank.top_n_short", "rerank.top_n_multi",
		"rerank.min_score", "rerank.retry_min_score", "rerank.timeout",
		"ranking.forced_boost_multiplier", "ranking.forced_score_floor",
		"ranking.forced_recovery_floor", "ranking.surge_penalty",
		"ranking.pediatric_boost", "ranking.adult_boost", "ranking.location_boost",
		"ranking.mmr_lambda", "ranking.mmr_max_results", "ranking.score_window",
		"safety.hallucination_block_threshold", "safety.human_review_threshold",
		"safety.fact_verification_strict", "safety.strict_mode",
		"generation.temperature", "generation.max_tokens_single",
		"generation.max_tokens_multi", "generation.timeout",
		"audit.buffer_size", "audit.flush_interval", "audit.max_question_length",
		"audit.max_response_length", "audit.enabled",
		"gate.out_of_scope_topics",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.expansion_size", 5000)
	v.SetDefault("cache.response_size", 1000)
	v.SetDefault("cache.search_size", 500)
	v.SetDefault("cache.response_ttl", 24*time.Hour)
	v.SetDefault("cache.search_ttl", 6*time.Hour)
	v.SetDefault("cache.enabled", true)

	v.SetDefault("retrieval.top_k", 100)
	v.SetDefault("retrieval.filter_enabled", true)
	v.SetDefault("retrieval.timeout_seconds", 30)

	v.SetDefault("rerank.top_n_default", 7)
	v.SetDefault("rerank.top_n_short", 5)
	v.SetDefault("rerank.top_n_multi", 10)
	v.SetDefault("rerank.min_score", 0.1)
	v.SetDefault("rerank.retry_min_score", 0.0)
	v.SetDefault("rerank.timeout", 30*time.Second)

	v.SetDefault("ranking.forced_boost_multiplier", 1.5)
	v.SetDefault("ranking.forced_score_floor", 0.5)
	v.SetDefault("ranking.forced_recovery_floor", 0.35)
	v.SetDefault("ranking.surge_penalty", 0.3)
	v.SetDefault("ranking.pediatric_boost", 1.3)
	v.SetDefault("ranking.adult_boost", 1.2)
	v.SetDefault("ranking.location_boost", 1.25)
	v.SetDefault("ranking.mmr_lambda", 0.6)
	v.SetDefault("ranking.mmr_max_results", 10)
	v.SetDefault("ranking.score_window", 0.6)

	v.SetDefault("safety.hallucination_block_threshold", 0.5)
	v.SetDefault("safety.human_review_threshold", 0.3)
	v.SetDefault("safety.fact_verification_strict", true)
	v.SetDefault("safety.strict_mode", true)

	v.SetDefault("generation.temperature", 0.0)
	v.SetDefault("generation.max_tokens_single", 500)
	v.SetDefault("generation.max_tokens_multi", 800)
	v.SetDefault("generation.timeout", 45*time.Second)

	v.SetDefault("audit.buffer_size", 50)
	v.SetDefault("audit.flush_interval", 30*time.Second)
	v.SetDefault("audit.max_question_length", 1000)
	v.SetDefault("audit.max_response_length", 4000)
	v.SetDefault("audit.enabled", true)

	v.SetDefault("gate.out_of_scope_topics", []string{
		"parking", "cafeteria", "menu", "vending machine", "gift shop",
		"weather", "sports", "movie", "restaurant",
	})
}
