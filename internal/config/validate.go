package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateEvaluation(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must not be negative")
	}
	return c.validateLogging()
}

// RequireCredentials reports missing API keys for commands that reach the
// network. Loading never fails on missing keys so offline commands such as
// score and config validate keep working.
func (c *Config) RequireCredentials() error {
	if c.Transcription.Provider == ProviderOpenAI && c.Transcription.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("transcription.api_key is required. Set OPENAI_API_KEY or edit %s (create with 'adtrim config init')", defaultPath)
	}
	if c.LLM.APIKey == "" {
		return errors.New("llm.api_key is required. Set OPENAI_API_KEY or OPENROUTER_API_KEY")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Provider {
	case ProviderOpenAI, ProviderWhisperX:
	default:
		return fmt.Errorf("transcription.provider must be %q or %q, got %q", ProviderOpenAI, ProviderWhisperX, c.Transcription.Provider)
	}
	if c.Transcription.TimeoutSeconds < 0 {
		return errors.New("transcription.timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.TimeoutSeconds < 0 {
		return errors.New("llm.timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.MaxChunkMB <= 0 {
		return errors.New("audio.max_chunk_mb must be positive")
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.IntervalSeconds <= 0 {
		return errors.New("watch.interval_seconds must be positive")
	}
	return nil
}

func (c *Config) validateEvaluation() error {
	for name, value := range map[string]float64{
		"evaluation.min_f1":  c.Evaluation.MinF1,
		"evaluation.min_iou": c.Evaluation.MinIoU,
	} {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	if c.Evaluation.Workers < 0 {
		return errors.New("evaluation.workers must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	return nil
}
