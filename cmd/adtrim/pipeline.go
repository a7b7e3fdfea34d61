package main

import (
	"fmt"
	"log/slog"
	"strings"

	"adtrim/internal/audio"
	"adtrim/internal/classify"
	"adtrim/internal/config"
	"adtrim/internal/ledger"
	"adtrim/internal/notifications"
	"adtrim/internal/services/llm"
	"adtrim/internal/services/transcribe"
	"adtrim/internal/services/whisperx"
	"adtrim/internal/trimmer"
)

func newTranscriber(cfg *config.Config, logger *slog.Logger) (transcribe.Transcriber, error) {
	var base transcribe.Transcriber
	switch cfg.Transcription.Provider {
	case config.ProviderOpenAI:
		base = transcribe.NewOpenAIClient(transcribe.Config{
			APIKey:         cfg.Transcription.APIKey,
			BaseURL:        cfg.Transcription.BaseURL,
			Model:          cfg.Transcription.Model,
			Language:       cfg.Transcription.Language,
			TimeoutSeconds: cfg.Transcription.TimeoutSeconds,
		})
	case config.ProviderWhisperX:
		base = whisperx.NewService(whisperx.Config{
			Model:       cfg.Transcription.WhisperXModel,
			CUDAEnabled: cfg.Transcription.WhisperXCUDAEnabled,
			Language:    cfg.Transcription.Language,
		}, cfg.Paths.CacheDir)
	default:
		return nil, fmt.Errorf("unsupported transcription provider %q", cfg.Transcription.Provider)
	}
	return transcribe.NewCached(base, cfg.Paths.CacheDir, logger), nil
}

func newLLMClassifier(cfg *config.Config, logger *slog.Logger) *classify.LLMClassifier {
	settings := cfg.GetLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         settings.APIKey,
		BaseURL:        settings.BaseURL,
		Model:          settings.Model,
		Referer:        settings.Referer,
		Title:          settings.Title,
		TimeoutSeconds: settings.TimeoutSeconds,
	})
	return classify.NewLLMClassifier(client, settings.Model, settings.ModelsURL, logger)
}

func newEditor(cfg *config.Config, logger *slog.Logger) *audio.Editor {
	return audio.NewEditor(audio.Options{
		FFmpegBinary:  cfg.FFmpegBinary(),
		FFprobeBinary: cfg.FFprobeBinary(),
		Bitrate:       cfg.Audio.Bitrate,
		Logger:        logger,
	})
}

// newTrimmer assembles the full pipeline. store may be nil for commands that
// never record results.
func newTrimmer(cfg *config.Config, logger *slog.Logger, store *ledger.Store) (*trimmer.Trimmer, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	transcriber, err := newTranscriber(cfg, logger)
	if err != nil {
		return nil, err
	}
	t := &trimmer.Trimmer{
		Transcriber:      transcriber,
		Classifier:       classify.NewCached(newLLMClassifier(cfg, logger), cfg.Paths.CacheDir),
		Editor:           newEditor(cfg, logger),
		Notifier:         notifications.NewService(cfg),
		NotificationClip: strings.TrimSpace(cfg.Paths.NotificationClip),
		MaxChunkMB:       cfg.Audio.MaxChunkMB,
		Logger:           logger,
	}
	if store != nil {
		t.Ledger = store
	}
	return t, nil
}
