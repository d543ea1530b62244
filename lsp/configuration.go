package lsp

import (
	"context"
	"fmt"

	"github.com/segmentio/encoding/json"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	phphints "github.com/php-hints/phphints"
	"github.com/php-hints/phphints/hints"
)

// SettingsSection is the configuration section editors send settings under.
const SettingsSection = "phpParameterHint"

// DidChangeConfiguration handles workspace/didChangeConfiguration. Settings
// are read from the phpParameterHint section, or from the whole payload when
// the section is absent, and merged over the settings in effect.
func (s *Server) DidChangeConfiguration(ctx context.Context, params *protocol.DidChangeConfigurationParams) error {
	s.mu.Lock()

	settings, err := decodeSettings(params.Settings, s.settings)
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("Ignoring invalid settings", zap.Error(err))

		return nil
	}

	changed := settings != s.settings
	s.settings = settings
	provider := s.provider

	s.mu.Unlock()

	s.logger.Info("DidChangeConfiguration", zap.Any("settings", settings), zap.Bool("changed", changed))

	if !changed {
		return nil
	}

	s.checkExclusion(ctx, provider, settings.HintExclude)
	provider.Refresh()
	s.refreshInlayHints(ctx)

	return nil
}

// decodeSettings merges a JSON settings payload over base. Keys missing from
// the payload keep their value in base.
func decodeSettings(payload any, base phphints.Settings) (phphints.Settings, error) {
	if payload == nil {
		return base, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return base, fmt.Errorf("encode settings: %w", err)
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return base, fmt.Errorf("decode settings: %w", err)
	}

	if section, ok := wrapper[SettingsSection]; ok {
		raw = section
	}

	out := base
	if err := json.Unmarshal(raw, &out); err != nil {
		return base, fmt.Errorf("decode settings: %w", err)
	}

	return out, nil
}

// checkExclusion tells the user about a hintExclude expression that does not
// compile; hints are then produced without exclusions.
func (s *Server) checkExclusion(ctx context.Context, provider *hints.Provider, expr string) {
	err := provider.ValidateExclusion(expr)
	if err == nil {
		return
	}

	s.logger.Warn("Invalid hintExclude", zap.String("expr", expr), zap.Error(err))

	msg := &protocol.ShowMessageParams{
		Type:    protocol.MessageTypeWarning,
		Message: fmt.Sprintf("php-hints: hintExclude ignored: %v", err),
	}

	if err := s.client.ShowMessage(ctx, msg); err != nil {
		s.logger.Debug("ShowMessage failed", zap.Error(err))
	}
}
