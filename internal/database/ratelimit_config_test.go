package database

import (
	"errors"
	"testing"

	"github.com/benvon/portfolio/internal/models"
)

func TestValidateRatelimitConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *models.RatelimitConfig
		wantErr bool
		unknown bool
	}{
		{name: "page", cfg: &models.RatelimitConfig{ConfigKey: models.RatelimitKeyPage, Rate: "100-M"}},
		{name: "contact", cfg: &models.RatelimitConfig{ConfigKey: models.RatelimitKeyContact, Rate: "5-M"}},
		{name: "nil", cfg: nil, wantErr: true},
		{name: "unknown key", cfg: &models.RatelimitConfig{ConfigKey: "default", Rate: "5-M"}, wantErr: true, unknown: true},
		{name: "empty rate", cfg: &models.RatelimitConfig{ConfigKey: models.RatelimitKeyPage, Rate: "  "}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateRatelimitConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateRatelimitConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.unknown && !errors.Is(err, ErrUnknownRatelimitKey) {
				t.Errorf("expected ErrUnknownRatelimitKey, got %v", err)
			}
		})
	}
}
