package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChooseFlow(t *testing.T) {
	const desktopUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 Chrome/120.0 Safari/537.36"

	tests := []struct {
		name    string
		signals Signals
		want    FlowKind
	}{
		{
			name:    "desktop browser",
			signals: Signals{UserAgent: desktopUA, ViewportWidth: 1920},
			want:    FlowPopup,
		},
		{
			name:    "iphone",
			signals: Signals{UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", ViewportWidth: 390},
			want:    FlowRedirect,
		},
		{
			name:    "android",
			signals: Signals{UserAgent: "Mozilla/5.0 (Linux; Android 14; Pixel 8)", ViewportWidth: 412},
			want:    FlowRedirect,
		},
		{
			name:    "installed app on desktop",
			signals: Signals{UserAgent: desktopUA, Standalone: true, ViewportWidth: 1920},
			want:    FlowRedirect,
		},
		{
			name:    "narrow desktop window",
			signals: Signals{UserAgent: desktopUA, ViewportWidth: 700},
			want:    FlowRedirect,
		},
		{
			name:    "width exactly at threshold",
			signals: Signals{UserAgent: desktopUA, ViewportWidth: 768},
			want:    FlowRedirect,
		},
		{
			name:    "unknown width defaults to popup",
			signals: Signals{UserAgent: desktopUA},
			want:    FlowPopup,
		},
		{
			name:    "no signals at all",
			signals: Signals{},
			want:    FlowPopup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChooseFlow(tt.signals))
		})
	}
}
