package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{input: "30s", want: 30 * time.Second},
		{input: "10m", want: 10 * time.Minute},
		{input: "2h", want: 2 * time.Hour},
		{input: "1d", want: 24 * time.Hour},
		{input: " 5M ", want: 5 * time.Minute},
		{input: "", wantErr: true},
		{input: "10", wantErr: true},
		{input: "h", wantErr: true},
		{input: "-5m", wantErr: true},
		{input: "0h", wantErr: true},
		{input: "10w", wantErr: true},
		{input: "1.5h", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{d: 45 * time.Second, want: "45s"},
		{d: 10 * time.Minute, want: "10m"},
		{d: 3 * time.Hour, want: "3h"},
		{d: 48 * time.Hour, want: "2d"},
		{d: 90 * time.Minute, want: "90m"},
		{d: 25 * time.Hour, want: "25h"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.d))
		})
	}
}
