package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextNumber(t *testing.T) {
	day := time.Now().Format("20060102")
	prefix := "INV-" + day + "-"

	tests := []struct {
		name   string
		latest string
		want   string
	}{
		{name: "first of the day", latest: "", want: prefix + "00001"},
		{name: "continues after highest", latest: prefix + "00007", want: prefix + "00008"},
		{name: "past a gap", latest: prefix + "00042", want: prefix + "00043"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var asked string
			got, err := nextNumber(context.Background(), "INV", func(_ context.Context, p string) (string, error) {
				asked = p
				return tt.latest, nil
			})
			require.NoError(t, err)
			assert.Equal(t, prefix, asked)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("malformed suffix", func(t *testing.T) {
		_, err := nextNumber(context.Background(), "INV", func(context.Context, string) (string, error) {
			return prefix + "x1", nil
		})
		assert.Error(t, err)
	})

	t.Run("lookup failure", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := nextNumber(context.Background(), "INV", func(context.Context, string) (string, error) {
			return "", boom
		})
		assert.ErrorIs(t, err, boom)
	})
}
