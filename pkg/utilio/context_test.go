package utilio

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReader(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		input   string
		limit   int64
		wantErr error
	}{
		{name: "unlimited", input: "hello world", limit: 0, wantErr: nil},
		{name: "exactly the limit", input: "hello", limit: 5, wantErr: nil},
		{name: "over the limit", input: "hello world", limit: 5, wantErr: ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := NewReader(context.Background(), strings.NewReader(tt.input), tt.limit)
			data, err := io.ReadAll(r)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.input, string(data))
			require.Equal(t, int64(len(tt.input)), r.BytesRead())
		})
	}
}

func TestReaderCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := io.ReadAll(NewReader(ctx, strings.NewReader("data"), 0))
	require.ErrorIs(t, err, context.Canceled)
}
