package worker

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thebtf/soilsense/internal/kv"
)

// blockingStore holds Get calls until released.
type blockingStore struct {
	kv.Store
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "soilAnalysisHistory" {
		select {
		case b.entered <- struct{}{}:
		default:
		}
		<-b.release
	}
	return b.Store.Get(ctx, key)
}

func newLocalListener(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln
}
