package collectionsync_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bgmexport/internal/collectionsync"
	"bgmexport/internal/logging"
)

func TestLogObserverSamplesDetailProgress(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	require.NoError(t, err)

	obs := collectionsync.NewLogObserver(logger, 50)
	obs.PageDone(collectionsync.PageEvent{Cursor: collectionsync.Cursor{Accumulated: 30, Total: 40, TotalKnown: true}})
	obs.PageDone(collectionsync.PageEvent{Cursor: collectionsync.Cursor{Accumulated: 40, Total: 40, TotalKnown: true}})
	obs.DetailStarted(10)
	for i := 1; i <= 10; i++ {
		obs.DetailDone(collectionsync.DetailEvent{Index: i, Total: 10})
	}

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, `"msg":"collection progress"`))
	assert.Equal(t, 1, strings.Count(out, `"msg":"episode progress started"`))
	// Buckets at 0-49, 50-99 and 100 percent.
	assert.Equal(t, 3, strings.Count(out, `"msg":"episode progress"`))
}
