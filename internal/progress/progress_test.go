package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := NewLog(zap.New(core), "cities", 10)

	sink.Ready(25)
	for i := 0; i < 25; i++ {
		sink.Advance(1)
	}
	sink.Finish()

	assert.Equal(t, 25, sink.Seen())
	assert.Equal(t, 1, logs.FilterMessage("Pass started").Len())
	assert.Equal(t, 2, logs.FilterMessage("Pass progress").Len())

	finished := logs.FilterMessage("Pass finished").All()
	require.Len(t, finished, 1)
	assert.Equal(t, "cities", finished[0].ContextMap()["pass"])
	assert.Equal(t, int64(25), finished[0].ContextMap()["lines"])
}

func TestLog_LargeSteps(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := NewLog(zap.New(core), "deletes", 10)

	sink.Ready(0)
	sink.Advance(35)
	sink.Advance(1)
	sink.Advance(4)

	assert.Equal(t, 2, logs.FilterMessage("Pass progress").Len())
}

func TestNop(t *testing.T) {
	var s Sink = NopFactory("x")
	s.Ready(1)
	s.Advance(1)
	s.Finish()
}
