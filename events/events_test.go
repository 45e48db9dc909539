package events

import (
	"testing"

	"github.com/meghashyamc/buzee/logger"
	"github.com/stretchr/testify/require"
)

func TestBusFansOutAndDropsForSlowSubscribers(t *testing.T) {
	assert := require.New(t)
	bus := NewBus(logger.New())

	fast, cancelFast := bus.Subscribe(4)
	defer cancelFast()
	slow, cancelSlow := bus.Subscribe(1)

	bus.Emit(Event{Name: SyncStatus, Payload: "true"})
	bus.Emit(Event{Name: FilesAdded, Key: KeyFilesAdded, Payload: 500})

	assert.Equal(Event{Name: SyncStatus, Payload: "true"}, <-fast)
	assert.Equal(Event{Name: FilesAdded, Key: KeyFilesAdded, Payload: 500}, <-fast)

	assert.Equal(Event{Name: SyncStatus, Payload: "true"}, <-slow)
	assert.Len(slow, 0)

	cancelSlow()
	cancelSlow()
	_, open := <-slow
	assert.False(open)
	assert.Equal(1, bus.Subscribers())
}

func TestRecorderAndMulti(t *testing.T) {
	assert := require.New(t)
	first, second := &Recorder{}, &Recorder{}

	Multi{first, second}.Emit(Event{Name: SyncStatus, Payload: "false"})

	assert.Len(first.Events(), 1)
	assert.Equal(first.Events(), second.Events())
}
