package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInMemoryBus(t *testing.T) {
	bus := NewBus(nil)
	ch, unsubscribe := bus.Subscribe()

	bus.Publish(New(TypeEntryUpdated, 12, 100, "7", nil))

	select {
	case e := <-ch:
		require.Equal(t, TypeEntryUpdated, e.Type)
		require.Equal(t, int64(100), e.EntryID)
		require.NotEmpty(t, e.ID)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	unsubscribe()
	_, open := <-ch
	require.False(t, open)

	// Publishing without subscribers must not block.
	bus.Publish(New(TypeEntryCreated, 12, 101, "", nil))
}

func TestInMemoryBus_DropsWhenFull(t *testing.T) {
	bus := NewBus(nil)
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for i := 0; i < 150; i++ {
		bus.Publish(New(TypeNoteAdded, 1, int64(i), "", nil))
	}

	require.Len(t, ch, 100)
}
