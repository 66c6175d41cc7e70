package chathub

import (
	"testing"

	"anonchat/backend/internal/models"
	"anonchat/backend/internal/stats"

	"github.com/stretchr/testify/assert"
)

func newTestMatcher() (*Matcher, *Registry, *StubStorage) {
	stub := &StubStorage{}
	reg := NewRegistry(stub)
	matcher := NewMatcher(reg, stub, stats.New(stub))
	reg.SetQueue(matcher)
	return matcher, reg, stub
}

func TestEnqueueFlipsToWaiting(t *testing.T) {
	matcher, reg, _ := newTestMatcher()
	sess := reg.Register("1.1.1.1", &StubClient{})

	assert.NoError(t, matcher.Enqueue(sess))
	state, _ := reg.StateOf(sess.ID)
	assert.Equal(t, StateWaiting, state)
	assert.Equal(t, 1, matcher.Len())
}

func TestEnqueueRejectsDuplicates(t *testing.T) {
	matcher, reg, _ := newTestMatcher()
	sess := reg.Register("1.1.1.1", &StubClient{})

	assert.NoError(t, matcher.Enqueue(sess))
	assert.ErrorIs(t, matcher.Enqueue(sess), ErrAlreadyQueued)
	assert.Equal(t, 1, matcher.Len(), "no duplicate waiting entry")
}

func TestEnqueueRejectsNonIdle(t *testing.T) {
	matcher, reg, _ := newTestMatcher()
	a := reg.Register("1.1.1.1", &StubClient{})
	b := reg.Register("2.2.2.2", &StubClient{})
	assert.NoError(t, matcher.Enqueue(a))
	assert.NoError(t, matcher.Enqueue(b))
	matcher.Match()

	// a is now Paired; its entry is gone, so the Idle check trips.
	assert.ErrorIs(t, matcher.Enqueue(a), ErrNotIdle)
}

func TestMatchPairsFIFO(t *testing.T) {
	matcher, reg, stub := newTestMatcher()
	clients := make(map[string]*StubClient)
	var order []string
	for _, source := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3", "4.4.4.4"} {
		client := &StubClient{}
		sess := reg.Register(source, client)
		clients[sess.ID] = client
		order = append(order, sess.ID)
		assert.NoError(t, matcher.Enqueue(sess))
	}

	matcher.Match()

	// First two enqueued pair together, last two pair together.
	partnerOf0, _, _ := reg.PairInfo(order[0])
	assert.Equal(t, order[1], partnerOf0)
	partnerOf2, _, _ := reg.PairInfo(order[2])
	assert.Equal(t, order[3], partnerOf2)
	assert.Equal(t, 0, matcher.Len())
	assert.Equal(t, 2, reg.RoomCount())
	assert.Len(t, stub.SavedSessions, 2)
	for _, row := range stub.SavedSessions {
		assert.Equal(t, 1, row.IsActive)
	}
}

func TestMatchSkipsDeadEntry(t *testing.T) {
	matcher, reg, _ := newTestMatcher()
	a := reg.Register("1.1.1.1", &StubClient{})
	b := reg.Register("2.2.2.2", &StubClient{})
	c := reg.Register("3.3.3.3", &StubClient{})
	assert.NoError(t, matcher.Enqueue(a))
	assert.NoError(t, matcher.Enqueue(b))
	assert.NoError(t, matcher.Enqueue(c))

	// A's channel closes before the match runs.
	reg.Unregister(a.ID)
	matcher.Match()

	partnerOfB, _, paired := reg.PairInfo(b.ID)
	assert.True(t, paired, "B and C must pair despite A's dropout")
	assert.Equal(t, c.ID, partnerOfB)
	assert.Equal(t, 0, matcher.Len())
}

func TestMatchRequeuesSurvivorAtFront(t *testing.T) {
	matcher, reg, _ := newTestMatcher()
	a := reg.Register("1.1.1.1", &StubClient{})
	b := reg.Register("2.2.2.2", &StubClient{})
	assert.NoError(t, matcher.Enqueue(a))
	assert.NoError(t, matcher.Enqueue(b))

	// Simulate a dying between enqueue and match, with a stale entry left
	// behind (no queue removal wired through unregister here).
	reg.SetQueue(nil)
	reg.Unregister(a.ID)
	matcher.Match()

	// B survives at the front of the queue, still Waiting.
	snapshot := matcher.Snapshot()
	assert.Len(t, snapshot, 1)
	assert.Equal(t, b.ID, snapshot[0].SessionID)
	state, _ := reg.StateOf(b.ID)
	assert.Equal(t, StateWaiting, state)

	// A newcomer pairs with B, preserving B's priority.
	c := reg.Register("3.3.3.3", &StubClient{})
	assert.NoError(t, matcher.Enqueue(c))
	matcher.Match()
	partnerOfB, _, _ := reg.PairInfo(b.ID)
	assert.Equal(t, c.ID, partnerOfB)
}

func TestMatchLeavesOddSessionWaiting(t *testing.T) {
	matcher, reg, _ := newTestMatcher()
	var ids []string
	for _, source := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		sess := reg.Register(source, &StubClient{})
		ids = append(ids, sess.ID)
		assert.NoError(t, matcher.Enqueue(sess))
	}

	matcher.Match()
	matcher.Match() // re-running must not disturb the leftover

	assert.Equal(t, 1, matcher.Len())
	state, _ := reg.StateOf(ids[2])
	assert.Equal(t, StateWaiting, state)
}

func TestPartnerFoundCarriesRoomID(t *testing.T) {
	matcher, reg, _ := newTestMatcher()
	clientA, clientB := &StubClient{}, &StubClient{}
	a := reg.Register("1.1.1.1", clientA)
	b := reg.Register("2.2.2.2", clientB)
	assert.NoError(t, matcher.Enqueue(a))
	assert.NoError(t, matcher.Enqueue(b))
	matcher.Match()

	frame, ok := clientA.LastFrame()
	assert.True(t, ok)
	assert.Equal(t, models.EvPartnerFound, frame.Type)
	payload, ok := frame.Data.(models.PartnerFoundPayload)
	assert.True(t, ok)
	assert.NotEmpty(t, payload.RoomID)

	_, roomOfB, _ := reg.PairInfo(b.ID)
	assert.Equal(t, payload.RoomID, roomOfB)
}

func TestRemoveDropsWaitingEntry(t *testing.T) {
	matcher, reg, _ := newTestMatcher()
	sess := reg.Register("1.1.1.1", &StubClient{})
	assert.NoError(t, matcher.Enqueue(sess))

	matcher.Remove(sess.ID)
	assert.Equal(t, 0, matcher.Len())
	matcher.Remove(sess.ID) // removing again is a no-op
}
