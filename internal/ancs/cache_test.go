package ancs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationCache(t *testing.T) {
	c := NewNotificationCache(3)
	for id := NotificationID(1); id <= 3; id++ {
		assert.Nil(t, c.Push(newNotificationRecord(id, NotificationData{})))
	}
	assert.Equal(t, 3, c.Len())

	evicted := c.Push(newNotificationRecord(4, NotificationData{}))
	require.NotNil(t, evicted)
	assert.Equal(t, NotificationID(1), evicted.ID)
	assert.True(t, evicted.Released())
	assert.Equal(t, []NotificationID{2, 3, 4}, c.IDs())
	assert.Nil(t, c.Find(1))

	rec, ok := c.Remove(3)
	require.True(t, ok)
	assert.False(t, rec.Released(), "removal hands the record over without releasing it")
	_, ok = c.Remove(3)
	assert.False(t, ok)

	assert.Equal(t, NotificationID(2), c.Front().ID)

	front := c.Front()
	c.Clear()
	assert.Zero(t, c.Len())
	assert.Nil(t, c.Front())
	assert.True(t, front.Released())
}

func TestNotificationCacheReplacesDuplicateID(t *testing.T) {
	c := NewNotificationCache(0)
	first := newNotificationRecord(1, NotificationData{Category: CategoryEmail})
	c.Push(first)
	c.Push(newNotificationRecord(2, NotificationData{}))
	c.Push(newNotificationRecord(1, NotificationData{Category: CategoryNews}))

	assert.True(t, first.Released())
	assert.Equal(t, []NotificationID{2, 1}, c.IDs())
	assert.Equal(t, CategoryNews, c.Find(1).Data.Category)
}

func TestNotificationRecordSet(t *testing.T) {
	r := newNotificationRecord(1, NotificationData{})

	assert.True(t, r.set(AttrTitle, "title"))
	assert.True(t, r.set(AttrAppIdentifier, "com.example"))
	assert.False(t, r.set(AttrSubtitle, "ignored"))
	assert.Equal(t, "title", deref(r.Title))
	assert.Equal(t, "com.example", deref(r.AppID))
	assert.Empty(t, deref(r.Message))

	r.release()
	r.release()
	assert.Nil(t, r.Title)
	assert.False(t, r.set(AttrMessage, "late"))
	assert.Nil(t, r.Message)
}

func TestApplicationCache(t *testing.T) {
	c := NewApplicationCache()
	assert.Nil(t, c.Find("com.example"))
	assert.Equal(t, UnknownName, c.Find("com.example").Name())

	app := c.FindOrCreate("com.example")
	assert.Same(t, app, c.FindOrCreate("com.example"))
	assert.Equal(t, UnknownName, app.Name())

	name := "Example"
	app.DisplayName = &name
	assert.Equal(t, "Example", c.Find("com.example").Name())
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Zero(t, c.Len())
}

func TestBrowseQueue(t *testing.T) {
	var q BrowseQueue
	a := HandleRange{Start: 1, End: 10}
	b := HandleRange{Start: 20, End: 30}

	assert.True(t, q.Add(a))
	assert.False(t, q.Add(a))
	assert.True(t, q.Add(b))
	assert.Equal(t, 2, q.Len())

	r, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, a, r)

	// Once popped, the same range may be queued again.
	assert.True(t, q.Add(a))

	q.Clear()
	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestHandleRangeOverlaps(t *testing.T) {
	r := HandleRange{Start: 0x10, End: 0x20}
	tests := []struct {
		name string
		o    HandleRange
		want bool
	}{
		{"inside", HandleRange{0x12, 0x14}, true},
		{"covering", HandleRange{0x01, 0xffff}, true},
		{"touching end", HandleRange{0x20, 0x30}, true},
		{"touching start", HandleRange{0x01, 0x10}, true},
		{"before", HandleRange{0x01, 0x0f}, false},
		{"after", HandleRange{0x21, 0x30}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Overlaps(tt.o))
			assert.Equal(t, tt.want, tt.o.Overlaps(r))
		})
	}
}

func TestPendingSecurityAction(t *testing.T) {
	assert.True(t, NoSecurityAction.IsNone())
	assert.Equal(t, "none", NoSecurityAction.String())

	sub := ResumeEventSubscription(EventNotificationSource)
	kind, ok := sub.Subscription()
	assert.True(t, ok)
	assert.Equal(t, EventNotificationSource, kind)
	assert.False(t, sub.IsFetch())
	assert.Equal(t, "resume-subscription(notification-source)", sub.String())

	fetch := ResumeAttributeFetch()
	_, ok = fetch.Subscription()
	assert.False(t, ok)
	assert.True(t, fetch.IsFetch())
	assert.False(t, fetch.IsNone())
}

func TestOneShotGenerations(t *testing.T) {
	timers := &manualTimers{}
	var posted []uint64
	o := newOneShot(time.Second, timers.after, func(gen uint64) { posted = append(posted, gen) })

	o.arm()
	first := timers.last(time.Second)
	o.arm()
	second := timers.last(time.Second)
	assert.True(t, first.stopped, "re-arming stops the previous timer")

	first.fn()
	second.fn()
	require.Equal(t, []uint64{1, 2}, posted)

	assert.False(t, o.expired(1), "superseded arming")
	assert.True(t, o.expired(2))
	assert.False(t, o.expired(2), "a wake-up is consumed once")

	o.arm()
	o.stop()
	assert.False(t, o.expired(3))
}

func TestStringers(t *testing.T) {
	assert.Equal(t, "0x0000002a", NotificationID(42).String())
	assert.Equal(t, "Social", CategorySocial.String())
	assert.Equal(t, "<unknown>", Category(99).String())
	assert.Equal(t, "Insufficient Authentication", StatusInsufficientAuthentication.String())
	assert.Equal(t, "Unknown Status (0x42)", Status(0x42).String())
	assert.Equal(t, "browse-complete", StateBrowseComplete.String())
	assert.Equal(t, "negative", ActionNegative.String())
	assert.True(t, FlagPreExisting.Has(FlagPreExisting))
	assert.False(t, (FlagSilent | FlagImportant).Has(FlagPreExisting))
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("health and fitness")
	require.NoError(t, err)
	assert.Equal(t, CategoryHealthAndFitness, c)

	c, err = ParseCategory("E-mail")
	require.NoError(t, err)
	assert.Equal(t, CategoryEmail, c)

	_, err = ParseCategory("gossip")
	assert.Error(t, err)
}
