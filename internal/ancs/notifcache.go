package ancs

import "container/list"

// NotificationRecord is a notification waiting for, or receiving, its attributes.
type NotificationRecord struct {
	ID   NotificationID
	Data NotificationData

	AppID   *string
	Date    *string
	Title   *string
	Message *string

	released bool
}

func newNotificationRecord(id NotificationID, data NotificationData) *NotificationRecord {
	return &NotificationRecord{ID: id, Data: data}
}

// set stores an attribute value. Values for unknown attributes and values arriving after
// release are dropped; the return value reports whether the value was kept.
func (r *NotificationRecord) set(attr NotificationAttr, value string) bool {
	if r.released {
		return false
	}
	v := value
	switch attr {
	case AttrAppIdentifier:
		r.AppID = &v
	case AttrDate:
		r.Date = &v
	case AttrTitle:
		r.Title = &v
	case AttrMessage:
		r.Message = &v
	default:
		return false
	}
	return true
}

// release drops the owned strings. Releasing twice is a no-op.
func (r *NotificationRecord) release() {
	if r == nil || r.released {
		return
	}
	r.AppID, r.Date, r.Title, r.Message = nil, nil, nil, nil
	r.released = true
}

// Released reports whether the record has left the engine's ownership.
func (r *NotificationRecord) Released() bool {
	return r.released
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NotificationCache holds pending notifications in arrival order, keyed by id.
type NotificationCache struct {
	max   int
	order *list.List
	index map[NotificationID]*list.Element
}

// NewNotificationCache creates a cache holding at most max records; 0 means unbounded.
func NewNotificationCache(max int) *NotificationCache {
	if max < 0 {
		max = 0
	}
	return &NotificationCache{
		max:   max,
		order: list.New(),
		index: make(map[NotificationID]*list.Element),
	}
}

// Push appends rec. A record with the same id is released and replaced, and when the cache
// is full the oldest record is evicted and returned.
func (c *NotificationCache) Push(rec *NotificationRecord) (evicted *NotificationRecord) {
	if old, ok := c.Remove(rec.ID); ok {
		old.release()
	}
	if c.max > 0 && c.order.Len() >= c.max {
		front := c.order.Front()
		evicted = front.Value.(*NotificationRecord)
		c.order.Remove(front)
		delete(c.index, evicted.ID)
		evicted.release()
	}
	c.index[rec.ID] = c.order.PushBack(rec)
	return evicted
}

// Front returns the oldest record, or nil.
func (c *NotificationCache) Front() *NotificationRecord {
	if e := c.order.Front(); e != nil {
		return e.Value.(*NotificationRecord)
	}
	return nil
}

// Find returns the record with the given id, or nil.
func (c *NotificationCache) Find(id NotificationID) *NotificationRecord {
	if e, ok := c.index[id]; ok {
		return e.Value.(*NotificationRecord)
	}
	return nil
}

// Remove unlinks the record with the given id and transfers it to the caller.
func (c *NotificationCache) Remove(id NotificationID) (*NotificationRecord, bool) {
	e, ok := c.index[id]
	if !ok {
		return nil, false
	}
	c.order.Remove(e)
	delete(c.index, id)
	return e.Value.(*NotificationRecord), true
}

// Len returns the number of cached records.
func (c *NotificationCache) Len() int {
	return c.order.Len()
}

// IDs returns the cached ids in arrival order.
func (c *NotificationCache) IDs() []NotificationID {
	ids := make([]NotificationID, 0, c.order.Len())
	for e := c.order.Front(); e != nil; e = e.Next() {
		ids = append(ids, e.Value.(*NotificationRecord).ID)
	}
	return ids
}

// Clear releases every record.
func (c *NotificationCache) Clear() {
	for e := c.order.Front(); e != nil; e = e.Next() {
		e.Value.(*NotificationRecord).release()
	}
	c.order.Init()
	c.index = make(map[NotificationID]*list.Element)
}
