package ancs

// ApplicationRecord caches the display name of a source application.
type ApplicationRecord struct {
	AppID       string
	DisplayName *string
}

// Name returns the display name, or UnknownName when it was never received.
func (a *ApplicationRecord) Name() string {
	if a == nil || a.DisplayName == nil {
		return UnknownName
	}
	return *a.DisplayName
}

// ApplicationCache maps application identifiers to their records for one session.
type ApplicationCache struct {
	apps map[string]*ApplicationRecord
}

func NewApplicationCache() *ApplicationCache {
	return &ApplicationCache{apps: make(map[string]*ApplicationRecord)}
}

func (c *ApplicationCache) Find(appID string) *ApplicationRecord {
	return c.apps[appID]
}

// FindOrCreate returns the record for appID, creating an empty one if needed.
func (c *ApplicationCache) FindOrCreate(appID string) *ApplicationRecord {
	if app, ok := c.apps[appID]; ok {
		return app
	}
	app := &ApplicationRecord{AppID: appID}
	c.apps[appID] = app
	return app
}

func (c *ApplicationCache) Len() int {
	return len(c.apps)
}

func (c *ApplicationCache) Clear() {
	c.apps = make(map[string]*ApplicationRecord)
}
