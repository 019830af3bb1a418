package ancs

func (e *Engine) onNotificationAdded(ev NotificationAdded) {
	if e.cfg.Verbose {
		e.logger.Debug("notification added", "id", ev.ID.String(), "flags", uint8(ev.Data.Flags),
			"category", ev.Data.Category.String(), "category_count", ev.Data.CategoryCount)
	}

	if e.admit(ev) {
		evicted := e.notifs.Push(newNotificationRecord(ev.ID, ev.Data))
		if evicted != nil {
			e.logger.Debug("notification evicted", "id", evicted.ID.String(), "max", e.cfg.MaxQueued)
			if e.inflight.matchesNotification(evicted.ID) {
				e.inflight.evicted = true
			}
		}
		e.lastID = ev.ID
		e.hasLast = true
	}

	e.fetchNext()
}

// admit applies the pre-existing and memory-floor drop policies.
func (e *Engine) admit(ev NotificationAdded) bool {
	if e.cfg.DropPreexisting && ev.Data.Flags.Has(FlagPreExisting) {
		e.logger.Debug("pre-existing notification dropped", "id", ev.ID.String())
		return false
	}
	if free := e.memory(); free <= e.cfg.MinFreeMemory {
		e.logger.Warn("notification dropped under memory pressure", "id", ev.ID.String(), "free", free)
		return false
	}
	return true
}

func (e *Engine) notificationAttrs() []AttrRequest {
	return []AttrRequest{
		{Attr: AttrAppIdentifier},
		{Attr: AttrDate},
		{Attr: AttrTitle, MaxLen: e.cfg.TitleMaxLen},
		{Attr: AttrMessage, MaxLen: e.cfg.MessageMaxLen},
	}
}

// fetchNext advances the pipeline: when nothing is in flight it requests the attributes of
// the oldest cached notification and arms the request timeout.
func (e *Engine) fetchNext() {
	if e.inflight.kind != requestNone || e.notifClient == nil || !e.subscribed {
		return
	}
	// Stalled until the security upgrade replays the fetch.
	if e.security.IsFetch() {
		return
	}
	for {
		rec := e.notifs.Front()
		if rec == nil {
			return
		}
		err := e.notifClient.GetNotificationAttributes(rec.ID, e.notificationAttrs())
		if err == nil {
			e.inflight = request{kind: requestNotification, id: rec.ID}
			e.reqTimer.arm()
			return
		}
		e.logger.Warn("notification attribute request failed", "id", rec.ID.String(), "error", err)
		e.notifs.Remove(rec.ID)
		rec.release()
	}
}

func (e *Engine) onNotificationAttribute(ev NotificationAttribute) {
	if e.cfg.Verbose {
		e.logger.Debug("notification attribute", "id", ev.ID.String(), "attr", uint8(ev.Attr), "value", ev.Value)
	}
	rec := e.notifs.Find(ev.ID)
	if rec == nil {
		return
	}
	rec.set(ev.Attr, ev.Value)
}

func (e *Engine) onNotificationAttributesCompleted(ev NotificationAttributesCompleted) {
	if !e.inflight.matchesNotification(ev.ID) {
		if e.cancelled.matchesNotification(ev.ID) {
			e.logger.Debug("late completion for cancelled request", "id", ev.ID.String())
			e.cancelled = request{}
			return
		}
		e.violation(&ProtocolError{Op: "notification attributes", ID: ev.ID.String()})
		return
	}
	e.reqTimer.stop()
	evicted := e.inflight.evicted
	e.inflight = request{}
	// Answers arrive in order, so a cancelled request can no longer complete.
	e.cancelled = request{}

	if ev.Status == StatusInsufficientAuthentication {
		// The record stays at the head of the cache for the replay. A pending subscription
		// replay wins; its completion restarts the fetch.
		if _, ok := e.security.Subscription(); !ok {
			e.security = ResumeAttributeFetch()
		}
		e.requestSecurity()
		return
	}

	rec, ok := e.notifs.Remove(ev.ID)
	if !ok {
		if !evicted {
			e.violation(&ProtocolError{Op: "notification attributes", ID: ev.ID.String()})
		} else {
			e.logger.Debug("completion for evicted notification", "id", ev.ID.String())
		}
		e.fetchNext()
		return
	}

	if !ev.Status.OK() {
		e.logger.Warn("failed to get notification attributes", "id", ev.ID.String(), "status", ev.Status.String())
		rec.release()
		e.fetchNext()
		return
	}

	if appID := deref(rec.AppID); appID != "" {
		app := e.apps.Find(appID)
		if app == nil {
			if e.requestApplication(rec, appID) {
				return
			}
		}
		e.emit(rec, app)
	} else {
		e.emit(rec, nil)
	}
	rec.release()
	e.fetchNext()
}

// requestApplication parks rec as the pending display record and fetches the display name
// of its application. It reports whether the request was issued.
func (e *Engine) requestApplication(rec *NotificationRecord, appID string) bool {
	if err := e.notifClient.GetApplicationAttributes(appID, []AppAttr{AppAttrDisplayName}); err != nil {
		e.logger.Warn("application attribute request failed", "app_id", appID, "error", err)
		return false
	}
	e.pending = rec
	e.inflight = request{kind: requestApplication, appID: appID}
	e.reqTimer.arm()
	return true
}

func (e *Engine) onApplicationAttribute(ev ApplicationAttribute) {
	if e.cfg.Verbose {
		e.logger.Debug("application attribute", "app_id", ev.AppID, "attr", uint8(ev.Attr), "value", ev.Value)
	}
	if ev.Attr != AppAttrDisplayName {
		return
	}
	name := ev.Value
	e.apps.FindOrCreate(ev.AppID).DisplayName = &name
}

func (e *Engine) onApplicationAttributesCompleted(ev ApplicationAttributesCompleted) {
	if !e.inflight.matchesApplication(ev.AppID) {
		if e.cancelled.matchesApplication(ev.AppID) {
			e.logger.Debug("late completion for cancelled request", "app_id", ev.AppID)
			e.cancelled = request{}
			return
		}
		e.violation(&ProtocolError{Op: "application attributes", ID: ev.AppID})
		return
	}
	e.reqTimer.stop()
	e.inflight = request{}
	e.cancelled = request{}

	// Insufficient authentication is not replayed on this path; the notification is shown
	// without its application name.
	if !ev.Status.OK() {
		e.logger.Warn("failed to get application attributes", "app_id", ev.AppID, "status", ev.Status.String())
	}
	e.flushPending(ev.AppID)
	e.fetchNext()
}

// flushPending emits and releases the pending display record.
func (e *Engine) flushPending(appID string) {
	if e.pending == nil {
		return
	}
	e.emit(e.pending, e.apps.Find(appID))
	e.pending.release()
	e.pending = nil
}

// handleRequestTimeout cancels the outstanding fetch and advances the pipeline as if the
// fetch had failed.
func (e *Engine) handleRequestTimeout(gen uint64) {
	if !e.reqTimer.expired(gen) {
		return
	}
	req := e.inflight
	if req.kind == requestNone {
		return
	}
	e.logger.Warn("request timed out", "id", req.id.String(), "app_id", req.appID, "timeout", e.cfg.RequestTimeout)
	if e.notifClient != nil {
		if err := e.notifClient.CancelRequest(); err != nil {
			e.logger.Warn("cancel request failed", "error", err)
		}
	}
	e.inflight = request{}
	e.cancelled = req

	switch req.kind {
	case requestNotification:
		if rec, ok := e.notifs.Remove(req.id); ok {
			rec.release()
		}
	case requestApplication:
		e.flushPending(req.appID)
	}
	e.fetchNext()
}

func (e *Engine) emit(rec *NotificationRecord, app *ApplicationRecord) {
	n := Resolved{
		ID:       rec.ID,
		Category: rec.Data.Category,
		Flags:    rec.Data.Flags,
		AppID:    deref(rec.AppID),
		AppName:  app.Name(),
		Date:     deref(rec.Date),
		Title:    deref(rec.Title),
		Message:  deref(rec.Message),
	}
	e.logger.Info("notification resolved", "id", n.ID.String(), "app", n.AppName, "category", n.Category.String())
	if err := e.sink.Emit(e.ctx, n); err != nil {
		e.logger.Warn("emit failed", "id", n.ID.String(), "error", err)
	}
}
