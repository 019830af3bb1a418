package ancs

// handle dispatches one event. It runs on the loop goroutine only.
func (e *Engine) handle(ev Event) {
	switch ev := ev.(type) {
	case Connected:
		e.onConnected(ev)
	case Disconnected:
		e.onDisconnected(ev)
	case PairRequest:
		e.onPairRequest(ev)
	case SecurityLevelChanged:
		e.onSecurityLevelChanged(ev)
	case MTUChanged:
		e.onMTUChanged(ev)
	case ServiceFound:
		e.onServiceFound(ev)
	case BrowseCompleted:
		e.onBrowseCompleted(ev)
	case ServiceChanged:
		e.onServiceChanged(ev)
	case EventStateCompleted:
		e.onEventStateCompleted(ev)
	case NotificationAdded:
		e.onNotificationAdded(ev)
	case NotificationModified:
		if e.cfg.Verbose {
			e.logger.Debug("notification modified", "id", ev.ID.String(), "flags", uint8(ev.Data.Flags),
				"category", ev.Data.Category.String(), "category_count", ev.Data.CategoryCount)
		}
	case NotificationRemoved:
		if e.cfg.Verbose {
			e.logger.Debug("notification removed", "id", ev.ID.String())
		}
	case NotificationAttribute:
		e.onNotificationAttribute(ev)
	case NotificationAttributesCompleted:
		e.onNotificationAttributesCompleted(ev)
	case ApplicationAttribute:
		e.onApplicationAttribute(ev)
	case ApplicationAttributesCompleted:
		e.onApplicationAttributesCompleted(ev)
	case ActionCompleted:
		if e.cfg.Verbose {
			e.logger.Debug("perform action completed", "status", ev.Status.String())
		}
	default:
		e.logger.Warn("unhandled event", "event", ev.eventName())
	}
}

func (e *Engine) onConnected(ev Connected) {
	e.logger.Info("device connected", "conn", ev.Conn, "peer", ev.Peer)
	if e.conn != InvalidConn {
		e.violation(&ProtocolError{Op: "connect", ID: "second connection while one is active"})
		return
	}
	e.setState(StateConnecting)
	e.conn = ev.Conn
	e.mtuExchanged = false
	e.setState(StateConnected)
	if err := e.link.ExchangeMTU(ev.Conn); err != nil {
		e.logger.Warn("mtu exchange failed", "conn", ev.Conn, "error", err)
	}
}

func (e *Engine) onDisconnected(ev Disconnected) {
	e.logger.Info("device disconnected", "conn", ev.Conn, "peer", ev.Peer, "reason", ev.Reason)
	if e.conn == InvalidConn {
		// duplicate signal; teardown already ran
		e.teardown()
		return
	}
	if ev.Conn != e.conn {
		e.logger.Error("disconnect for unknown connection", "conn", ev.Conn, "active", e.conn)
		return
	}
	e.teardown()
	if err := e.link.StartAdvertising(e.advertisement()); err != nil {
		e.logger.Error("restart advertising failed", "error", err)
	}
}

// teardown releases every session resource. It is idempotent.
func (e *Engine) teardown() {
	e.reqTimer.stop()
	e.browseTimer.stop()

	e.notifs.Clear()
	e.apps.Clear()
	e.browses.Clear()
	if e.pending != nil {
		e.pending.release()
		e.pending = nil
	}
	e.security = NoSecurityAction
	e.inflight = request{}
	e.cancelled = request{}
	e.hasLast = false
	e.subscribed = false

	e.purgeNotificationClient()
	e.purgeGATTClient()

	e.conn = InvalidConn
	e.mtuExchanged = false
	e.setState(StateDisconnected)
}

func (e *Engine) onPairRequest(ev PairRequest) {
	if err := e.link.PairReply(ev.Conn, true, ev.Bond); err != nil {
		e.logger.Warn("pair reply failed", "conn", ev.Conn, "error", err)
	}
}

func (e *Engine) requestSecurity() {
	if e.conn == InvalidConn {
		return
	}
	if err := e.link.SetSecurityLevel(e.conn, SecurityLevel2); err != nil {
		e.logger.Warn("security upgrade request failed", "conn", e.conn, "error", err)
	}
}

func (e *Engine) onSecurityLevelChanged(ev SecurityLevelChanged) {
	e.logger.Info("security level changed", "conn", ev.Conn, "level", uint8(ev.Level))
	action := e.security
	if action.IsNone() {
		return
	}
	e.security = NoSecurityAction
	e.logger.Debug("replaying after security upgrade", "action", action.String())

	if kind, ok := action.Subscription(); ok {
		e.enableEvents(kind)
		return
	}
	if action.IsFetch() {
		e.fetchNext()
	}
}

func (e *Engine) onMTUChanged(ev MTUChanged) {
	if ev.Conn != e.conn || e.mtuExchanged {
		return
	}
	e.mtuExchanged = true
	e.logger.Debug("mtu exchanged, delaying browse", "mtu", ev.MTU, "delay", e.cfg.BrowseDelay)
	e.browseTimer.arm()
}

func (e *Engine) handleBrowseDelay(gen uint64) {
	if !e.browseTimer.expired(gen) {
		return
	}
	if e.conn == InvalidConn {
		return
	}
	e.logger.Info("browsing")
	e.setState(StateBrowsing)
	if err := e.browser.Browse(e.conn); err != nil {
		e.logger.Error("browse failed", "error", err)
		e.setState(StateConnected)
	}
}

func (e *Engine) onServiceFound(ev ServiceFound) {
	if ev.Conn != e.conn {
		return
	}
	switch ev.Service.UUID {
	case ServiceANCS:
		if e.notifClient != nil {
			e.purgeNotificationClient()
		}
		c, err := e.clients.NewNotificationClient(ev.Conn, ev.Service)
		if err != nil {
			e.logger.Warn("bind notification provider failed", "error", err)
			return
		}
		e.notifClient = c
		e.notifSvc = ev.Service
		// Data Source first so that it is ready once Notification Source starts producing.
		e.enableEvents(EventDataSource)
	case ServiceGATT:
		if e.gattClient != nil {
			e.purgeGATTClient()
		}
		c, err := e.clients.NewGATTClient(ev.Conn, ev.Service)
		if err != nil {
			e.logger.Warn("bind gatt service failed", "error", err)
			return
		}
		e.gattClient = c
		e.gattSvc = ev.Service
		if err := c.SetServiceChangedIndications(true); err != nil {
			e.logger.Warn("enable service changed indications failed", "error", err)
		}
	}
}

func (e *Engine) enableEvents(kind EventKind) {
	if e.notifClient == nil {
		e.logger.Warn("cannot enable events", "kind", kind.String(), "error", ErrNoClient)
		return
	}
	if err := e.notifClient.SetEventState(kind, true); err != nil {
		e.logger.Warn("enable events failed", "kind", kind.String(), "error", err)
	}
}

func (e *Engine) onEventStateCompleted(ev EventStateCompleted) {
	if ev.Status == StatusInsufficientAuthentication {
		e.security = ResumeEventSubscription(ev.Kind)
		e.requestSecurity()
		return
	}
	if _, ok := e.security.Subscription(); ok {
		e.security = NoSecurityAction
	}

	if !ev.Status.OK() {
		// Without both subscriptions the peer is of no use to us.
		e.logger.Error("event subscription failed, dropping link", "kind", ev.Kind.String(), "status", ev.Status.String())
		if e.conn != InvalidConn {
			if err := e.link.Disconnect(e.conn, reasonRemoteUserTerminated); err != nil {
				e.logger.Warn("disconnect failed", "error", err)
			}
		}
		return
	}

	switch ev.Kind {
	case EventDataSource:
		e.enableEvents(EventNotificationSource)
	case EventNotificationSource:
		e.logger.Info("notification provider subscribed")
		e.subscribed = true
		e.fetchNext()
	}
}

func (e *Engine) onBrowseCompleted(ev BrowseCompleted) {
	if e.state == StateBrowsing {
		e.setState(StateBrowseComplete)
		e.logger.Info("browse completed",
			"ancs", foundString(e.notifClient != nil),
			"gatt", foundString(e.gattClient != nil))
	}

	r, ok := e.browses.Pop()
	if !ok {
		return
	}
	e.logger.Info("services changed, browsing range", "range", r.String())
	e.purgeInRange(r)
	e.browseRange(r)
}

func foundString(found bool) string {
	if found {
		return "found"
	}
	return "not found"
}

func (e *Engine) onServiceChanged(ev ServiceChanged) {
	if e.conn == InvalidConn {
		return
	}
	if e.cfg.Verbose {
		e.logger.Debug("service changed indication", "range", ev.Range.String())
	}
	e.purgeInRange(ev.Range)

	if e.state == StateBrowsing {
		if e.browses.Add(ev.Range) {
			e.logger.Debug("browse in progress, range queued", "range", ev.Range.String())
		}
		return
	}
	e.logger.Info("service changed, browsing range", "range", ev.Range.String())
	e.browseRange(ev.Range)
}

func (e *Engine) browseRange(r HandleRange) {
	e.setState(StateBrowsing)
	if err := e.browser.BrowseRange(e.conn, r); err != nil {
		e.logger.Error("browse range failed", "range", r.String(), "error", err)
		e.setState(StateBrowseComplete)
	}
}

// purgeInRange drops bound clients whose service handles intersect r.
func (e *Engine) purgeInRange(r HandleRange) {
	if e.gattClient != nil && e.gattSvc.Handles.Overlaps(r) {
		e.purgeGATTClient()
	}
	if e.notifClient != nil && e.notifSvc.Handles.Overlaps(r) {
		e.purgeNotificationClient()
	}
}

// purgeNotificationClient unbinds the provider. Queued records stay and are fetched once a
// new client completes its subscriptions.
func (e *Engine) purgeNotificationClient() {
	if e.notifClient == nil {
		return
	}
	e.notifClient.Close()
	e.notifClient = nil
	e.notifSvc = Service{}
	e.subscribed = false

	e.reqTimer.stop()
	e.inflight = request{}
	e.cancelled = request{}
	if e.pending != nil {
		e.pending.release()
		e.pending = nil
	}
	e.security = NoSecurityAction
}

func (e *Engine) purgeGATTClient() {
	if e.gattClient == nil {
		return
	}
	e.gattClient.Close()
	e.gattClient = nil
	e.gattSvc = Service{}
}
