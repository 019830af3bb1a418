// Package sim simulates the phone side of an ANCS session: a provider peer that connects,
// serves discovery and answers attribute requests by posting events back to the engine.
// It stands in for a radio transport in `run --simulate` and in end-to-end tests.
package sim

import (
	"errors"
	"fmt"
	"os"

	"github.com/cristianoliveira/ancs-intray/internal/ancs"
	"github.com/pelletier/go-toml/v2"
)

// Scenario describes what the simulated phone holds and how it behaves.
type Scenario struct {
	// Peer is the phone name reported on connection.
	Peer string `toml:"peer"`
	Conn uint16 `toml:"conn"`
	MTU  uint16 `toml:"mtu"`
	// LatencyMS delays every response.
	LatencyMS int `toml:"latency_ms"`
	// IntervalMS spaces notification source events.
	IntervalMS int `toml:"interval_ms"`
	// RequireAuth answers every request with insufficient authentication until the link
	// reaches security level 2.
	RequireAuth bool `toml:"require_auth"`
	// ServiceChangedAfter sends one service-changed indication covering the notification
	// service after that many notification attribute requests were answered; 0 disables it.
	ServiceChangedAfter int `toml:"service_changed_after"`
	// Unresponsive lists notification ids whose attribute requests are never answered.
	Unresponsive []uint32 `toml:"unresponsive"`
	// Reconnect makes the phone connect again whenever the device re-advertises. Notifications
	// are then resent flagged as pre-existing.
	Reconnect bool `toml:"reconnect"`
	// Apps maps application identifiers to display names.
	Apps          map[string]string `toml:"apps"`
	Notifications []Notification    `toml:"notifications"`
}

// Notification is one notification held by the simulated phone.
type Notification struct {
	ID          uint32 `toml:"id"`
	AppID       string `toml:"app_id"`
	Category    string `toml:"category"`
	Date        string `toml:"date"`
	Title       string `toml:"title"`
	Message     string `toml:"message"`
	Silent      bool   `toml:"silent"`
	Important   bool   `toml:"important"`
	PreExisting bool   `toml:"pre_existing"`
}

// DefaultScenario is used when `run --simulate` is given no scenario file.
func DefaultScenario() Scenario {
	return Scenario{
		Peer:       "iPhone",
		Conn:       1,
		MTU:        185,
		LatencyMS:  20,
		IntervalMS: 750,
		Apps: map[string]string{
			"com.apple.MobileSMS":   "Messages",
			"com.apple.mobilemail":  "Mail",
			"com.apple.mobilecal":   "Calendar",
			"com.apple.mobilephone": "Phone",
		},
		Notifications: []Notification{
			{AppID: "com.apple.MobileSMS", Category: "Social", Date: "20261019T101500", Title: "Alice", Message: "Lunch at noon?"},
			{AppID: "com.apple.mobilemail", Category: "E-mail", Date: "20261019T101742", Title: "Quarterly report", Message: "Please find the draft attached."},
			{AppID: "com.apple.mobilecal", Category: "Schedule", Date: "20261019T103000", Title: "Standup", Message: "In 15 minutes", Important: true},
			{AppID: "com.apple.mobilephone", Category: "Missed call", Date: "20261019T104512", Title: "Bob", Message: "Missed call"},
			{AppID: "com.apple.MobileSMS", Category: "Social", Date: "20261019T105001", Title: "Alice", Message: "Never mind, found a table."},
		},
	}
}

// LoadScenario reads a TOML scenario file.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario %s: %w", path, err)
	}
	return sc, nil
}

// ParseScenario decodes and normalizes a TOML scenario.
func ParseScenario(data []byte) (Scenario, error) {
	var sc Scenario
	if err := toml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := sc.normalize(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// normalize fills defaults, numbers notifications without an id and checks categories.
func (sc *Scenario) normalize() error {
	if sc.Peer == "" {
		sc.Peer = "iPhone"
	}
	if sc.Conn == 0 {
		sc.Conn = 1
	}
	if ancs.ConnHandle(sc.Conn) == ancs.InvalidConn {
		return fmt.Errorf("connection handle 0x%04x is reserved", sc.Conn)
	}
	if sc.MTU == 0 {
		sc.MTU = 185
	}
	if sc.LatencyMS < 0 || sc.IntervalMS < 0 {
		return errors.New("latency_ms and interval_ms must not be negative")
	}
	if sc.Apps == nil {
		sc.Apps = map[string]string{}
	}

	seen := make(map[uint32]bool, len(sc.Notifications))
	var next uint32
	for i := range sc.Notifications {
		n := &sc.Notifications[i]
		if n.ID == 0 {
			for next++; seen[next]; next++ {
			}
			n.ID = next
		}
		if seen[n.ID] {
			return fmt.Errorf("duplicate notification id %d", n.ID)
		}
		seen[n.ID] = true
		if n.Category == "" {
			n.Category = ancs.CategoryOther.String()
		}
		if _, err := ancs.ParseCategory(n.Category); err != nil {
			return fmt.Errorf("notification %d: %w", n.ID, err)
		}
	}
	return nil
}

// data builds the notification source payload for n.
func (n Notification) data(preExisting bool) ancs.NotificationData {
	cat, _ := ancs.ParseCategory(n.Category)
	var flags ancs.EventFlags
	if n.Silent {
		flags |= ancs.FlagSilent
	}
	if n.Important {
		flags |= ancs.FlagImportant
	}
	if n.PreExisting || preExisting {
		flags |= ancs.FlagPreExisting
	}
	flags |= ancs.FlagPositiveAction | ancs.FlagNegativeAction
	return ancs.NotificationData{Category: cat, Flags: flags, CategoryCount: 1}
}

// attribute returns the value of attr, truncated to maxLen when it is non-zero.
func (n Notification) attribute(attr ancs.NotificationAttr, maxLen uint16) (string, bool) {
	var v string
	switch attr {
	case ancs.AttrAppIdentifier:
		v = n.AppID
	case ancs.AttrTitle:
		v = n.Title
	case ancs.AttrMessage:
		v = n.Message
	case ancs.AttrDate:
		v = n.Date
	case ancs.AttrMessageSize:
		v = fmt.Sprint(len(n.Message))
	default:
		return "", false
	}
	if maxLen > 0 {
		if r := []rune(v); len(r) > int(maxLen) {
			v = string(r[:maxLen])
		}
	}
	return v, true
}
