package stream

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/strmhost/iris/internal/state"
)

// Engine.io packet prefixes used by the realtime endpoint.
const (
	frameOpen     = "0" // session open, payload is the handshake JSON
	framePing     = "2" // server ping, answer with pong
	framePong     = "3"
	frameConnect  = "40" // socket.io namespace connected
	frameEvent    = "42" // socket.io event, payload is ["name", {...}]
	frameAuthName = "authenticate"
)

// handshake is the payload of the open frame.
type handshake struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"` // milliseconds
	PingTimeout  int    `json:"pingTimeout"`
}

// wireEvent is the envelope of an "event" emission: the listener names the
// source ("tip-latest", "subscriber-latest", ...) and Event carries the
// actual payload.
type wireEvent struct {
	Listener string          `json:"listener"`
	Type     string          `json:"type"`
	Event    json.RawMessage `json:"event"`
}

// wireTip is the payload of a tip event.
type wireTip struct {
	Username string  `json:"username"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Message  string  `json:"message"`
}

// wireSub is the payload of a subscriber event.
type wireSub struct {
	Username string          `json:"username"`
	Name     string          `json:"name"`
	Tier     json.RawMessage `json:"tier"` // "1000" or 1000
	Amount   int             `json:"amount"`
	Months   int             `json:"months"`
	Gifted   bool            `json:"gifted"`
	Sender   string          `json:"sender"`
}

// wireViewer is the payload of follower, raid, and host events.
type wireViewer struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Amount   int    `json:"amount"`
	Viewers  int    `json:"viewers"`
}

// wireChat is the payload of a chat message.
type wireChat struct {
	DisplayName string `json:"displayName"`
	Username    string `json:"username"`
	Message     string `json:"message"`
	Text        string `json:"text"`
}

// decodeEventFrame parses the payload of a "42" frame into its event name
// and argument.
func decodeEventFrame(payload string) (name string, arg json.RawMessage, err error) {
	var parts []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &parts); err != nil {
		return "", nil, fmt.Errorf("stream: decode event frame: %w", err)
	}
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("stream: empty event frame")
	}
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return "", nil, fmt.Errorf("stream: decode event name: %w", err)
	}
	if len(parts) > 1 {
		arg = parts[1]
	}
	return name, arg, nil
}

// translate converts a named realtime event into a state.Event. Returns
// false for events the co-host does not react to.
func translate(name string, arg json.RawMessage, now time.Time) (state.Event, bool) {
	switch name {
	case "message":
		return translateChat(arg, now)
	case "event", "event:test", "event:update":
		return translateStreamEvent(arg, now)
	default:
		return state.Event{}, false
	}
}

func translateChat(arg json.RawMessage, now time.Time) (state.Event, bool) {
	var c wireChat
	if err := json.Unmarshal(arg, &c); err != nil {
		return state.Event{}, false
	}
	msg := c.Message
	if msg == "" {
		msg = c.Text
	}
	if strings.TrimSpace(msg) == "" {
		return state.Event{}, false
	}
	ev := state.NewEvent(state.EventChatMessage, now, 0)
	ev.Chat = &state.Chat{Username: pick(c.DisplayName, c.Username), Message: msg}
	return ev, true
}

func translateStreamEvent(arg json.RawMessage, now time.Time) (state.Event, bool) {
	var env wireEvent
	if err := json.Unmarshal(arg, &env); err != nil {
		return state.Event{}, false
	}
	payload := env.Event
	if payload == nil {
		payload = arg
	}
	kind := env.Listener + " " + env.Type

	switch {
	case strings.Contains(kind, "tip"):
		return translateTip(payload, now)
	case strings.Contains(kind, "subscriber"):
		return translateSub(payload, now)
	case strings.Contains(kind, "follower"):
		return translateFollow(payload, now)
	case strings.Contains(kind, "raid"), strings.Contains(kind, "host"):
		return translateRaid(payload, now)
	case strings.Contains(kind, "cheer"):
		return translateCheer(payload, now)
	default:
		return state.Event{}, false
	}
}

func translateTip(payload json.RawMessage, now time.Time) (state.Event, bool) {
	var t wireTip
	if err := json.Unmarshal(payload, &t); err != nil {
		return state.Event{}, false
	}
	currency := t.Currency
	if currency == "" {
		currency = "USD"
	}
	ev := state.NewEvent(state.EventDonation, now, 0)
	ev.Donation = &state.Donation{
		Username: pick(t.Username, t.Name),
		Amount:   t.Amount,
		Currency: currency,
		Message:  t.Message,
	}
	return ev, true
}

// translateCheer maps bits to a donation with the "bits" currency so one
// thank-you path covers both.
func translateCheer(payload json.RawMessage, now time.Time) (state.Event, bool) {
	var t wireTip
	if err := json.Unmarshal(payload, &t); err != nil {
		return state.Event{}, false
	}
	ev := state.NewEvent(state.EventDonation, now, 0)
	ev.Donation = &state.Donation{
		Username: pick(t.Username, t.Name),
		Amount:   t.Amount,
		Currency: "bits",
		Message:  t.Message,
	}
	return ev, true
}

func translateSub(payload json.RawMessage, now time.Time) (state.Event, bool) {
	var s wireSub
	if err := json.Unmarshal(payload, &s); err != nil {
		return state.Event{}, false
	}
	months := s.Amount
	if months == 0 {
		months = s.Months
	}
	if months == 0 {
		months = 1
	}
	ev := state.NewEvent(state.EventSubscription, now, 0)
	ev.Subscription = &state.Subscription{
		Username: pick(s.Username, s.Name),
		Months:   months,
		Tier:     tierName(s.Tier),
		Gift:     s.Gifted,
		Gifter:   s.Sender,
	}
	return ev, true
}

func translateFollow(payload json.RawMessage, now time.Time) (state.Event, bool) {
	var v wireViewer
	if err := json.Unmarshal(payload, &v); err != nil {
		return state.Event{}, false
	}
	ev := state.NewEvent(state.EventFollow, now, 0)
	ev.Chat = &state.Chat{Username: pick(v.Username, v.Name)}
	return ev, true
}

func translateRaid(payload json.RawMessage, now time.Time) (state.Event, bool) {
	var v wireViewer
	if err := json.Unmarshal(payload, &v); err != nil {
		return state.Event{}, false
	}
	viewers := v.Amount
	if viewers == 0 {
		viewers = v.Viewers
	}
	ev := state.NewEvent(state.EventRaid, now, 0)
	ev.Raid = &state.Raid{Username: pick(v.Username, v.Name), Viewers: viewers}
	return ev, true
}

// tierName renders the platform tier code ("1000", 2000, ...) as a label.
func tierName(raw json.RawMessage) string {
	code := strings.Trim(string(raw), `"`)
	switch code {
	case "2000":
		return "Tier 2"
	case "3000":
		return "Tier 3"
	case "prime":
		return "Prime"
	default:
		return "Tier 1"
	}
}

func pick(a, b string) string {
	if a != "" {
		return a
	}
	if b != "" {
		return b
	}
	return "Аноним"
}
