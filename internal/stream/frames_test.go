package stream

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/strmhost/iris/internal/state"
)

var now = time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)

func mustTranslate(t *testing.T, name, arg string) state.Event {
	t.Helper()
	ev, ok := translate(name, json.RawMessage(arg), now)
	if !ok {
		t.Fatalf("translate(%q, %s) rejected", name, arg)
	}
	return ev
}

func TestDecodeEventFrame(t *testing.T) {
	t.Parallel()

	name, arg, err := decodeEventFrame(`["event",{"listener":"tip-latest"}]`)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if name != "event" {
		t.Errorf("name = %q", name)
	}
	if string(arg) != `{"listener":"tip-latest"}` {
		t.Errorf("arg = %s", arg)
	}

	if _, _, err := decodeEventFrame(`not json`); err == nil {
		t.Error("garbage should fail")
	}
	if _, _, err := decodeEventFrame(`[]`); err == nil {
		t.Error("empty array should fail")
	}
}

func TestTranslateTip(t *testing.T) {
	t.Parallel()

	ev := mustTranslate(t, "event",
		`{"listener":"tip-latest","event":{"username":"gabe","amount":150.5,"currency":"RUB","message":"за клатч"}}`)

	if ev.Type != state.EventDonation {
		t.Fatalf("type = %v", ev.Type)
	}
	d := ev.Donation
	if d.Username != "gabe" || d.Amount != 150.5 || d.Currency != "RUB" || d.Message != "за клатч" {
		t.Errorf("donation = %+v", d)
	}
}

func TestTranslateTipDefaultsCurrency(t *testing.T) {
	t.Parallel()

	ev := mustTranslate(t, "event:test",
		`{"listener":"tip-latest","event":{"name":"anon","amount":5}}`)
	if ev.Donation.Currency != "USD" {
		t.Errorf("currency = %q, want USD", ev.Donation.Currency)
	}
	if ev.Donation.Username != "anon" {
		t.Errorf("username = %q", ev.Donation.Username)
	}
}

func TestTranslateSubscriber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    state.Subscription
	}{
		{
			name:    "new sub",
			payload: `{"listener":"subscriber-latest","event":{"username":"ann","tier":"1000","amount":1}}`,
			want:    state.Subscription{Username: "ann", Months: 1, Tier: "Tier 1"},
		},
		{
			name:    "resub numeric tier",
			payload: `{"listener":"subscriber-latest","event":{"username":"bob","tier":3000,"amount":7}}`,
			want:    state.Subscription{Username: "bob", Months: 7, Tier: "Tier 3"},
		},
		{
			name:    "gift",
			payload: `{"listener":"subscriber-latest","event":{"username":"carol","tier":"2000","gifted":true,"sender":"dave"}}`,
			want:    state.Subscription{Username: "carol", Months: 1, Tier: "Tier 2", Gift: true, Gifter: "dave"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ev := mustTranslate(t, "event", tc.payload)
			if ev.Type != state.EventSubscription {
				t.Fatalf("type = %v", ev.Type)
			}
			if *ev.Subscription != tc.want {
				t.Errorf("sub = %+v, want %+v", *ev.Subscription, tc.want)
			}
		})
	}
}

func TestTranslateRaidAndHost(t *testing.T) {
	t.Parallel()

	raid := mustTranslate(t, "event",
		`{"listener":"raid-latest","event":{"username":"warlord","amount":120}}`)
	if raid.Type != state.EventRaid || raid.Raid.Viewers != 120 {
		t.Errorf("raid = %+v", raid)
	}

	host := mustTranslate(t, "event",
		`{"listener":"host-latest","event":{"username":"buddy","viewers":30}}`)
	if host.Type != state.EventRaid || host.Raid.Viewers != 30 {
		t.Errorf("host = %+v", host)
	}
}

func TestTranslateFollower(t *testing.T) {
	t.Parallel()

	ev := mustTranslate(t, "event",
		`{"listener":"follower-latest","event":{"username":"newbie"}}`)
	if ev.Type != state.EventFollow {
		t.Fatalf("type = %v", ev.Type)
	}
	if ev.Chat.Username != "newbie" {
		t.Errorf("username = %q", ev.Chat.Username)
	}
}

func TestTranslateCheerBecomesDonation(t *testing.T) {
	t.Parallel()

	ev := mustTranslate(t, "event",
		`{"listener":"cheer-latest","event":{"username":"bitsy","amount":500,"message":"poggers"}}`)
	if ev.Type != state.EventDonation {
		t.Fatalf("type = %v", ev.Type)
	}
	if ev.Donation.Currency != "bits" || ev.Donation.Amount != 500 {
		t.Errorf("donation = %+v", ev.Donation)
	}
}

func TestTranslateChatMessage(t *testing.T) {
	t.Parallel()

	ev := mustTranslate(t, "message", `{"displayName":"Viewer","message":"привет стрим"}`)
	if ev.Type != state.EventChatMessage {
		t.Fatalf("type = %v", ev.Type)
	}
	if ev.Chat.Username != "Viewer" || ev.Chat.Message != "привет стрим" {
		t.Errorf("chat = %+v", ev.Chat)
	}

	if _, ok := translate("message", json.RawMessage(`{"username":"x","message":"  "}`), now); ok {
		t.Error("blank chat should be dropped")
	}
}

func TestTranslateIgnoresUnknown(t *testing.T) {
	t.Parallel()

	if _, ok := translate("kvstore:update", json.RawMessage(`{}`), now); ok {
		t.Error("unknown event names must be ignored")
	}
	if _, ok := translate("event", json.RawMessage(`{"listener":"merch-latest","event":{}}`), now); ok {
		t.Error("unknown listeners must be ignored")
	}
}

func TestAnonymousFallback(t *testing.T) {
	t.Parallel()

	ev := mustTranslate(t, "event",
		`{"listener":"tip-latest","event":{"amount":10}}`)
	if ev.Donation.Username != "Аноним" {
		t.Errorf("username = %q, want Аноним", ev.Donation.Username)
	}
}
