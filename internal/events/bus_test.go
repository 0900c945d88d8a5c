/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import (
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventPlaybackStarted)

	bus.Publish(EventPlaybackStarted, Payload{"group_id": "g1"})
	bus.Publish(EventPlaybackStopped, Payload{"group_id": "g2"})

	select {
	case payload := <-sub:
		if payload["group_id"] != "g1" {
			t.Errorf("payload = %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	// Nothing else should arrive; the stop event targets a different type.
	select {
	case payload := <-sub:
		t.Errorf("unexpected second event %v", payload)
	default:
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventVolumeChanged)

	// Fill beyond the channel buffer; publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(EventVolumeChanged, Payload{"n": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	if got := len(sub); got != cap(sub) {
		t.Errorf("buffered events = %d, want full buffer %d", got, cap(sub))
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventTokenCleared)
	bus.Unsubscribe(EventTokenCleared, sub)

	if _, ok := <-sub; ok {
		t.Error("channel still open after unsubscribe")
	}

	// Publishing after unsubscribe must not panic on the closed channel.
	bus.Publish(EventTokenCleared, Payload{"device_id": "dev-1"})
}
