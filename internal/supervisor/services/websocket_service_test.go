// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockHub struct {
	runs int
}

func (m *mockHub) RunWithContext(ctx context.Context) error {
	m.runs++
	<-ctx.Done()
	return ctx.Err()
}

func TestWebSocketHubServiceDelegates(t *testing.T) {
	hub := &mockHub{}
	svc := NewWebSocketHubService(hub)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}

	if hub.runs != 1 {
		t.Errorf("runs = %d, want 1", hub.runs)
	}
	if svc.String() != "websocket-hub" {
		t.Errorf("name = %q", svc.String())
	}
}
