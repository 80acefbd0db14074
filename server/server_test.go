package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"
)

type testCtxKey string

func TestNewServer(t *testing.T) {
	addr := ":8080"
	server := NewServer(addr)

	if server.addr != addr {
		t.Errorf("Expected port %s, but got %s", addr, server.addr)
	}

	if len(server.routes) != 0 {
		t.Errorf("Expected empty routes slice, but got %d routes", len(server.routes))
	}

	if server.mutex == nil {
		t.Error("Expected non-nil mutex")
	}

	if server.handler.ReadHeaderTimeout != DefaultConfig.ReadHeaderTimeout {
		t.Errorf("Expected default read header timeout, but got %v", server.handler.ReadHeaderTimeout)
	}

	server = NewServer("")

	if server.addr != ":http" {
		t.Errorf("Expected default port :http, but got %s", server.addr)
	}
}

func TestServer_WithConfig(t *testing.T) {
	cfg := Config{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       2 * time.Second,
		WriteTimeout:      3 * time.Second,
		IdleTimeout:       4 * time.Second,
	}

	server := NewServer(":0", WithConfig(cfg))

	if server.handler.ReadTimeout != cfg.ReadTimeout {
		t.Errorf("Expected read timeout %v, but got %v", cfg.ReadTimeout, server.handler.ReadTimeout)
	}

	if server.handler.WriteTimeout != cfg.WriteTimeout {
		t.Errorf("Expected write timeout %v, but got %v", cfg.WriteTimeout, server.handler.WriteTimeout)
	}

	if server.handler.IdleTimeout != cfg.IdleTimeout {
		t.Errorf("Expected idle timeout %v, but got %v", cfg.IdleTimeout, server.handler.IdleTimeout)
	}
}

func TestServer_Handle(t *testing.T) {
	server := NewServer(":0")

	server.Handle("/test", http.NotFoundHandler())

	if len(server.routes) != 1 {
		t.Errorf("Expected 1 route, but got %d routes", len(server.routes))
	}

	if server.routes[0].path != "/test" {
		t.Errorf("Expected route path '/test', but got '%s'", server.routes[0].path)
	}
}

func TestServer_WithBaseContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), testCtxKey("test"), "test")

	server := NewServer(":0", WithBaseContext(ctx))

	if server.baseCtx.Value(testCtxKey("test")) != "test" {
		t.Errorf("Expected context value 'test', but got '%s'", server.baseCtx.Value(testCtxKey("test")))
	}
}

func TestServer_WithReadinessChan(t *testing.T) {
	ready := make(chan struct{})
	server := NewServer(":0", WithReadinessChan(ready))

	if server.ready == nil {
		t.Error("Expected non-nil channel")
	}

	close(server.ready)

	if _, ok := <-ready; ok {
		t.Error("Expected closed channel")
	}
}

func TestServer_Run(t *testing.T) {
	noOfReruns := []int{0, 1, 2}

	for _, run := range noOfReruns {
		t.Run(fmt.Sprintf("%d times of calling Run", run), func(t *testing.T) {
			ready := make(chan struct{})
			server := NewServer("127.0.0.1:0", WithReadinessChan(ready))

			server.Handle("/test", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("OK"))
			}))

			// for signaling server stopped without error
			done := make(chan struct{})

			go func() {
				err := server.Run()
				switch err {
				case nil:
					close(done)
				default:
					t.Errorf("Got unexpected error: %v", err)
				}
			}()

			select {
			case <-ready:
			case <-time.After(1 * time.Second):
				t.Fatal("Expected server to start")
			}

			// Test that calling Run on a running server returns
			// ErrServerAlreadyRunning
			for i := 0; i < run; i++ {
				if err := server.Run(); err != ErrServerAlreadyRunning {
					t.Error("Should return ErrServerAlreadyRunning when triggered run on running server")
				}
			}

			resp, err := http.Get("http://" + server.Addr().String() + "/test")
			if err != nil {
				t.Fatalf("Unexpected request error: %v", err)
			}

			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			if string(body) != "OK" {
				t.Errorf("Expected body 'OK', but got %q", body)
			}

			if err := server.Close(); err != nil {
				t.Errorf("Expected no error, but got %v", err)
			}

			select {
			case <-done:
			case <-time.After(1 * time.Second):
				t.Error("Expected server to stop")
			}
		})
	}
}

func TestServer_Close(t *testing.T) {
	ready := make(chan struct{})
	server := NewServer(":0", WithReadinessChan(ready))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})

	go func() {
		err := server.Run()
		switch err {
		case nil:
			close(done)
		default:
			t.Errorf("Got unexpected error: %v", err)
		}
	}()

	select {
	case <-ready:
	case <-time.After(1 * time.Second):
		t.Error("Expected server to start")
	}

	if err := server.Close(ctx); err != nil {
		t.Errorf("Unexpected error shutting down server: %v", err)
	}

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Error("Expected server to stop")
	}
}

func TestServer_Addr(t *testing.T) {
	done := make(chan struct{})

	server := NewServer(":0", WithReadinessChan(done))
	defer server.Close()

	if server.Addr() != nil {
		t.Error("Expected nil address for server that is not running")
	}

	go func() {
		err := server.Run()
		if err != nil {
			t.Errorf("Got unexpected error: %v", err)
		}
	}()

	<-done

	if server.Addr() == nil {
		t.Error("Expected non-empty address")
	}
}
