package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClient wires a client to server with a backoff unit short
// enough for retry tests.
func newTestClient(server *httptest.Server) *Client {
	client := NewClient(server.URL, nil)
	client.SetRetryDelay(time.Millisecond)
	return client
}

func TestCommand_RequestShape(t *testing.T) {
	var gotPath, gotCommand, gotValue, gotStamp string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCommand = r.URL.Query().Get("command")
		gotValue = r.URL.Query().Get("value")
		gotStamp = r.URL.Query().Get("_")
		w.Write([]byte(`{"description":"Lighting"}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.GetCategory(context.Background(), "settings")
	if err != nil {
		t.Fatalf("GetCategory() error = %v, want nil", err)
	}

	if gotPath != "/hh" {
		t.Errorf("path = %s, want /hh", gotPath)
	}
	if gotCommand != "getCategory" {
		t.Errorf("command = %s, want getCategory", gotCommand)
	}
	if gotValue != "settings" {
		t.Errorf("value = %s, want settings", gotValue)
	}
	if gotStamp == "" {
		t.Error("cache buster parameter missing")
	}
}

func TestCommand_AuthFailureNotRetriedAndNoFallback(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server)
	// defaultOnError is set, but auth failures must bypass the fallback.
	_, err := client.GetDeviceStatus(context.Background(), true)

	if err == nil {
		t.Fatal("GetDeviceStatus() should fail on 401")
	}
	if !IsAuthError(err) {
		t.Errorf("error should be auth error, got %v", err)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("requests = %d, want 1 (401 must not be retried)", n)
	}
}

func TestCommand_NotFoundNotRetried(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.GetUpdateStatus(context.Background(), false)

	if err == nil {
		t.Fatal("GetUpdateStatus() should fail on 404")
	}
	if !IsNotFound(err) {
		t.Errorf("error should satisfy IsNotFound, got %v", err)
	}
	if IsRetryable(err) {
		t.Error("404 should not be retryable")
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestCommand_ServerErrorExhaustsRetries(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.GetDeviceStatus(context.Background(), false)

	if err == nil {
		t.Fatal("GetDeviceStatus() should fail on persistent 500")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Kind != KindServer {
		t.Errorf("Kind = %v, want KindServer", apiErr.Kind)
	}
	if n := requests.Load(); n != defaultAttempts {
		t.Errorf("requests = %d, want %d", n, defaultAttempts)
	}
}

func TestCommand_FallbackAfterExhaustion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server)
	status, err := client.GetDeviceStatus(context.Background(), true)

	if err != nil {
		t.Fatalf("GetDeviceStatus() with fallback error = %v, want nil", err)
	}
	if status != (DeviceStatus{}) {
		t.Errorf("status = %+v, want zero value", status)
	}
}

func TestCommand_RetrySucceedsAfterTransientError(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"DeviceName":"TestDevice","Serial":"11111 000000"}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	status, err := client.GetDeviceStatus(context.Background(), false)

	if err != nil {
		t.Fatalf("GetDeviceStatus() error = %v, want nil", err)
	}
	if status.DeviceName != "TestDevice" {
		t.Errorf("DeviceName = %s, want TestDevice", status.DeviceName)
	}
	if n := requests.Load(); n != 3 {
		t.Errorf("requests = %d, want 3", n)
	}
}

func TestCommand_NullListCoercedToEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	}))
	defer server.Close()

	client := newTestClient(server)
	notifications, err := client.GetLastPushNotifications(context.Background(), false)

	if err != nil {
		t.Fatalf("GetLastPushNotifications() error = %v, want nil", err)
	}
	if len(notifications) != 0 {
		t.Errorf("notifications = %v, want empty", notifications)
	}
}

func TestCommand_EmptyBodyListCoercedToEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server)
	categories, err := client.ListCategories(context.Background())

	if err != nil {
		t.Fatalf("ListCategories() error = %v, want nil", err)
	}
	if len(categories) != 0 {
		t.Errorf("categories = %v, want empty", categories)
	}
}

func TestCommand_MalformedJSONRepaired(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		// Truncated object, as some firmware revisions produce.
		w.Write([]byte(`{"DeviceName":"AdoraDish","Status":"running"`))
	}))
	defer server.Close()

	client := newTestClient(server)
	status, err := client.GetDeviceStatus(context.Background(), false)

	if err != nil {
		t.Fatalf("GetDeviceStatus() error = %v, want repaired result", err)
	}
	if status.DeviceName != "AdoraDish" || status.Status != "running" {
		t.Errorf("status = %+v, want repaired fields", status)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("requests = %d, want 1 (repair must not consume retries)", n)
	}
}

func TestCommand_UnrepairableBodyIsDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>login</html>"))
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.GetDeviceStatus(context.Background(), false)

	if err == nil {
		t.Fatal("GetDeviceStatus() should fail on an HTML body")
	}
	if !IsRetryable(err) {
		t.Error("decode failures should be retryable")
	}
}

func TestCommand_RawReturnsBodyVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("f8:f0:05:12:34:56"))
	}))
	defer server.Close()

	client := newTestClient(server)
	mac, err := client.GetMACAddress(context.Background(), false)

	if err != nil {
		t.Fatalf("GetMACAddress() error = %v, want nil", err)
	}
	if mac != "f8:f0:05:12:34:56" {
		t.Errorf("mac = %q, want raw body", mac)
	}
}

func TestCommand_RejectEmptyRetries(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.command(context.Background(), commandSpec{
		Component:   ComponentHH,
		Command:     "getEcoInfo",
		Expect:      expectObject,
		RejectEmpty: true,
		Attempts:    2,
	})

	if err == nil {
		t.Fatal("command() should reject an empty object")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Kind != KindValidation {
		t.Errorf("Kind = %v, want KindValidation", apiErr.Kind)
	}
	if n := requests.Load(); n != 2 {
		t.Errorf("requests = %d, want 2", n)
	}
}

func TestCommand_WrongShapeRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["not","an","object"]`))
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.command(context.Background(), commandSpec{
		Component: ComponentAI,
		Command:   "getDeviceStatus",
		Expect:    expectObject,
		Attempts:  1,
	})

	if err == nil {
		t.Fatal("command() should reject an array where an object is expected")
	}
}

func TestCommand_MutationUsesShortBudget(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server)
	err := client.SetCommand(context.Background(), "EcoMode", "on")

	if err == nil {
		t.Fatal("SetCommand() should fail on persistent 500")
	}
	if n := requests.Load(); n != mutationAttempts {
		t.Errorf("requests = %d, want %d", n, mutationAttempts)
	}
}

func TestCommand_LinearBackoffSpacing(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	delay := 20 * time.Millisecond
	client.SetRetryDelay(delay)

	start := time.Now()
	_, err := client.command(context.Background(), commandSpec{
		Component: ComponentAI,
		Command:   "getDeviceStatus",
		Attempts:  3,
	})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("command() should fail")
	}
	// Attempts sleep 0, 1x and 2x the delay before running.
	if want := 3 * delay; elapsed < want {
		t.Errorf("elapsed = %v, want at least %v of backoff", elapsed, want)
	}
}

func TestCommand_ContextCancelStopsRetrying(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	client.SetRetryDelay(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.GetDeviceStatus(ctx, true)
	if err == nil {
		t.Fatal("GetDeviceStatus() should fail when the context expires")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancellation took %v, should be prompt", elapsed)
	}
}

func TestCacheBuster_StrictlyIncreasing(t *testing.T) {
	client := NewClient("http://example.invalid", nil)

	var last int64
	for i := 0; i < 100; i++ {
		stamp, err := strconv.ParseInt(client.cacheBuster(), 10, 64)
		if err != nil {
			t.Fatalf("cacheBuster() produced non-numeric stamp: %v", err)
		}
		if stamp <= last {
			t.Fatalf("stamp %d not greater than previous %d", stamp, last)
		}
		last = stamp
	}
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	client := NewClient("http://192.168.1.50/", nil)
	if client.BaseURL() != "http://192.168.1.50" {
		t.Errorf("BaseURL() = %s, want trailing slash removed", client.BaseURL())
	}
}
