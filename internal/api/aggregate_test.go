package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeDevice serves canned responses keyed by "component command" or,
// for parameterized commands, "component command value". Unconfigured
// commands answer 404 like a real appliance does for endpoints it
// lacks.
type fakeDevice struct {
	mu        sync.Mutex
	responses map[string]string
	calls     map[string]int
}

func newFakeDevice(responses map[string]string) *fakeDevice {
	return &fakeDevice{responses: responses, calls: make(map[string]int)}
}

func (d *fakeDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	component := r.URL.Path[1:]
	command := r.URL.Query().Get("command")

	key := component + " " + command
	if value := r.URL.Query().Get("value"); value != "" {
		key += " " + value
	}

	d.mu.Lock()
	d.calls[key]++
	body, ok := d.responses[key]
	d.mu.Unlock()

	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Write([]byte(body))
}

func (d *fakeDevice) callCount(key string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[key]
}

func TestAggregateState(t *testing.T) {
	device := newFakeDevice(map[string]string{
		"ai getDeviceStatus":          `{"DeviceName":"Kitchen","Serial":"11111 000000","Inactive":"false","Program":"Steam","Status":"running"}`,
		"ai getLastPUSHNotifications": `[{"date":"2024-05-01T12:00:00Z","message":"Program finished"}]`,
		"hh getEcoInfo":               `{"water":{"total":250.5,"average":12.1},"energy":{"total":40.2,"average":1.3}}`,
	})
	server := httptest.NewServer(device)
	defer server.Close()

	client := newTestClient(server)
	state, err := client.AggregateState(context.Background(), false)
	if err != nil {
		t.Fatalf("AggregateState() error = %v, want nil", err)
	}

	if state.Device.DeviceName != "Kitchen" {
		t.Errorf("DeviceName = %s, want Kitchen", state.Device.DeviceName)
	}
	if state.Device.Program != "Steam" {
		t.Errorf("Program = %s, want Steam", state.Device.Program)
	}
	if state.DeviceFetchedAt.IsZero() {
		t.Error("DeviceFetchedAt should be set")
	}
	if len(state.Notifications) != 1 || state.Notifications[0].Message != "Program finished" {
		t.Errorf("Notifications = %v, want one entry", state.Notifications)
	}
	if state.Eco.Water.Total != 250.5 {
		t.Errorf("Eco.Water.Total = %v, want 250.5", state.Eco.Water.Total)
	}
	if state.ZHMode != -1 {
		t.Errorf("ZHMode = %d, want -1 placeholder", state.ZHMode)
	}
}

func TestAggregateState_ZeroEcoNormalized(t *testing.T) {
	device := newFakeDevice(map[string]string{
		"ai getDeviceStatus":          `{"DeviceName":"Kitchen"}`,
		"ai getLastPUSHNotifications": `[]`,
		"hh getEcoInfo":               `{"water":{"total":0,"average":3.5},"energy":{"total":0}}`,
	})
	server := httptest.NewServer(device)
	defer server.Close()

	client := newTestClient(server)
	state, err := client.AggregateState(context.Background(), false)
	if err != nil {
		t.Fatalf("AggregateState() error = %v, want nil", err)
	}
	if !state.Eco.IsEmpty() {
		t.Errorf("Eco = %+v, want zero totals normalized to empty", state.Eco)
	}
}

func TestAggregateState_FailureWithoutDefaults(t *testing.T) {
	device := newFakeDevice(map[string]string{
		"ai getDeviceStatus": `{"DeviceName":"Kitchen"}`,
		"hh getEcoInfo":      `{}`,
		// getLastPUSHNotifications missing: answers 404
	})
	server := httptest.NewServer(device)
	defer server.Close()

	client := newTestClient(server)
	if _, err := client.AggregateState(context.Background(), false); err == nil {
		t.Fatal("AggregateState() should fail when a member endpoint is missing")
	}
}

func TestAggregateMeta_DeviceInfoPath(t *testing.T) {
	device := newFakeDevice(map[string]string{
		"ai getMacAddress":       "f8:f0:05:aa:bb:cc",
		"ai getDeviceStatus":     `{"DeviceName":"legacy-name","Serial":"legacy-serial"}`,
		"ai getModelDescription": "legacy model",
		"ai getFWVersion":        `{"apiVersion":"1.5.0"}`,
		"hh getDeviceInfo":       `{"model":"AD6000","description":"AdoraDish V6000","name":"Kitchen","serialNumber":"11111 000000","apiVersion":"1.8.0"}`,
	})
	server := httptest.NewServer(device)
	defer server.Close()

	client := newTestClient(server)
	meta, err := client.AggregateMeta(context.Background(), false)
	if err != nil {
		t.Fatalf("AggregateMeta() error = %v, want nil", err)
	}

	if meta.MACAddress != "f8:f0:05:aa:bb:cc" {
		t.Errorf("MACAddress = %s", meta.MACAddress)
	}
	if meta.ModelID != "AD6000" || meta.ModelName != "AdoraDish V6000" {
		t.Errorf("model = %s/%s, want device info values", meta.ModelID, meta.ModelName)
	}
	if meta.DeviceName != "Kitchen" {
		t.Errorf("DeviceName = %s, want Kitchen", meta.DeviceName)
	}
	if meta.SerialNumber != "11111 000000" {
		t.Errorf("SerialNumber = %s", meta.SerialNumber)
	}
	if got := meta.APIVersion.String(); got != "1.8.0" {
		t.Errorf("APIVersion = %s, want 1.8.0", got)
	}
	if !meta.SupportsUpdateStatus() {
		t.Error("API 1.8.0 should support update status")
	}
}

func TestAggregateMeta_LegacyFallback(t *testing.T) {
	device := newFakeDevice(map[string]string{
		"ai getMacAddress":       "f8:f0:05:aa:bb:cc",
		"ai getDeviceStatus":     `{"DeviceName":"Cellar","Serial":"22222 000000"}`,
		"ai getModelDescription": "Adora SLQ WP",
		"ai getFWVersion":        `{"apiVersion":"1.5.0","SW":"123"}`,
		// no getDeviceInfo: legacy device answers 404
	})
	server := httptest.NewServer(device)
	defer server.Close()

	client := newTestClient(server)
	meta, err := client.AggregateMeta(context.Background(), false)
	if err != nil {
		t.Fatalf("AggregateMeta() error = %v, want legacy fallback", err)
	}

	if meta.ModelName != "Adora SLQ WP" {
		t.Errorf("ModelName = %s, want model description", meta.ModelName)
	}
	if meta.DeviceName != "Cellar" || meta.SerialNumber != "22222 000000" {
		t.Errorf("identity = %s/%s, want device status values", meta.DeviceName, meta.SerialNumber)
	}
	if got := meta.APIVersion.String(); got != "1.5.0" {
		t.Errorf("APIVersion = %s, want 1.5.0 from legacy firmware", got)
	}
	if meta.SupportsUpdateStatus() {
		t.Error("API 1.5.0 should not support update status")
	}
}

func TestAggregateUpdateStatus_SkipsUnsupportedEndpoint(t *testing.T) {
	device := newFakeDevice(map[string]string{
		"ai getFWVersion": `{"apiVersion":"1.5.0"}`,
		"hh getFWVersion": `{"SW":"456"}`,
	})
	server := httptest.NewServer(device)
	defer server.Close()

	client := newTestClient(server)
	status, err := client.AggregateUpdateStatus(context.Background(), false, false)
	if err != nil {
		t.Fatalf("AggregateUpdateStatus() error = %v, want nil", err)
	}

	if n := device.callCount("ai getUpdateStatus"); n != 0 {
		t.Errorf("getUpdateStatus called %d times, want 0 on unsupported device", n)
	}
	if !status.Update.Idle() {
		t.Error("absent update status should be idle")
	}
	if status.AIFirmware["apiVersion"] != "1.5.0" {
		t.Errorf("AIFirmware = %v", status.AIFirmware)
	}
	if status.HHFirmware["SW"] != "456" {
		t.Errorf("HHFirmware = %v", status.HHFirmware)
	}
}

func TestAggregateUpdateStatus_WithUpdateRunning(t *testing.T) {
	device := newFakeDevice(map[string]string{
		"ai getUpdateStatus": `{"status":"downloading","isAIUpdateAvailable":true,"components":[{"name":"AI","running":true,"progress":{"download":40,"installation":0}}]}`,
		"ai getFWVersion":    `{"apiVersion":"1.8.0"}`,
		"hh getFWVersion":    `{"SW":"456"}`,
	})
	server := httptest.NewServer(device)
	defer server.Close()

	client := newTestClient(server)
	status, err := client.AggregateUpdateStatus(context.Background(), true, false)
	if err != nil {
		t.Fatalf("AggregateUpdateStatus() error = %v, want nil", err)
	}

	if status.Update.Idle() {
		t.Error("downloading update should not be idle")
	}
	if !status.Update.AIUpdateAvailable {
		t.Error("AIUpdateAvailable should be true")
	}
	if len(status.Update.Components) != 1 || status.Update.Components[0].Progress.Download != 40 {
		t.Errorf("Components = %+v", status.Update.Components)
	}
}

func TestAggregateConfig(t *testing.T) {
	device := newFakeDevice(map[string]string{
		"hh getCategories":            `["settings","userSettings"]`,
		"hh getCategory settings":     `{"description":"Settings"}`,
		"hh getCommands settings":     `["ecomXLight"]`,
		"hh getCategory userSettings": `{"description":"User settings"}`,
		"hh getCommands userSettings": `["AutoDoor","SteamFinish"]`,
		"hh getCommand ecomXLight":    `{"type":"selection","description":"Display lighting","value":"2","alterable":true,"options":["0","1","2"]}`,
		"hh getCommand AutoDoor":      `{"type":"boolean","value":"true","alterable":true}`,
		"hh getCommand SteamFinish":   `{"type":"status","value":"off"}`,
	})
	server := httptest.NewServer(device)
	defer server.Close()

	client := newTestClient(server)
	tree, err := client.AggregateConfig(context.Background())
	if err != nil {
		t.Fatalf("AggregateConfig() error = %v, want nil", err)
	}

	if len(tree) != 2 {
		t.Fatalf("tree has %d categories, want 2", len(tree))
	}

	settings := tree["settings"]
	if settings.Description != "Settings" {
		t.Errorf("settings description = %q", settings.Description)
	}
	light, ok := settings.Commands["ecomXLight"]
	if !ok {
		t.Fatal("ecomXLight missing from settings")
	}
	if light.Value != "2" || !light.Alterable || len(light.Options) != 3 {
		t.Errorf("ecomXLight = %+v", light)
	}

	user := tree["userSettings"]
	if len(user.Commands) != 2 {
		t.Errorf("userSettings has %d commands, want 2", len(user.Commands))
	}
	if user.Commands["SteamFinish"].Alterable {
		t.Error("SteamFinish should not be alterable")
	}
}

func TestAggregateConfig_EmptyTree(t *testing.T) {
	device := newFakeDevice(map[string]string{
		"hh getCategories": `[]`,
	})
	server := httptest.NewServer(device)
	defer server.Close()

	client := newTestClient(server)
	tree, err := client.AggregateConfig(context.Background())
	if err != nil {
		t.Fatalf("AggregateConfig() error = %v, want nil for a bare appliance", err)
	}
	if len(tree) != 0 {
		t.Errorf("tree = %v, want empty", tree)
	}
}

func TestSetProgram_PayloadCarriesID(t *testing.T) {
	var gotValue string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotValue = r.URL.Query().Get("value")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := newTestClient(server)
	reply, err := client.SetProgram(context.Background(), 105, map[string]any{"duration": 30})
	if err != nil {
		t.Fatalf("SetProgram() error = %v, want nil", err)
	}
	if reply != "ok" {
		t.Errorf("reply = %q, want ok", reply)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(gotValue), &payload); err != nil {
		t.Fatalf("value param is not JSON: %v", err)
	}
	if payload["id"] != float64(105) {
		t.Errorf("payload id = %v, want 105", payload["id"])
	}
	if payload["duration"] != float64(30) {
		t.Errorf("payload duration = %v, want 30", payload["duration"])
	}
}
