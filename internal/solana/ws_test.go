package solana

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestWSRequestEncoding(t *testing.T) {
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      7,
		Method:  "logsSubscribe",
		Params: []any{
			map[string]any{"mentions": []string{"prog1"}},
			map[string]string{"commitment": "confirmed"},
		},
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, want := range []string{`"jsonrpc":"2.0"`, `"id":7`, `"method":"logsSubscribe"`, `"mentions":["prog1"]`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Request JSON missing %s: %s", want, data)
		}
	}
}

func TestWSSubscribeResponseDecoding(t *testing.T) {
	var resp wsSubscribeResponse
	if err := json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":3,"result":421}`), &resp); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if resp.ID != 3 || resp.Result != 421 {
		t.Errorf("Got id=%d result=%d, want 3/421", resp.ID, resp.Result)
	}
}

func TestWSNotificationDecoding(t *testing.T) {
	payload := `{
		"jsonrpc": "2.0",
		"method": "logsNotification",
		"params": {
			"subscription": 421,
			"result": {
				"context": {"slot": 123456},
				"value": {
					"signature": "5vJx",
					"logs": ["Program log: test"],
					"err": null
				}
			}
		}
	}`

	var notif wsNotification
	if err := json.Unmarshal([]byte(payload), &notif); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if notif.Method != "logsNotification" {
		t.Errorf("Method = %q", notif.Method)
	}
	if notif.Params == nil || notif.Params.Subscription != 421 {
		t.Fatalf("Unexpected params: %+v", notif.Params)
	}
	if notif.Params.Result.Context == nil || notif.Params.Result.Context.Slot != 123456 {
		t.Errorf("Slot not decoded: %+v", notif.Params.Result.Context)
	}
	value := notif.Params.Result.Value
	if value.Signature != "5vJx" || len(value.Logs) != 1 || value.Err != nil {
		t.Errorf("Unexpected value: %+v", value)
	}

	failed := `{"jsonrpc":"2.0","method":"logsNotification","params":{"subscription":1,"result":{"value":{"signature":"x","err":{"InstructionError":[0,"Custom"]}}}}}`
	if err := json.Unmarshal([]byte(failed), &notif); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if notif.Params.Result.Value.Err == nil {
		t.Error("Expected non-nil transaction error")
	}
}
