package wire

import (
	"encoding/json"
	"testing"
)

func TestIDListMarshal(t *testing.T) {
	cases := []struct {
		name string
		ids  IDList
		want string
	}{
		{"single", IDList{7}, `7`},
		{"pair", IDList{7, 8}, `[7,8]`},
		{"empty", IDList{}, `[]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := json.Marshal(tc.ids)
			if err != nil {
				t.Fatalf("Marshal returned error: %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("Marshal(%v) = %s, want %s", tc.ids, got, tc.want)
			}
		})
	}
}

func TestNameListMarshal(t *testing.T) {
	single, err := json.Marshal(NameList{"TRI.N"})
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(single) != `"TRI.N"` {
		t.Errorf("single name = %s, want %q", single, "TRI.N")
	}

	batch, err := json.Marshal(NameList{"TRI.N", "IBM.N"})
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(batch) != `["TRI.N","IBM.N"]` {
		t.Errorf("batch names = %s, want [\"TRI.N\",\"IBM.N\"]", batch)
	}
}

func TestNewLoginRequest(t *testing.T) {
	req := NewLoginRequest("user1", "256", "127.0.0.1/net")

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if got["ID"] != float64(0) {
		t.Errorf("ID = %v, want 0", got["ID"])
	}
	if got["Domain"] != DomainLogin {
		t.Errorf("Domain = %v, want %s", got["Domain"], DomainLogin)
	}
	key := got["Key"].(map[string]any)
	if key["Name"] != "user1" {
		t.Errorf("Key.Name = %v, want user1", key["Name"])
	}
	elements := key["Elements"].(map[string]any)
	if elements[ElementApplicationID] != "256" {
		t.Errorf("ApplicationId = %v, want 256", elements[ElementApplicationID])
	}
	if elements[ElementPosition] != "127.0.0.1/net" {
		t.Errorf("Position = %v, want 127.0.0.1/net", elements[ElementPosition])
	}
}

func TestItemRequestSingle(t *testing.T) {
	req := ItemRequest{
		ID:     IDList{3},
		Domain: DomainMarketPrice,
		Key:    RequestKey{Name: NameList{"TRI.N"}, Service: "ELEKTRON_DD"},
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	want := `{"ID":3,"Domain":"MarketPrice","Key":{"Name":"TRI.N","Service":"ELEKTRON_DD"}}`
	if string(data) != want {
		t.Errorf("request = %s\nwant      %s", data, want)
	}
}

func TestItemRequestBatchSnapshot(t *testing.T) {
	streaming := false
	req := ItemRequest{
		ID:        IDList{10, 11},
		Key:       RequestKey{Name: NameList{"AAA.N", "BBB.N"}},
		Streaming: &streaming,
		View:      []string{"BID", "ASK"},
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	ids := got["ID"].([]any)
	if len(ids) != 2 || ids[0] != float64(10) || ids[1] != float64(11) {
		t.Errorf("ID = %v, want [10 11]", got["ID"])
	}
	if got["Streaming"] != false {
		t.Errorf("Streaming = %v, want false", got["Streaming"])
	}
	view := got["View"].([]any)
	if len(view) != 2 || view[0] != "BID" {
		t.Errorf("View = %v, want [BID ASK]", got["View"])
	}
	if _, present := got["Domain"]; present {
		t.Error("empty Domain was encoded, want omitted")
	}
}

// Streaming must stay off the wire unless explicitly set, because the feed
// treats an absent flag as streaming on.
func TestItemRequestStreamingOmitted(t *testing.T) {
	req := ItemRequest{ID: IDList{1}, Key: RequestKey{Name: NameList{"TRI.N"}}}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if _, present := got["Streaming"]; present {
		t.Error("Streaming was encoded, want omitted")
	}
}

func TestNewCloseRequest(t *testing.T) {
	one, err := json.Marshal(NewCloseRequest(4))
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(one) != `{"ID":4,"Type":"Close"}` {
		t.Errorf("single close = %s", one)
	}

	many, err := json.Marshal(NewCloseRequest(4, 5, 9))
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(many) != `{"ID":[4,5,9],"Type":"Close"}` {
		t.Errorf("multi close = %s", many)
	}
}

func TestNewPong(t *testing.T) {
	data, err := json.Marshal(NewPong())
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(data) != `{"Type":"Pong"}` {
		t.Errorf("pong = %s, want {\"Type\":\"Pong\"}", data)
	}
}
