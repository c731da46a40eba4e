package transport

import (
	"encoding/json"
	"testing"

	"github.com/evanreis/predictex/internal/dispatch"
	"github.com/evanreis/predictex/internal/domain"
)

func TestParseCommand(t *testing.T) {
	raw := []byte(`{"clientId":"c-1","message":{"type":"BUY_ORDER","data":{"userId":"u1","stockSymbol":"RAIN","quantity":5,"price":4,"stockType":"yes"}}}`)

	env, err := ParseCommand(raw)
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if env.ClientID != "c-1" {
		t.Errorf("clientId = %q", env.ClientID)
	}
	if env.Message.Type != dispatch.CmdBuyOrder {
		t.Errorf("type = %q", env.Message.Type)
	}
	d := env.Message.Data
	if d.UserID != "u1" || d.StockSymbol != "RAIN" || d.Quantity != 5 || d.Price != 4 || d.StockType != "yes" {
		t.Errorf("data = %+v", d)
	}
}

func TestParseCommand_GeneratesMissingClientID(t *testing.T) {
	env, err := ParseCommand([]byte(`{"message":{"type":"VIEW_ORDERBOOK"}}`))
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if env.ClientID == "" {
		t.Error("missing clientId should be generated")
	}
}

func TestParseCommand_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "nope"},
		{name: "no message type", raw: `{"clientId":"c-1","message":{"data":{}}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseCommand([]byte(tc.raw)); err == nil {
				t.Fatal("want error")
			}
		})
	}
}

func TestEncodeReply(t *testing.T) {
	resp := dispatch.Response{
		StatusType:    dispatch.StatusSuccess,
		StatusMessage: "user_created",
		StatusCode:    201,
	}

	key, value, err := EncodeReply("c-7", resp)
	if err != nil {
		t.Fatalf("EncodeReply: %v", err)
	}
	if string(key) != "c-7" {
		t.Errorf("key = %q, want client id", key)
	}

	var reply Reply
	if err := json.Unmarshal(value, &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Type != string(dispatch.StatusSuccess) {
		t.Errorf("reply type = %q", reply.Type)
	}
	var inner dispatch.Response
	if err := json.Unmarshal(reply.Payload.Message, &inner); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if inner.StatusMessage != "user_created" || inner.StatusCode != 201 {
		t.Errorf("inner response = %+v", inner)
	}
}

func TestEncodeEvent(t *testing.T) {
	book := domain.BookView{
		No: []domain.LevelView{
			{Price: 6, Total: 10, Orders: []domain.OrderView{
				{UserID: "u1", Type: domain.KindSystemGenerated, Quantity: 10},
			}},
		},
	}

	key, value, err := EncodeEvent("RAIN", book)
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}
	if string(key) != "RAIN" {
		t.Errorf("key = %q, want symbol", key)
	}

	var env EventEnvelope
	if err := json.Unmarshal(value, &env); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	var decoded domain.BookView
	if err := json.Unmarshal(env.Message, &decoded); err != nil {
		t.Fatalf("decode book: %v", err)
	}
	if len(decoded.No) != 1 || decoded.No[0].Orders[0].UserID != "u1" {
		t.Errorf("decoded book = %+v", decoded)
	}
}
