package protocol

import (
	"errors"
	"testing"

	"github.com/teslashibe/go-companion/pkg/affect"
	"github.com/teslashibe/go-companion/pkg/haptics"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    any
		wantErr bool
	}{
		{
			name:    "vision message",
			msgType: TypeVision,
			data:    VisionData{Valence: 0.5, Arousal: -0.2, Attention: 0.9},
		},
		{
			name:    "speaking message",
			msgType: TypeSpeaking,
			data:    SpeakingData{Speaking: true, Level: 0.7},
		},
		{
			name:    "nil data",
			msgType: TypeInteraction,
			data:    nil,
		},
		{
			name:    "unmarshalable data",
			msgType: TypeVoice,
			data:    make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestParseMessageFromClient(t *testing.T) {
	raw := []byte(`{"type":"vision","ts":1700000000000,"data":{"valence":0.4,"arousal":0.8,"attention":0.6,"confidence":0.9}}`)

	msg, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if msg.Type != TypeVision {
		t.Errorf("Type = %v, want %v", msg.Type, TypeVision)
	}

	v, err := msg.GetVisionData()
	if err != nil {
		t.Fatalf("GetVisionData() error = %v", err)
	}
	if v.Valence != 0.4 || v.Arousal != 0.8 || v.Attention != 0.6 || v.Confidence != 0.9 {
		t.Errorf("VisionData = %+v", v)
	}
}

func TestParseMessageRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "{", `{"data":{}}`, `[1,2]`} {
		if _, err := ParseMessage([]byte(raw)); err == nil {
			t.Errorf("ParseMessage(%q) should fail", raw)
		}
	}
}

func TestParamsMessage(t *testing.T) {
	p := affect.Params{EyeOpen: 0.8, MouthSmile: -0.2, ColorHue: 220}

	msg, err := NewParamsMessage(7, p, affect.TagSad, false, true)
	if err != nil {
		t.Fatalf("NewParamsMessage() error = %v", err)
	}
	raw, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}

	data, err := parsed.GetParamsData()
	if err != nil {
		t.Fatalf("GetParamsData() error = %v", err)
	}
	if data.Seq != 7 {
		t.Errorf("Seq = %v, want 7", data.Seq)
	}
	if data.Tag != affect.TagSad {
		t.Errorf("Tag = %v, want SAD", data.Tag)
	}
	if data.Params != p {
		t.Errorf("Params = %+v, want %+v", data.Params, p)
	}
	if !data.Blinking {
		t.Error("Blinking should be true")
	}
}

func TestHapticAndErrorMessages(t *testing.T) {
	msg, err := NewHapticMessage(haptics.Event{Kind: haptics.KindSuccess, Intensity: 0.6})
	if err != nil {
		t.Fatalf("NewHapticMessage() error = %v", err)
	}
	var ev haptics.Event
	if err := msg.ParseData(&ev); err != nil {
		t.Fatalf("ParseData() error = %v", err)
	}
	if ev.Kind != haptics.KindSuccess {
		t.Errorf("Kind = %v, want success", ev.Kind)
	}

	msg, err = NewErrorMessage(TypeTag, errors.New("bad tag"))
	if err != nil {
		t.Fatalf("NewErrorMessage() error = %v", err)
	}
	var e ErrorData
	if err := msg.ParseData(&e); err != nil {
		t.Fatalf("ParseData() error = %v", err)
	}
	if e.Type != TypeTag || e.Message != "bad tag" {
		t.Errorf("ErrorData = %+v", e)
	}
}

func TestPingPongMessage(t *testing.T) {
	pingMsg, err := NewPingMessage("test-123")
	if err != nil {
		t.Fatalf("NewPingMessage() error = %v", err)
	}

	pingData, err := pingMsg.GetPingData()
	if err != nil {
		t.Fatalf("GetPingData() error = %v", err)
	}
	if pingData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pingData.ID)
	}

	pongMsg, err := NewPongMessage(*pingData)
	if err != nil {
		t.Fatalf("NewPongMessage() error = %v", err)
	}
	if pongMsg.Type != TypePong {
		t.Errorf("Type = %v, want %v", pongMsg.Type, TypePong)
	}

	pongData, err := pongMsg.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData() error = %v", err)
	}
	if pongData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pongData.ID)
	}
	if pongData.LatencyMs < 0 {
		t.Errorf("LatencyMs = %v, should be >= 0", pongData.LatencyMs)
	}
}
