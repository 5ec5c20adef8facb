package types

import "testing"

func TestDecodeTyped(t *testing.T) {
	var got EraseRequest
	if err := Decode(EraseRequest{Address: 0x08008000}, &got); err != nil || got.Address != 0x08008000 {
		t.Fatalf("value: got %+v err %v", got, err)
	}
	got = EraseRequest{}
	if err := Decode(&EraseRequest{Address: 4}, &got); err != nil || got.Address != 4 {
		t.Fatalf("pointer: got %+v err %v", got, err)
	}
}

func TestDecodeJSONTree(t *testing.T) {
	// Shape produced by the config service for {"auto_launch":true,"launch_delay_ms":250}.
	src := map[string]any{"auto_launch": true, "launch_delay_ms": float64(250)}
	var c BootConfig
	if err := Decode(src, &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !c.AutoLaunch || c.LaunchDelayMS != 250 {
		t.Fatalf("got %+v", c)
	}
}

func TestDecodeText(t *testing.T) {
	var w WriteRequest
	if err := Decode(`{"address":134250496,"words":[1,2]}`, &w); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Address != 0x08008000 || len(w.Words) != 2 || w.Words[1] != 2 {
		t.Fatalf("got %+v", w)
	}
	if err := Decode([]byte(`{"address":`), &w); err == nil {
		t.Fatal("expected syntax error")
	}
}
