package model

import (
	"encoding/json"
	"testing"
)

func TestActionRecord_TapShape(t *testing.T) {
	rec := ActionRecord{
		Action:    ActionTap,
		Position:  Point{185, 104},
		Intent:    "tap search",
		Success:   true,
		Timestamp: 1700000000.5,
	}
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"action":"tap","position":[185,104],"bbox":null,"intent":"tap search","success":true,"timestamp":1700000000.5}`
	if string(b) != want {
		t.Errorf("got  %s\nwant %s", b, want)
	}
}

func TestActionRecord_SwipeShape(t *testing.T) {
	box := [4]int{0, 0, 1000, 1000}
	rec := ActionRecord{
		Action:    ActionSwipe,
		Start:     Point{500, 900},
		End:       Point{500, 100},
		Duration:  300,
		Direction: LabelDirection("up"),
		Distance:  800,
		Speed:     SpeedFast,
		BBox:      &box,
		Intent:    "scroll feed",
	}
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"action":"swipe","start":[500,900],"end":[500,100],"duration":300,"direction":"up","distance":800,"speed":"fast","bbox":[0,0,1000,1000],"intent":"scroll feed","success":false,"timestamp":0}`
	if string(b) != want {
		t.Errorf("got  %s\nwant %s", b, want)
	}
}

func TestActionRecord_DragAngleRoundTrip(t *testing.T) {
	rec := ActionRecord{
		Action:    ActionDrag,
		Start:     Point{0, 0},
		End:       Point{0, 100},
		Duration:  500,
		Direction: AngleDirection(1.5708),
		Distance:  100,
		Speed:     SpeedSlow,
	}
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	var got ActionRecord
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if !got.Direction.IsAngle || got.Direction.Angle != 1.5708 {
		t.Errorf("direction = %+v, want angle 1.5708", got.Direction)
	}
	if got.End != (Point{0, 100}) || got.Action != ActionDrag {
		t.Errorf("decoded %+v", got)
	}
}

func TestActionRecord_UnknownAction(t *testing.T) {
	var rec ActionRecord
	if err := json.Unmarshal([]byte(`{"action":"pinch"}`), &rec); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestParseActionKind(t *testing.T) {
	for _, s := range []string{"tap", "SWIPE", "drag"} {
		if _, err := ParseActionKind(s); err != nil {
			t.Errorf("ParseActionKind(%q): %v", s, err)
		}
	}
	if _, err := ParseActionKind("pinch"); err == nil {
		t.Error("expected error for pinch")
	}
}
