package intent

import "testing"

func TestClassifySetReminder(t *testing.T) {
	got := Classify("remind me to call mom at 2pm")
	if got.Name != SetReminder {
		t.Fatalf("Name = %q, want %q", got.Name, SetReminder)
	}
	if got.Slots[SlotTask] != "call mom" {
		t.Errorf("task = %q, want %q", got.Slots[SlotTask], "call mom")
	}
	if got.Slots[SlotTime] != "2pm" {
		t.Errorf("time = %q, want %q", got.Slots[SlotTime], "2pm")
	}
}

func TestClassifySetReminderWithoutTime(t *testing.T) {
	got := Classify("remind me to call mom")
	if got.Name != SetReminder {
		t.Fatalf("Name = %q, want %q", got.Name, SetReminder)
	}
	if got.Slots[SlotTask] != "call mom" {
		t.Errorf("task = %q, want %q", got.Slots[SlotTask], "call mom")
	}
	if got.Slots[SlotTime] != "" {
		t.Errorf("time = %q, want empty", got.Slots[SlotTime])
	}
}

func TestClassifyCancelReminder(t *testing.T) {
	got := Classify("cancel reminder for call mom at 2:00 PM")
	if got.Name != CancelReminder {
		t.Fatalf("Name = %q, want %q", got.Name, CancelReminder)
	}
	if got.Slots[SlotTask] != "call mom" {
		t.Errorf("task = %q, want %q", got.Slots[SlotTask], "call mom")
	}
	if got.Slots[SlotTime] != "2:00 PM" {
		t.Errorf("time = %q, want %q", got.Slots[SlotTime], "2:00 PM")
	}
}

func TestClassifyCancelWithoutTask(t *testing.T) {
	got := Classify("delete reminder")
	if got.Name != CancelReminder {
		t.Fatalf("Name = %q, want %q", got.Name, CancelReminder)
	}
	if got.Slots[SlotTask] != "" {
		t.Errorf("task = %q, want empty", got.Slots[SlotTask])
	}
}

func TestClassifyCheckIn(t *testing.T) {
	if got := Classify("can we do a quick check-in?"); got.Name != CheckIn {
		t.Errorf("Name = %q, want %q", got.Name, CheckIn)
	}
}

func TestClassifyNoMatch(t *testing.T) {
	got := Classify("the weather is nice today")
	if got.Name != "" {
		t.Errorf("Name = %q, want empty", got.Name)
	}
}

func TestExtractSlots(t *testing.T) {
	tests := []struct {
		in       string
		wantTask string
		wantTime string
	}{
		{"at 5pm", "", "5pm"},
		{"5pm", "", "5pm"},
		{"call mom", "call mom", ""},
		{"call mom at 2:30 pm", "call mom", "2:30 pm"},
		{"remind me to water the plants at 9am", "water the plants", "9am"},
		{".", "", ""},
	}
	for _, tt := range tests {
		got := ExtractSlots(tt.in)
		if got[SlotTask] != tt.wantTask || got[SlotTime] != tt.wantTime {
			t.Errorf("ExtractSlots(%q) = task %q time %q, want task %q time %q",
				tt.in, got[SlotTask], got[SlotTime], tt.wantTask, tt.wantTime)
		}
	}
}
