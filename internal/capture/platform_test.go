package capture

import (
	"image"
	"testing"
)

func TestFindMonitor(t *testing.T) {
	tests := []struct {
		selector string
		want     string
		wantErr  bool
	}{
		{selector: "", want: "HDMI-1"},
		{selector: "primary", want: "DP-2"},
		{selector: "#1", want: "DP-2"},
		{selector: "0", want: "HDMI-1"},
		{selector: "dp", want: "DP-2"},
		{selector: "5", wantErr: true},
		{selector: "VGA", wantErr: true},
	}
	for _, tc := range tests {
		got, err := FindMonitor(testMonitors, tc.selector)
		if tc.wantErr {
			if err == nil {
				t.Errorf("FindMonitor(%q) expected error", tc.selector)
			}
			continue
		}
		if err != nil || got.Name != tc.want {
			t.Errorf("FindMonitor(%q) = %q, %v; want %q", tc.selector, got.Name, err, tc.want)
		}
	}
	if _, err := FindMonitor(nil, ""); err != errNoMonitors {
		t.Errorf("expected errNoMonitors, got %v", err)
	}
}

func TestSelectWindow(t *testing.T) {
	windows := []WindowInfo{
		{Index: 0, ID: 0x10, Title: "Terminal", Class: "XTerm", Instance: "xterm", PID: 100, Executable: "xterm"},
		{Index: 1, ID: 0x20, Title: "Meeting - Browser", Class: "Firefox", PID: 200, Executable: "firefox", Active: true},
		{Index: 2, ID: 0x30, Title: "Notes", Class: "Gedit", PID: 300, Executable: "gedit", Rect: image.Rect(0, 0, 5, 5)},
	}
	tests := []struct {
		selector string
		want     uint32
		wantErr  bool
	}{
		{selector: "", want: 0x20},
		{selector: "active", want: 0x20},
		{selector: "index:2", want: 0x30},
		{selector: "2", want: 0x30},
		{selector: "id:0x10", want: 0x10},
		{selector: "id:48", want: 0x30},
		{selector: "0x20", want: 0x20},
		{selector: "pid:300", want: 0x30},
		{selector: "exec:fire", want: 0x20},
		{selector: "class:XTERM", want: 0x10},
		{selector: "title:meeting", want: 0x20},
		{selector: "name:notes", want: 0x30},
		{selector: "gedit", want: 0x30},
		{selector: "index:9", wantErr: true},
		{selector: "pid:abc", wantErr: true},
		{selector: "title:nothing", wantErr: true},
		{selector: "0x99", wantErr: true},
		{selector: "unmatched", wantErr: true},
	}
	for _, tc := range tests {
		got, err := SelectWindow(tc.selector, windows)
		if tc.wantErr {
			if err == nil {
				t.Errorf("SelectWindow(%q) expected error, got 0x%x", tc.selector, got.ID)
			}
			continue
		}
		if err != nil || got.ID != tc.want {
			t.Errorf("SelectWindow(%q) = 0x%x, %v; want 0x%x", tc.selector, got.ID, err, tc.want)
		}
	}
}

func TestSelectWindowWithoutActive(t *testing.T) {
	windows := []WindowInfo{{ID: 1}, {ID: 2}}
	if got, err := SelectWindow("", windows); err != nil || got.ID != 2 {
		t.Fatalf("expected last window, got %v %v", got.ID, err)
	}
	if _, err := SelectWindow("active", windows); err == nil {
		t.Fatalf("expected error without active window")
	}
	if _, err := SelectWindow("x", nil); err != errNoWindows {
		t.Fatalf("expected errNoWindows, got %v", err)
	}
}
