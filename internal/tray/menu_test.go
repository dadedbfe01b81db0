package tray

import (
	"bytes"
	"image/png"
	"testing"
)

func TestMenuLabels(t *testing.T) {
	m := NewMenu(LabelShow)

	tests := []struct {
		id    string
		label string
		ok    bool
	}{
		{ItemToggle, LabelShow, true},
		{ItemIcon, "Change icon", true},
		{ItemExit, "Quit", true},
		{"missing", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, ok := m.Label(tt.id)
			if got != tt.label || ok != tt.ok {
				t.Errorf("Label(%q) = %q, %v; want %q, %v", tt.id, got, ok, tt.label, tt.ok)
			}
		})
	}
}

func TestMenuSetLabel(t *testing.T) {
	m := NewMenu(LabelShow)
	if !m.SetLabel(ItemToggle, LabelHide) {
		t.Fatal("SetLabel(toggle) = false")
	}
	if m.SetLabel("missing", "x") {
		t.Error("SetLabel(missing) = true")
	}

	items := m.Items()
	items[0].Label = "mutated"
	if got, _ := m.Label(ItemToggle); got != LabelHide {
		t.Errorf("toggle label = %q, want %q", got, LabelHide)
	}
}

func TestIconsDecode(t *testing.T) {
	for name, data := range map[string][]byte{"primary": iconPrimary, "alternate": iconAlternate} {
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if b := img.Bounds(); b.Dx() != iconSize || b.Dy() != iconSize {
			t.Errorf("%s bounds = %v", name, b)
		}
	}
	if bytes.Equal(iconPrimary, iconAlternate) {
		t.Error("icons are identical")
	}
}
