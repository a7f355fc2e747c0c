// Copyright 2025 The vmbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transcript

import "testing"

func assign(ks *KeySet, seq int, label string) string {
	return ks.Assign(&Row{Seq: seq, Label: label})
}

func TestKeySetPlainLabels(t *testing.T) {
	ks := NewKeySet(DefaultMarkers)
	if got := assign(ks, 1, "Sequential Read"); got != "Sequential Read" {
		t.Errorf("got %q, want %q", got, "Sequential Read")
	}
	if got := assign(ks, 2, "Sequential Write"); got != "Sequential Write" {
		t.Errorf("got %q, want %q", got, "Sequential Write")
	}
}

func TestKeySetExplicitDirection(t *testing.T) {
	ks := NewKeySet(DefaultMarkers)
	got1 := assign(ks, 5, "Mixed RW (Read)")
	got2 := assign(ks, 5, "Mixed RW (Write)")
	if got1 != "Mixed RW (Read)" || got2 != "Mixed RW (Write)" {
		t.Errorf("got %q, %q", got1, got2)
	}
}

func TestKeySetRussianDirection(t *testing.T) {
	ks := NewKeySet(DefaultMarkers)
	got1 := assign(ks, 5, "Mixed RW Чтение")
	got2 := assign(ks, 5, "Mixed RW Запись")
	if got1 != "Mixed RW (Read)" {
		t.Errorf("got %q, want %q", got1, "Mixed RW (Read)")
	}
	if got2 != "Mixed RW (Write)" {
		t.Errorf("got %q, want %q", got2, "Mixed RW (Write)")
	}
}

func TestKeySetRowOrderFallback(t *testing.T) {
	// No direction marker in the label: first row under the
	// sequence number is the read side, second the write side.
	ks := NewKeySet(DefaultMarkers)
	got1 := assign(ks, 5, "Mixed RW")
	got2 := assign(ks, 5, "Mixed RW")
	if got1 != "Mixed RW (Read)" {
		t.Errorf("first row: got %q, want %q", got1, "Mixed RW (Read)")
	}
	if got2 != "Mixed RW (Write)" {
		t.Errorf("second row: got %q, want %q", got2, "Mixed RW (Write)")
	}
}

func TestKeySetContinuationWithoutPrimary(t *testing.T) {
	// When the numbered row of a mixed pair was dropped before key
	// assignment, the surviving continuation row is still the write
	// side: the row structure decides, not the presentation order.
	ks := NewKeySet(DefaultMarkers)
	got := ks.Assign(&Row{Seq: 5, Label: "Mixed RW", Continuation: true})
	if got != "Mixed RW (Write)" {
		t.Errorf("lone continuation row: got %q, want %q", got, "Mixed RW (Write)")
	}
}

func TestKeySetContinuationPair(t *testing.T) {
	ks := NewKeySet(DefaultMarkers)
	got1 := ks.Assign(&Row{Seq: 5, Label: "Mixed RW"})
	got2 := ks.Assign(&Row{Seq: 5, Label: "Mixed RW", Continuation: true})
	if got1 != "Mixed RW (Read)" || got2 != "Mixed RW (Write)" {
		t.Errorf("got %q, %q", got1, got2)
	}
}

func TestKeySetInjectivePerTranscript(t *testing.T) {
	ks := NewKeySet(DefaultMarkers)
	rows := []struct {
		seq   int
		label string
	}{
		{1, "Sequential Read"},
		{2, "Sequential Write"},
		{3, "Random Read"},
		{4, "Random Write"},
		{5, "Mixed RW"},
		{5, "Mixed RW"},
	}
	seen := make(map[string]bool)
	for _, r := range rows {
		key := assign(ks, r.seq, r.label)
		if seen[key] {
			t.Errorf("key %q assigned twice", key)
		}
		seen[key] = true
	}
}

func TestMarkersWriteClassified(t *testing.T) {
	m := DefaultMarkers
	for label, want := range map[string]bool{
		"Sequential Write":  true,
		"Mixed RW (Write)":  true,
		"Запись случайная":  true,
		"Sequential Read":   false,
		"Mixed RW (Read)":   false,
		"Random Read":       false,
		"Something Unknown": false,
	} {
		if got := m.WriteClassified(label); got != want {
			t.Errorf("WriteClassified(%q) = %v, want %v", label, got, want)
		}
	}
}
