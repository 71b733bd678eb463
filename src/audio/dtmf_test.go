package audio

import (
	"strings"
	"testing"
)

func totalBytes(packets [][]byte) int {
	n := 0
	for _, p := range packets {
		n += len(p)
	}
	return n
}

func TestDialStringValidation(t *testing.T) {
	valid := []string{"0", "123456789", "*", "#", "w", "1w2", "*67w#"}
	for _, s := range valid {
		if !IsValidDialString(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}

	invalid := []string{"", "a", "1a2", "1 2", "+1555", "W", "1-2"}
	for _, s := range invalid {
		if IsValidDialString(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestSynthesizeIgnoresInvalidCharacters(t *testing.T) {
	syn := NewToneSynthesizer()

	got := syn.Synthesize("1x2")
	want := syn.Synthesize("12")
	if len(got) != len(want) {
		t.Fatalf("expected %d packets, got %d", len(want), len(got))
	}
	for i := range want {
		if string(got[i]) != string(want[i]) {
			t.Fatalf("packet %d differs between \"1x2\" and \"12\"", i)
		}
	}

	for _, s := range []string{"", "abc", "+ -"} {
		if packets := syn.Synthesize(s); len(packets) != 0 {
			t.Errorf("%q: expected no packets, got %d", s, len(packets))
		}
	}
}

func TestSynthesizeSingleDigitDuration(t *testing.T) {
	syn := NewToneSynthesizer()
	packets := syn.Synthesize("5")

	// 200 ms tone at 8 kHz: 1600 bytes, 10 full packets, no gap.
	if got := totalBytes(packets); got != 1600 {
		t.Fatalf("expected 1600 bytes, got %d", got)
	}
	if len(packets) != 10 {
		t.Fatalf("expected 10 packets, got %d", len(packets))
	}
	for i, p := range packets {
		if len(p) != PacketSize {
			t.Errorf("packet %d: expected %d bytes, got %d", i, PacketSize, len(p))
		}
	}
}

func TestSynthesizeGapBetweenDigitsOnly(t *testing.T) {
	syn := NewToneSynthesizer()
	packets := syn.Synthesize("55")

	// tone + gap + tone: 1600 + 1200 + 1600 bytes.
	if got := totalBytes(packets); got != 4400 {
		t.Fatalf("expected 4400 bytes, got %d", got)
	}
}

func TestSynthesizePauseCharacter(t *testing.T) {
	syn := NewToneSynthesizer()
	packets := syn.Synthesize("w")

	// 500 ms of silence: 4000 bytes, all the quiet code.
	if got := totalBytes(packets); got != 4000 {
		t.Fatalf("expected 4000 bytes, got %d", got)
	}
	quiet := EncodeMulaw(0)
	for _, p := range packets {
		for _, b := range p {
			if b != quiet {
				t.Fatal("pause contains non-silence bytes")
			}
		}
	}
}

func TestSynthesizeToneIsAudible(t *testing.T) {
	syn := NewToneSynthesizer()
	packets := syn.Synthesize("8")

	d := NewEnergyDetector(0)
	for i, p := range packets {
		if !d.IsSpeech(p) {
			t.Errorf("tone packet %d below speech energy", i)
		}
	}
}

func TestSynthesizeAllDigits(t *testing.T) {
	syn := NewToneSynthesizer()
	for _, digit := range strings.Split("0123456789*#", "") {
		if packets := syn.Synthesize(digit); totalBytes(packets) != 1600 {
			t.Errorf("digit %q: expected 1600 bytes, got %d", digit, totalBytes(packets))
		}
	}
}
