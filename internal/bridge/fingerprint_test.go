package bridge_test

import (
	"testing"

	"sdcli/internal/bridge"
)

func TestFingerprint(t *testing.T) {
	t.Run("is deterministic", func(t *testing.T) {
		a := bridge.Fingerprint("my-bucket")
		b := bridge.Fingerprint("my-bucket")
		if a != b {
			t.Errorf("Fingerprint() not deterministic: %q != %q", a, b)
		}
	})

	t.Run("distinct buckets get distinct fingerprints", func(t *testing.T) {
		a := bridge.Fingerprint("bucket-a")
		b := bridge.Fingerprint("bucket-b")
		if a == b {
			t.Errorf("Fingerprint() collided for distinct buckets: %q", a)
		}
	})

	t.Run("normalizes case and whitespace", func(t *testing.T) {
		base := bridge.Fingerprint("my-bucket")
		for _, variant := range []string{"MY-BUCKET", "  my-bucket  ", "My-Bucket\n"} {
			if got := bridge.Fingerprint(variant); got != base {
				t.Errorf("Fingerprint(%q) = %q, want %q", variant, got, base)
			}
		}
	})

	t.Run("output is well-formed", func(t *testing.T) {
		fp := bridge.Fingerprint("my-bucket")
		if len(fp) != 32 {
			t.Errorf("Fingerprint() length = %d, want 32", len(fp))
		}
		if !bridge.IsFingerprint(fp) {
			t.Errorf("IsFingerprint(%q) = false, want true", fp)
		}
	})
}

func TestIsFingerprint(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{bridge.Fingerprint("any-bucket"), true},
		{"0123456789abcdef0123456789abcdef", true},
		{"", false},
		{"my-bucket", false},
		{"0123456789ABCDEF0123456789ABCDEF", false},
		{"0123456789abcdef0123456789abcde", false},
		{"0123456789abcdef0123456789abcdef0", false},
		{"0123456789abcdeg0123456789abcdef", false},
	}
	for _, c := range cases {
		if got := bridge.IsFingerprint(c.input); got != c.want {
			t.Errorf("IsFingerprint(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestNormalizeBucket(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"My-Bucket", "my-bucket"},
		{"  bucket  ", "bucket"},
		{"bucket", "bucket"},
		{"   ", ""},
	}
	for _, c := range cases {
		if got := bridge.NormalizeBucket(c.input); got != c.want {
			t.Errorf("NormalizeBucket(%q) = %q, want %q", c.input, got, c.want)
		}
	}
}
