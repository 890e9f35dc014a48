package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestVerifySignature(t *testing.T) {
	secret := []byte("test-secret")
	payload := []byte(`{"action":"opened","number":123}`)

	tests := []struct {
		name      string
		signature string
		want      bool
	}{
		{
			name:      "known good digest",
			signature: "sha256=2c4854fbccd6d98cff684aedfef5f0edee3d89d30c1bae27c7e111bc1e82c282",
			want:      true,
		},
		{
			name:      "wrong digest",
			signature: "sha256=0000000000000000000000000000000000000000000000000000000000000000",
		},
		{
			name:      "missing header",
			signature: "",
		},
		{
			name:      "sha1 prefix",
			signature: "sha1=2c4854fbccd6d98cff684aedfef5f0edee3d89d30c1bae27",
		},
		{
			name:      "no equals sign",
			signature: "sha2562c4854fbccd6d98cff684aedfef5f0edee3d89d30c1bae27c7e111bc1e82c282",
		},
		{
			name:      "uppercase prefix",
			signature: "SHA256=2c4854fbccd6d98cff684aedfef5f0edee3d89d30c1bae27c7e111bc1e82c282",
		},
		{
			name:      "truncated digest",
			signature: "sha256=2c4854fbccd6d98cff684aedfef5f0ed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifySignature(payload, tt.signature, secret))
		})
	}
}

func TestSignRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.SliceOf(rapid.Byte()).Draw(t, "payload")
		secret := rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "secret")

		if !VerifySignature(payload, Sign(payload, secret), secret) {
			t.Fatalf("signature for %d byte payload did not verify", len(payload))
		}
	})
}

func TestVerifySignatureRejectsPayloadBitFlip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.SliceOfN(rapid.Byte(), 1, 512).Draw(t, "payload")
		secret := rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "secret")
		index := rapid.IntRange(0, len(payload)-1).Draw(t, "index")
		bit := rapid.IntRange(0, 7).Draw(t, "bit")

		signature := Sign(payload, secret)

		mutated := append([]byte(nil), payload...)
		mutated[index] ^= 1 << bit

		if VerifySignature(mutated, signature, secret) {
			t.Fatalf("mutated payload verified (byte %d bit %d)", index, bit)
		}
	})
}

func TestVerifySignatureRejectsDigestMutation(t *testing.T) {
	const hexDigits = "0123456789abcdef"

	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.SliceOf(rapid.Byte()).Draw(t, "payload")
		secret := rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "secret")

		signature := []byte(Sign(payload, secret))
		index := rapid.IntRange(len(SignaturePrefix), len(signature)-1).Draw(t, "index")
		shift := rapid.IntRange(1, 15).Draw(t, "shift")

		current := -1
		for i := 0; i < len(hexDigits); i++ {
			if hexDigits[i] == signature[index] {
				current = i
			}
		}
		signature[index] = hexDigits[(current+shift)%len(hexDigits)]

		if VerifySignature(payload, string(signature), secret) {
			t.Fatalf("mutated digest %s verified", signature)
		}
	})
}
