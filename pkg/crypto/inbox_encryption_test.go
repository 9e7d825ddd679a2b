package crypto

import (
	"strings"
	"testing"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	enc, err := NewEncryptor([]byte("test-key-32-bytes-long-exactly!!"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		plaintext string
	}{
		{"empty", ""},
		{"short token", "ya29.a0AfH6SMB"},
		{"refresh token", "1//0gFakeRefreshTokenWithLongBody-abcdef123456"},
		{"unicode", "토큰-with-unicode-✓"},
		{"long", strings.Repeat("x", 4096)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := enc.Encrypt(tt.plaintext)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}

			if tt.plaintext != "" && ciphertext == tt.plaintext {
				t.Error("ciphertext equals plaintext")
			}

			got, err := enc.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if got != tt.plaintext {
				t.Errorf("round trip = %q, want %q", got, tt.plaintext)
			}
		})
	}
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	enc, err := NewEncryptor([]byte("some-short-key"))
	if err != nil {
		t.Fatal(err)
	}

	a, err := enc.Encrypt("same-plaintext")
	if err != nil {
		t.Fatal(err)
	}
	b, err := enc.Encrypt("same-plaintext")
	if err != nil {
		t.Fatal(err)
	}

	if a == b {
		t.Error("two encryptions of the same plaintext produced identical ciphertext")
	}
}

func TestNewEncryptor_ShortKeyDerivation(t *testing.T) {
	// Keys of any length should work via SHA-256 derivation
	enc, err := NewEncryptor([]byte("short"))
	if err != nil {
		t.Fatalf("NewEncryptor() error = %v", err)
	}

	ciphertext, err := enc.Encrypt("payload")
	if err != nil {
		t.Fatal(err)
	}
	got, err := enc.Decrypt(ciphertext)
	if err != nil {
		t.Fatal(err)
	}
	if got != "payload" {
		t.Errorf("round trip = %q, want %q", got, "payload")
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	enc1, _ := NewEncryptor([]byte("key-one"))
	enc2, _ := NewEncryptor([]byte("key-two"))

	ciphertext, err := enc1.Encrypt("secret")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := enc2.Decrypt(ciphertext); err == nil {
		t.Error("Decrypt() with wrong key succeeded, want error")
	}
}

func TestDecrypt_InvalidInput(t *testing.T) {
	enc, _ := NewEncryptor([]byte("test-key"))

	tests := []struct {
		name  string
		input string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"too short", "YWJj"},
		{"garbage", "aGVsbG8gd29ybGQgdGhpcyBpcyBub3QgZW5jcnlwdGVkIGRhdGE="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := enc.Decrypt(tt.input); err == nil {
				t.Error("Decrypt() succeeded, want error")
			}
		})
	}
}

func TestIsEncrypted(t *testing.T) {
	enc, _ := NewEncryptor([]byte("test-key"))
	ciphertext, err := enc.Encrypt("a real token value")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"empty", "", false},
		{"plaintext token", "ya29.a0AfH6SMB-not-encrypted", false},
		{"short base64", "YWJjZGVm", false},
		{"real ciphertext", ciphertext, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEncrypted(tt.input); got != tt.want {
				t.Errorf("IsEncrypted(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
