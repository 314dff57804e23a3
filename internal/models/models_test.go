package models

import "testing"

func TestValidateClientStatus(t *testing.T) {
	cases := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "active", want: "active"},
		{input: " Suspended ", want: "suspended"},
		{input: "INACTIVE", want: "inactive"},
		{input: "paused", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ValidateClientStatus(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tc.input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ValidateClientStatus(%q) returned error: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("ValidateClientStatus(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestValidateStreamFormat(t *testing.T) {
	if _, err := ValidateStreamFormat("flac"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	got, err := ValidateStreamFormat(" MP3 ")
	if err != nil {
		t.Fatalf("ValidateStreamFormat returned error: %v", err)
	}
	if got != FormatMP3 {
		t.Fatalf("expected %q, got %q", FormatMP3, got)
	}
}

func TestNormalizeMountPoint(t *testing.T) {
	if got := NormalizeMountPoint(""); got != "/stream" {
		t.Fatalf("empty mount should default to /stream, got %q", got)
	}
	if got := NormalizeMountPoint("live"); got != "/live" {
		t.Fatalf("expected /live, got %q", got)
	}
	if got := NormalizeMountPoint("/radio"); got != "/radio" {
		t.Fatalf("expected /radio, got %q", got)
	}
}

func TestOperatorHasRole(t *testing.T) {
	op := Operator{Roles: []string{"admin", "billing"}}
	if !op.HasRole("Admin") {
		t.Fatal("expected case-insensitive role match")
	}
	if op.HasRole("viewer") {
		t.Fatal("unexpected role match")
	}
}
