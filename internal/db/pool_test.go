package db

import (
	"strings"
	"testing"
)

func TestMaskPassword_HidesSecret(t *testing.T) {
	got := maskPassword("postgres://app:secret@db:5432/readings")
	if strings.Contains(got, "secret") {
		t.Errorf("password leaked: %s", got)
	}
	if !strings.Contains(got, "app") || !strings.Contains(got, "db:5432/readings") {
		t.Errorf("unexpected masked url: %s", got)
	}
}

func TestMaskPassword_Passthrough(t *testing.T) {
	cases := map[string]string{
		"":                                 "<empty>",
		"postgres://app@db:5432/readings":  "postgres://app@db:5432/readings",
		"host=db user=app dbname=readings": "host=db user=app dbname=readings",
	}
	for in, want := range cases {
		if got := maskPassword(in); got != want {
			t.Errorf("maskPassword(%q) = %q, want %q", in, got, want)
		}
	}
}
