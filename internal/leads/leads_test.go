package leads

import (
	"strings"
	"testing"
)

func TestParseCSV_Basic(t *testing.T) {
	in := "Dana,+15550001111\nLee,+15550002222\n"
	got, err := ParseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(got))
	}
	if got[0].Name != "Dana" || got[0].Number != "+15550001111" {
		t.Fatalf("unexpected first lead: %+v", got[0])
	}
}

func TestParseCSV_SkipsHeader(t *testing.T) {
	in := "name,number\nDana,+15550001111\n"
	got, err := ParseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Dana" {
		t.Fatalf("header must be skipped, got %+v", got)
	}
}

func TestParseCSV_MissingNumber(t *testing.T) {
	in := "Dana,+15550001111\nLee,\n"
	if _, err := ParseCSV(strings.NewReader(in)); err == nil {
		t.Fatalf("expected error for missing phone number")
	}
}

func TestParseCSV_ShortRow(t *testing.T) {
	if _, err := ParseCSV(strings.NewReader("just-one-column\n")); err == nil {
		t.Fatalf("expected error for row without number column")
	}
}

func TestParseCSV_Empty(t *testing.T) {
	got, err := ParseCSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no leads, got %d", len(got))
	}
}
