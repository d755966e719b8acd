package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("hello world\n"), "Name?", &out)
	if err != nil || got != "hello world" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

func TestGetSimpleTextEOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("lastline"), "Name?", &out)
	if err != nil || got != "lastline" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

func TestGetPassword_Error(t *testing.T) {
	old := readPassword
	defer func() { readPassword = old }()
	readPassword = func(int) ([]byte, error) {
		return nil, errors.New("boom")
	}
	var out bytes.Buffer
	_, err := GetPassword(&out)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestGetAmount(t *testing.T) {
	var out bytes.Buffer
	got, err := GetAmount(rdr("150.50\n"), "Amount?", &out)
	if err != nil || got != 150.50 {
		t.Fatalf("got %v, err=%v", got, err)
	}
	if _, err := GetAmount(rdr("abc\n"), "Amount?", &out); err == nil {
		t.Fatal("expected error")
	}
}

func TestGetInt(t *testing.T) {
	var out bytes.Buffer
	got, err := GetInt(rdr("42\n"), "Qty?", &out)
	if err != nil || got != 42 {
		t.Fatalf("got %v, err=%v", got, err)
	}
	if _, err := GetInt(rdr("4.5\n"), "Qty?", &out); err == nil {
		t.Fatal("expected error")
	}
}

func TestReadDenominations(t *testing.T) {
	a := &App{reader: rdr("100 x 10\n50 x 20\n\n")}
	denoms, err := a.readDenominations()
	if err != nil {
		t.Fatal(err)
	}
	if len(denoms) != 2 {
		t.Fatalf("got %d denominations", len(denoms))
	}
	if denoms[0].Value != 100 || denoms[0].TargetQty != 10 {
		t.Fatalf("unexpected first denomination: %+v", denoms[0])
	}
	if denoms[1].Value != 50 || denoms[1].TargetQty != 20 {
		t.Fatalf("unexpected second denomination: %+v", denoms[1])
	}
}
